// Package cart is the storefront's cart engine: it commits selections into
// cart lines, moves stock in and out of the catalog and prices the result.
package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/domain"
	"storefront/events"
	"storefront/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CloseTimerKey is the timer key of the post-checkout cart close.
const CloseTimerKey = "checkout:close"

// Notifier is the user message sink the engine writes outcomes to.
type Notifier interface {
	Notify(message string, severity notify.Severity, d time.Duration) notify.Notification
}

// Config holds the engine's tunables.
type Config struct {
	DisplaySuffix  string
	NotifyDuration time.Duration
	CloseDelay     time.Duration
	Pricing        PricingOptions
}

// DefaultConfig matches the launch storefront.
func DefaultConfig() Config {
	return Config{
		DisplaySuffix:  " Meme-Tee",
		NotifyDuration: 2 * time.Second,
		CloseDelay:     2 * time.Second,
		Pricing:        DefaultPricing(),
	}
}

// Option wires an outbound collaborator into the engine.
type Option func(*Engine)

func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }
func WithPublisher(p events.Publisher) Option { return func(e *Engine) { e.publisher = p } }
func WithTimers(t *notify.Timers) Option { return func(e *Engine) { e.timers = t } }
func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

// AddResult describes a successful add to cart.
type AddResult struct {
	Line      domain.CartLine `json:"line"`
	Index     int             `json:"index"`
	Merged    bool            `json:"merged"`
	StockLeft int             `json:"stockLeft"`
}

// Receipt is what a checkout sold.
type Receipt struct {
	OrderID   string            `json:"orderId"`
	Lines     []domain.CartLine `json:"lines"`
	ItemCount int               `json:"itemCount"`
	Totals    Totals            `json:"totals"`
	PlacedAt  time.Time         `json:"placedAt"`
}

// Engine owns the cart and is the only writer of catalog stock.
// Every operation either completes or leaves cart and catalog untouched.
type Engine struct {
	mu        sync.Mutex
	catalog   domain.CatalogStore
	notifier  Notifier
	publisher events.Publisher
	timers    *notify.Timers
	logger    *zap.Logger
	cfg       Config

	lines     []domain.CartLine
	itemCount int
}

// NewEngine builds an engine over catalog.
func NewEngine(catalog domain.CatalogStore, cfg Config, opts ...Option) *Engine {
	e := &Engine{catalog: catalog, cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.notifier == nil {
		e.notifier = discardNotifier{}
	}
	if e.publisher == nil {
		e.publisher = discardPublisher{}
	}
	if e.timers == nil {
		e.timers = notify.NewTimers(nil)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// ValidateSelection reports whether "add to cart" should be offered: a size and
// a quantity are chosen and the variant has stock. It is a capability query;
// AddToCart repeats the authoritative checks.
func ValidateSelection(p domain.Product, sel domain.Selection) bool {
	return sel.Size != "" && sel.Qty.IsSelected() && p.StockFor(sel.Colour, sel.Size) > 0
}

// AddToCart commits sel for productID. The selection is taken by value; the
// caller resets its quantity once this returns without error. The notification
// and add-to-cart event go out after the cart is unlocked, so subscribers may
// read it.
func (e *Engine) AddToCart(ctx context.Context, productID int, sel domain.Selection) (AddResult, error) {
	start := time.Now()
	res, p, err := e.add(ctx, productID, sel)
	if err != nil {
		return AddResult{}, err
	}
	qty, _ := sel.Qty.Value()

	e.notifier.Notify(fmt.Sprintf("%s has been added to the cart.", res.Line.DisplayName), notify.SeveritySuccess, e.cfg.NotifyDuration)
	e.publisher.Publish(events.TopicAddToCart, events.AddToCart{Product: p, Line: res.Line, Qty: qty, Merged: res.Merged})

	e.logger.Debug("added to cart",
		zap.Int("product_id", productID),
		zap.String("colour", sel.Colour),
		zap.String("size", sel.Size),
		zap.Int("qty", qty),
		zap.Bool("merged", res.Merged),
		zap.Int("stock_left", res.StockLeft),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (e *Engine) add(ctx context.Context, productID int, sel domain.Selection) (AddResult, domain.Product, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.catalog.Get(ctx, productID)
	if err != nil {
		return AddResult{}, p, err
	}

	qty, _ := sel.Qty.Value()
	switch {
	case sel.Colour == "":
		return AddResult{}, p, domain.NewValidationError("colour", "must be selected", sel.Colour)
	case sel.Size == "":
		return AddResult{}, p, domain.NewValidationError("size", "must be selected", "Size")
	case !sel.Qty.IsSelected():
		return AddResult{}, p, domain.NewValidationError("qty", "must be selected", sel.Qty.String())
	}

	available := p.StockFor(sel.Colour, sel.Size)
	if available < qty {
		e.logger.Warn("add to cart rejected",
			zap.Int("product_id", productID),
			zap.String("colour", sel.Colour),
			zap.String("size", sel.Size),
			zap.Int("qty", qty),
			zap.Int("available", available),
		)
		return AddResult{}, p, domain.NewOutOfStockError(productID, sel.Colour, sel.Size, available, qty)
	}

	if err := e.catalog.AdjustStock(ctx, productID, sel.Colour, sel.Size, -qty); err != nil {
		return AddResult{}, p, fmt.Errorf("reserve stock: %w", err)
	}

	name := p.Name + e.cfg.DisplaySuffix
	res := AddResult{Index: -1, StockLeft: available - qty}
	for i := range e.lines {
		if e.lines[i].SameVariant(name, sel.Colour, sel.Size) {
			e.lines[i].Qty += qty
			res.Index, res.Merged = i, true
			break
		}
	}
	if res.Index < 0 {
		e.lines = append(e.lines, domain.CartLine{
			ProductID:   p.ID,
			DisplayName: name,
			UnitPrice:   p.Price,
			Colour:      sel.Colour,
			Size:        sel.Size,
			Qty:         qty,
		})
		res.Index = len(e.lines) - 1
	}
	res.Line = e.lines[res.Index]
	e.itemCount += qty
	if err := e.checkInvariants(); err != nil {
		return AddResult{}, p, err
	}
	return res, p, nil
}

// RemoveFromCart deletes the line at index and returns its units to stock.
func (e *Engine) RemoveFromCart(ctx context.Context, index int) (domain.CartLine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.lines) {
		return domain.CartLine{}, domain.NewIndexOutOfRangeError(index, len(e.lines))
	}
	line := e.lines[index]
	if line.Qty > e.itemCount {
		return domain.CartLine{}, domain.NewInvariantViolationError("non-negative item count",
			fmt.Sprintf("removing %d of %d", line.Qty, e.itemCount))
	}

	if err := e.catalog.AdjustStock(ctx, line.ProductID, line.Colour, line.Size, line.Qty); err != nil {
		return domain.CartLine{}, fmt.Errorf("restore stock: %w", err)
	}

	e.lines = append(e.lines[:index], e.lines[index+1:]...)
	e.itemCount -= line.Qty
	if err := e.checkInvariants(); err != nil {
		return domain.CartLine{}, err
	}

	e.logger.Debug("removed from cart",
		zap.Int("index", index),
		zap.Int("product_id", line.ProductID),
		zap.Int("qty", line.Qty),
		zap.Int("item_count", e.itemCount),
	)
	return line, nil
}

// ClearCart returns every line's units to stock, using the colour and size
// recorded on the line, and empties the cart. If any restore fails the ones
// already applied are undone and the cart is left as it was.
func (e *Engine) ClearCart(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	restored := 0
	for i, line := range e.lines {
		if err := e.catalog.AdjustStock(ctx, line.ProductID, line.Colour, line.Size, line.Qty); err != nil {
			e.rollback(e.lines[:i])
			return 0, fmt.Errorf("restore stock: %w", err)
		}
		restored += line.Qty
	}

	e.lines = nil
	e.itemCount = 0
	e.logger.Debug("cart cleared", zap.Int("restored", restored))
	return restored, nil
}

func (e *Engine) rollback(lines []domain.CartLine) {
	// a fresh context: the caller's may be the reason the restore failed
	ctx := context.Background()
	for _, line := range lines {
		if err := e.catalog.AdjustStock(ctx, line.ProductID, line.Colour, line.Size, -line.Qty); err != nil {
			e.logger.Error("rollback of stock restore failed",
				zap.Int("product_id", line.ProductID),
				zap.String("colour", line.Colour),
				zap.String("size", line.Size),
				zap.Error(err),
			)
		}
	}
}

// Checkout sells the cart: lines are dropped without restoring stock. The cart
// close is announced after the configured delay; a later checkout replaces a
// close that is still pending.
func (e *Engine) Checkout(ctx context.Context, customer domain.CustomerContext) (Receipt, error) {
	r, err := e.checkout(ctx, customer)
	if err != nil {
		if domain.IsEmptyCartError(err) {
			e.notifier.Notify("Your cart is empty. Please add items before checking out.", notify.SeverityError, e.cfg.NotifyDuration)
		}
		return Receipt{}, err
	}

	e.notifier.Notify("Thank you for shopping with us!", notify.SeveritySuccess, e.cfg.NotifyDuration)
	e.publisher.Publish(events.TopicCheckout, events.Checkout{OrderID: r.OrderID, ItemCount: r.ItemCount})

	e.logger.Info("checkout complete",
		zap.String("order_id", r.OrderID),
		zap.Int("item_count", r.ItemCount),
		zap.String("grand_total", r.Totals.GrandTotal.StringFixed(2)),
	)
	return r, nil
}

func (e *Engine) checkout(ctx context.Context, customer domain.CustomerContext) (Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if len(e.lines) == 0 {
		return Receipt{}, domain.NewEmptyCartError()
	}

	r := Receipt{
		OrderID:   uuid.NewString(),
		Lines:     append([]domain.CartLine(nil), e.lines...),
		ItemCount: e.itemCount,
		Totals:    ComputeTotals(e.lines, e.itemCount, customer, e.cfg.Pricing),
		PlacedAt:  time.Now(),
	}
	e.lines = nil
	e.itemCount = 0

	// under the lock: closes fire in checkout order
	if e.timers.Schedule(CloseTimerKey, e.cfg.CloseDelay, func() {
		e.publisher.Publish(events.TopicCartClose, events.CartClose{OrderID: r.OrderID})
	}) {
		e.logger.Debug("pending cart close superseded", zap.String("order_id", r.OrderID))
	}
	return r, nil
}

// CloseScheduled reports whether a post-checkout cart close is pending.
func (e *Engine) CloseScheduled() bool {
	return e.timers.Pending(CloseTimerKey)
}

// CancelClose drops a pending post-checkout cart close.
func (e *Engine) CancelClose() bool {
	return e.timers.Cancel(CloseTimerKey)
}

// Lines returns a copy of the cart lines in insertion order.
func (e *Engine) Lines() []domain.CartLine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.CartLine(nil), e.lines...)
}

// ItemCount is the number of units in the cart.
func (e *Engine) ItemCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.itemCount
}

// Totals prices the current cart for customer.
func (e *Engine) Totals(customer domain.CustomerContext) Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ComputeTotals(e.lines, e.itemCount, customer, e.cfg.Pricing)
}

func (e *Engine) checkInvariants() error {
	sum := 0
	for _, l := range e.lines {
		if l.Qty <= 0 {
			return domain.NewInvariantViolationError("positive line qty", fmt.Sprintf("%s %s/%s has %d", l.DisplayName, l.Colour, l.Size, l.Qty))
		}
		sum += l.Qty
	}
	if sum != e.itemCount || e.itemCount < 0 {
		e.logger.Error("cart item count drifted", zap.Int("item_count", e.itemCount), zap.Int("sum_qty", sum))
		return domain.NewInvariantViolationError("item count equals line quantities",
			fmt.Sprintf("itemCount=%d sum=%d", e.itemCount, sum))
	}
	return nil
}

type discardNotifier struct{}

func (discardNotifier) Notify(message string, severity notify.Severity, d time.Duration) notify.Notification {
	return notify.Notification{Message: message, Severity: severity, Duration: d}
}

type discardPublisher struct{}

func (discardPublisher) Publish(events.Topic, interface{}) {}
