// Package storefront is the composition root: it owns the per-product
// selections and review drafts, the shopper's tier, the theme and cart
// visibility, and wires the cart engine, review ledger, notifications and
// event bus together.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/cart"
	"storefront/config"
	"storefront/domain"
	"storefront/events"
	"storefront/notify"
	"storefront/review"

	"go.uber.org/zap"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Prompts shown when an action is refused.
const (
	PromptIncompleteSelection = "Please select colour, size, and quantity before adding to cart."
	PromptOutOfStock          = "Sorry, the selected size and colour are out of stock or the quantity exceeds the available stock."
	PromptIncompleteReview    = "Please provide your name, review, and select a rating."
)

// PromptError is a refused user action. It wraps the domain error so the
// Is helpers in domain keep working.
type PromptError struct {
	Prompt string
	Err    error
}

func (e *PromptError) Error() string { return e.Prompt }

func (e *PromptError) Unwrap() error { return e.Err }

// PromptFor returns the blocking prompt for err, if it is one.
func PromptFor(err error) (string, bool) {
	var pe *PromptError
	if errors.As(err, &pe) {
		return pe.Prompt, true
	}
	return "", false
}

// Option customises New.
type Option func(*options)

type options struct {
	sched  notify.Scheduler
	logger *zap.Logger
	bus    *events.Bus
}

// WithScheduler runs every deferred effect on s.
func WithScheduler(s notify.Scheduler) Option { return func(o *options) { o.sched = s } }

// WithLogger sets the logger handed to every component.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithBus shares an existing bus instead of creating one.
func WithBus(b *events.Bus) Option { return func(o *options) { o.bus = b } }

// Storefront is one shopper's session over a catalog.
type Storefront struct {
	mu       sync.Mutex
	cfg      config.Config
	catalog  domain.CatalogStore
	engine   *cart.Engine
	ledger   *review.Ledger
	queue    *notify.Queue
	timers   *notify.Timers
	bus      *events.Bus
	logger   *zap.Logger
	unsubs   []func()
	customer domain.CustomerContext

	selections map[int]domain.Selection
	drafts     map[int]review.Draft
	theme      string
	cartOpen   bool
}

// New wires a storefront over catalog.
func New(catalog domain.CatalogStore, cfg config.Config, opts ...Option) *Storefront {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.bus == nil {
		o.bus = events.NewBus(o.logger.Named("events"))
	}

	timers := notify.NewTimers(o.sched)
	queue := notify.NewQueue(timers, o.logger.Named("notify"))

	s := &Storefront{
		cfg:        cfg,
		catalog:    catalog,
		queue:      queue,
		timers:     timers,
		bus:        o.bus,
		logger:     o.logger,
		customer:   cfg.Customer(),
		selections: make(map[int]domain.Selection),
		drafts:     make(map[int]review.Draft),
		theme:      cfg.Storefront.Theme,
	}
	s.engine = cart.NewEngine(catalog, cfg.Engine(),
		cart.WithNotifier(queue),
		cart.WithPublisher(o.bus),
		cart.WithTimers(timers),
		cart.WithLogger(o.logger.Named("cart")),
	)
	s.ledger = review.NewLedger(catalog, queue, o.logger.Named("review"), cfg.Storefront.DisplaySuffix, cfg.NotifyDuration)

	s.unsubs = append(s.unsubs, o.bus.Subscribe(events.TopicCartClose, func(interface{}) {
		s.mu.Lock()
		s.cartOpen = false
		s.mu.Unlock()
	}))
	return s
}

// Close detaches from the bus and cancels every pending timer.
func (s *Storefront) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.timers.Stop()
}

// Bus is the event bus observers subscribe to.
func (s *Storefront) Bus() *events.Bus { return s.bus }

// Products lists the catalog.
func (s *Storefront) Products(ctx context.Context, filter domain.ListFilter) ([]domain.Product, error) {
	return s.catalog.List(ctx, filter)
}

// Product returns one catalog entry.
func (s *Storefront) Product(ctx context.Context, id int) (domain.Product, error) {
	return s.catalog.Get(ctx, id)
}

// StockFor is the live stock of one variant.
func (s *Storefront) StockFor(ctx context.Context, id int, colour, size string) (int, error) {
	return s.catalog.Stock(ctx, id, colour, size)
}

// Selection returns the pending selection for id, starting from the default
// colour and side when the shopper has not touched the product yet.
func (s *Storefront) Selection(ctx context.Context, id int) (domain.Selection, error) {
	p, err := s.catalog.Get(ctx, id)
	if err != nil {
		return domain.Selection{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectionLocked(p), nil
}

func (s *Storefront) selectionLocked(p domain.Product) domain.Selection {
	if sel, ok := s.selections[p.ID]; ok {
		return sel
	}
	sel := domain.Selection{Colour: s.cfg.Storefront.DefaultColour, Side: s.cfg.Storefront.DefaultSide}
	if !p.HasColour(sel.Colour) {
		if colours := p.Colours(); len(colours) > 0 {
			sel.Colour = colours[0]
		}
	}
	return sel
}

// SelectVariant picks colour and size for id. An empty size clears it. The
// chosen quantity is kept.
func (s *Storefront) SelectVariant(ctx context.Context, id int, colour, size string) (domain.Selection, error) {
	p, err := s.catalog.Get(ctx, id)
	if err != nil {
		return domain.Selection{}, err
	}
	if !p.HasColour(colour) {
		return domain.Selection{}, domain.NewValidationError("colour", "not offered for this product", colour)
	}
	if size != "" && !p.HasSize(colour, size) {
		return domain.Selection{}, domain.NewValidationError("size", "not offered in "+colour, size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sel := s.selectionLocked(p)
	sel.Colour, sel.Size = colour, size
	s.selections[id] = sel
	return sel, nil
}

// SelectSide switches the image side shown for id.
func (s *Storefront) SelectSide(ctx context.Context, id int, side string) (domain.Selection, error) {
	p, err := s.catalog.Get(ctx, id)
	if err != nil {
		return domain.Selection{}, err
	}
	if side != "front" && side != "back" {
		return domain.Selection{}, domain.NewValidationError("side", "must be front or back", side)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sel := s.selectionLocked(p)
	sel.Side = side
	s.selections[id] = sel
	return sel, nil
}

// QuantityOptions is the quantity menu for the current selection of id:
// 1..min(max qty, stock). It is empty until a size is chosen.
func (s *Storefront) QuantityOptions(ctx context.Context, id int) ([]int, error) {
	sel, err := s.Selection(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.quantityOptions(ctx, id, sel)
}

func (s *Storefront) quantityOptions(ctx context.Context, id int, sel domain.Selection) ([]int, error) {
	if sel.Size == "" {
		return nil, nil
	}
	stock, err := s.catalog.Stock(ctx, id, sel.Colour, sel.Size)
	if err != nil {
		return nil, err
	}
	n := s.cfg.Storefront.MaxQty
	if stock < n {
		n = stock
	}
	out := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, i)
	}
	return out, nil
}

// SelectQuantity chooses n units for id. n must be on the quantity menu.
func (s *Storefront) SelectQuantity(ctx context.Context, id, n int) (domain.Selection, error) {
	sel, err := s.Selection(ctx, id)
	if err != nil {
		return domain.Selection{}, err
	}
	opts, err := s.quantityOptions(ctx, id, sel)
	if err != nil {
		return domain.Selection{}, err
	}
	if n < 1 || n > len(opts) {
		return domain.Selection{}, domain.NewValidationError("qty", fmt.Sprintf("must be between 1 and %d", len(opts)), n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sel = s.selections[id]
	if sel.Size == "" {
		// size was cleared concurrently
		return domain.Selection{}, domain.NewValidationError("size", "must be selected", "Size")
	}
	sel.Qty = domain.Selected(n)
	s.selections[id] = sel
	return sel, nil
}

// CanAddToCart reports whether the current selection of id may be added.
func (s *Storefront) CanAddToCart(ctx context.Context, id int) (bool, error) {
	p, err := s.catalog.Get(ctx, id)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	sel := s.selectionLocked(p)
	s.mu.Unlock()
	return cart.ValidateSelection(p, sel), nil
}

// AddToCart commits the current selection of id. On success the selection's
// quantity goes back to unselected; colour and size stay.
func (s *Storefront) AddToCart(ctx context.Context, id int) (cart.AddResult, error) {
	sel, err := s.Selection(ctx, id)
	if err != nil {
		return cart.AddResult{}, err
	}

	res, err := s.engine.AddToCart(ctx, id, sel)
	switch {
	case err == nil:
	case domain.IsOutOfStockError(err):
		return cart.AddResult{}, &PromptError{Prompt: PromptOutOfStock, Err: err}
	case domain.IsValidationError(err):
		return cart.AddResult{}, &PromptError{Prompt: PromptIncompleteSelection, Err: err}
	default:
		return cart.AddResult{}, err
	}

	s.mu.Lock()
	sel = s.selections[id]
	sel.Qty = domain.Unselected()
	s.selections[id] = sel
	s.mu.Unlock()
	return res, nil
}

// RemoveFromCart drops the cart line at index.
func (s *Storefront) RemoveFromCart(ctx context.Context, index int) (domain.CartLine, error) {
	return s.engine.RemoveFromCart(ctx, index)
}

// ClearCart empties the cart and returns the units to stock.
func (s *Storefront) ClearCart(ctx context.Context) (int, error) {
	return s.engine.ClearCart(ctx)
}

// Checkout sells the cart to the current shopper.
func (s *Storefront) Checkout(ctx context.Context) (cart.Receipt, error) {
	s.mu.Lock()
	customer := s.customer
	s.mu.Unlock()
	return s.engine.Checkout(ctx, customer)
}

// SetReviewDraft stores the review being written for id.
func (s *Storefront) SetReviewDraft(ctx context.Context, id int, d review.Draft) error {
	if _, err := s.catalog.Get(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.drafts[id] = d
	s.mu.Unlock()
	return nil
}

// ReviewDraft returns the draft for id.
func (s *Storefront) ReviewDraft(id int) review.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts[id]
}

// SubmitReview files the draft for id and clears it. A refused draft is kept.
func (s *Storefront) SubmitReview(ctx context.Context, id int) (domain.Review, error) {
	draft := s.ReviewDraft(id)
	r, err := s.ledger.Add(ctx, id, draft)
	if err != nil {
		if domain.IsValidationError(err) {
			return domain.Review{}, &PromptError{Prompt: PromptIncompleteReview, Err: err}
		}
		return domain.Review{}, err
	}
	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()
	return r, nil
}

// AddReview sets the draft for id and submits it.
func (s *Storefront) AddReview(ctx context.Context, id int, d review.Draft) (domain.Review, error) {
	if err := s.SetReviewDraft(ctx, id, d); err != nil {
		return domain.Review{}, err
	}
	return s.SubmitReview(ctx, id)
}

// Reviews lists the reviews of id.
func (s *Storefront) Reviews(ctx context.Context, id int) ([]domain.Review, error) {
	return s.ledger.List(ctx, id)
}

// SetCustomerTier switches between premium and standard pricing.
func (s *Storefront) SetCustomerTier(premium bool) {
	s.mu.Lock()
	changed := s.customer.Premium != premium
	s.customer.Premium = premium
	s.mu.Unlock()

	if changed {
		s.logger.Info("customer tier changed", zap.Bool("premium", premium))
		s.bus.Publish(events.TopicTierChanged, events.TierChanged{Premium: premium})
	}
}

// Customer is the current pricing context.
func (s *Storefront) Customer() domain.CustomerContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customer
}

// SetTheme switches the colour scheme.
func (s *Storefront) SetTheme(theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return domain.NewValidationError("theme", "must be light or dark", theme)
	}
	s.mu.Lock()
	changed := s.theme != theme
	s.theme = theme
	s.mu.Unlock()

	if changed {
		s.bus.Publish(events.TopicThemeChanged, events.ThemeChanged{Theme: theme})
	}
	return nil
}

// ToggleTheme flips between light and dark and returns the new theme.
func (s *Storefront) ToggleTheme() string {
	s.mu.Lock()
	next := ThemeDark
	if s.theme == ThemeDark {
		next = ThemeLight
	}
	s.mu.Unlock()
	_ = s.SetTheme(next)
	return next
}

// ToggleCart shows or hides the cart and returns whether it is now shown.
func (s *Storefront) ToggleCart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartOpen = !s.cartOpen
	return s.cartOpen
}

// Notifications are the messages currently shown.
func (s *Storefront) Notifications() []notify.Notification {
	return s.queue.Active()
}

// DismissNotification hides a notification before its time is up.
func (s *Storefront) DismissNotification(id string) bool {
	return s.queue.Dismiss(id)
}

// View is the read-only state the presentation layer renders.
type View struct {
	Lines           []domain.CartLine     `json:"lines"`
	ItemCount       int                   `json:"itemCount"`
	Totals          cart.DisplayTotals    `json:"totals"`
	ShippingUnits   int                   `json:"shippingUnits"`
	ShippingApplied bool                  `json:"shippingApplied"`
	ShippingWaived  bool                  `json:"shippingWaived"`
	Premium         bool                  `json:"premium"`
	Notifications   []notify.Notification `json:"notifications"`
	Theme           string                `json:"theme"`
	CartOpen        bool                  `json:"cartOpen"`
}

// View snapshots the cart and session state.
func (s *Storefront) View() View {
	s.mu.Lock()
	customer, theme, open := s.customer, s.theme, s.cartOpen
	s.mu.Unlock()

	t := s.engine.Totals(customer)
	return View{
		Lines:           s.engine.Lines(),
		ItemCount:       s.engine.ItemCount(),
		Totals:          t.Display(),
		ShippingUnits:   t.ShippingUnits,
		ShippingApplied: t.ShippingApplied,
		ShippingWaived:  t.ShippingWaived,
		Premium:         customer.Premium,
		Notifications:   s.queue.Active(),
		Theme:           theme,
		CartOpen:        open,
	}
}
