// Package review is the append-only ledger of product reviews.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/domain"
	"storefront/notify"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Draft is a review the shopper is still typing.
type Draft struct {
	Name   string `json:"name" validate:"required"`
	Text   string `json:"text" validate:"required"`
	Rating int    `json:"rating" validate:"min=1,max=5"`
}

// Normalized trims surrounding whitespace from the free-text fields.
func (d Draft) Normalized() Draft {
	d.Name = strings.TrimSpace(d.Name)
	d.Text = strings.TrimSpace(d.Text)
	return d
}

// Notifier receives the "review submitted" message.
type Notifier interface {
	Notify(message string, severity notify.Severity, d time.Duration) notify.Notification
}

// Ledger validates drafts and appends them to the catalog.
type Ledger struct {
	catalog       domain.CatalogStore
	notifier      Notifier
	validate      *validator.Validate
	logger        *zap.Logger
	displaySuffix string
	duration      time.Duration
}

// NewLedger builds a ledger. notifier and logger may be nil.
func NewLedger(catalog domain.CatalogStore, notifier Notifier, logger *zap.Logger, displaySuffix string, d time.Duration) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		catalog:       catalog,
		notifier:      notifier,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        logger,
		displaySuffix: displaySuffix,
		duration:      d,
	}
}

// Validate reports every problem with draft as ValidationErrors.
func (l *Ledger) Validate(draft Draft) error {
	err := l.validate.Struct(draft.Normalized())
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var out error
	for _, fe := range verrs {
		out = multierr.Append(out, domain.NewValidationError(strings.ToLower(fe.Field()), reason(fe), fe.Value()))
	}
	return out
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be blank"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	}
	return fe.Tag()
}

// Add appends draft to the reviews of productID. Nothing is written when the
// draft is invalid or the product is unknown.
func (l *Ledger) Add(ctx context.Context, productID int, draft Draft) (domain.Review, error) {
	p, err := l.catalog.Get(ctx, productID)
	if err != nil {
		return domain.Review{}, err
	}
	if err := l.Validate(draft); err != nil {
		l.logger.Warn("review rejected", zap.Int("product_id", productID), zap.Error(err))
		return domain.Review{}, err
	}

	draft = draft.Normalized()
	r := domain.Review{Name: draft.Name, Text: draft.Text, Rating: draft.Rating}
	if err := l.catalog.AppendReview(ctx, productID, r); err != nil {
		return domain.Review{}, fmt.Errorf("append review: %w", err)
	}

	if l.notifier != nil {
		l.notifier.Notify(fmt.Sprintf("Your review for %s%s has been submitted.", p.Name, l.displaySuffix), notify.SeveritySuccess, l.duration)
	}
	l.logger.Debug("review added", zap.Int("product_id", productID), zap.Int("rating", r.Rating))
	return r, nil
}

// List returns the reviews of productID, oldest first.
func (l *Ledger) List(ctx context.Context, productID int) ([]domain.Review, error) {
	p, err := l.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	return p.Reviews, nil
}
