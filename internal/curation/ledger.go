package curation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Ledger maintains the per-unit earnings aggregate of a content entity.
// The invariant: the stored total always equals the sum of payment-rule
// amounts over the currently-present reactions of that unit.
type Ledger struct {
	store  Store
	logger *zap.Logger
}

// NewLedger creates an earnings ledger over the store.
func NewLedger(store Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger.Named("ledger"),
	}
}

// Add increments the earnings total for (content, unit) by amount.
func (l *Ledger) Add(ctx context.Context, contentID uint64, unit string, amount float64) error {
	earnings, err := l.store.Earnings(ctx, contentID, unit)
	if err != nil {
		return fmt.Errorf("failed to read earnings: %w", err)
	}

	total := amount
	if earnings != nil {
		total += earnings.TotalAmount
	}

	if err := l.store.UpsertEarnings(ctx, contentID, unit, total); err != nil {
		return fmt.Errorf("failed to write earnings: %w", err)
	}

	l.logger.Debug("Earnings updated",
		zap.Uint64("contentID", contentID),
		zap.String("unit", unit),
		zap.Float64("total", total))

	return nil
}

// Recompute rebuilds the earnings total for (content, unit) from the
// remaining payment-rule-bearing reactions and returns how many payment
// reactions remain on the content across all units.
func (l *Ledger) Recompute(ctx context.Context, contentID uint64, unit string) (int, error) {
	reactions, err := l.store.ReactionsByContent(ctx, contentID)
	if err != nil {
		return 0, fmt.Errorf("failed to list reactions: %w", err)
	}

	var (
		total     float64
		remaining int
	)

	for _, reaction := range reactions {
		rule, err := l.store.PaymentRule(ctx, reaction.EmojiKey)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}

			return 0, fmt.Errorf("failed to look up payment rule for %s: %w", reaction.EmojiKey, err)
		}

		remaining++

		if rule.Unit == unit {
			total += rule.Amount
		}
	}

	if err := l.store.UpsertEarnings(ctx, contentID, unit, total); err != nil {
		return 0, fmt.Errorf("failed to write earnings: %w", err)
	}

	l.logger.Debug("Earnings recomputed",
		zap.Uint64("contentID", contentID),
		zap.String("unit", unit),
		zap.Float64("total", total),
		zap.Int("remainingPaymentReactions", remaining))

	return remaining, nil
}
