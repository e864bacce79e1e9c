package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lorekeep/curator/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// PaymentModel handles database operations for payment rows and the
// derived earnings aggregate.
type PaymentModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPayment creates a new payment model.
func NewPayment(db *bun.DB, logger *zap.Logger) *PaymentModel {
	return &PaymentModel{
		db:     db,
		logger: logger.Named("db_payment"),
	}
}

// Create inserts an immutable payment row.
func (r *PaymentModel) Create(ctx context.Context, payment *types.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	payment.CreatedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(payment).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create payment for content %d: %w", payment.ContentID, err)
	}

	return nil
}

// GetByContent returns all payment rows for a content entity, oldest first.
func (r *PaymentModel) GetByContent(ctx context.Context, contentID uint64) ([]*types.Payment, error) {
	var payments []*types.Payment

	err := r.db.NewSelect().
		Model(&payments).
		Where("content_id = ?", contentID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments for content %d: %w", contentID, err)
	}

	return payments, nil
}

// First returns the oldest payment row for a content entity, or nil when
// the content has no payments yet. The first payment pins the unit and
// funding source all later payments must match.
func (r *PaymentModel) First(ctx context.Context, contentID uint64) (*types.Payment, error) {
	payment := new(types.Payment)

	err := r.db.NewSelect().
		Model(payment).
		Where("content_id = ?", contentID).
		Order("created_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get first payment for content %d: %w", contentID, err)
	}

	return payment, nil
}

// GetByReaction returns the payment attached to a reaction row, or nil
// when the reaction never produced one. Keeps payment recording
// idempotent across duplicate deliveries of the same add event.
func (r *PaymentModel) GetByReaction(ctx context.Context, reactionID uuid.UUID) (*types.Payment, error) {
	payment := new(types.Payment)

	err := r.db.NewSelect().
		Model(payment).
		Where("reaction_id = ?", reactionID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get payment for reaction %s: %w", reactionID, err)
	}

	return payment, nil
}

// CountByContent returns the number of payment rows for a content entity.
func (r *PaymentModel) CountByContent(ctx context.Context, contentID uint64) (int, error) {
	count, err := r.db.NewSelect().
		Model((*types.Payment)(nil)).
		Where("content_id = ?", contentID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count payments for content %d: %w", contentID, err)
	}

	return count, nil
}

// UpsertEarnings sets the earnings total for a (content, unit) pair.
func (r *PaymentModel) UpsertEarnings(ctx context.Context, contentID uint64, unit string, total float64) error {
	earnings := &types.ContentEarnings{
		ContentID:   contentID,
		Unit:        unit,
		TotalAmount: total,
		UpdatedAt:   time.Now(),
	}

	_, err := r.db.NewInsert().
		Model(earnings).
		On("CONFLICT (content_id, unit) DO UPDATE").
		Set("total_amount = EXCLUDED.total_amount").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert earnings for content %d unit %s: %w", contentID, unit, err)
	}

	return nil
}

// Earnings returns the earnings row for a (content, unit) pair, or nil
// when none exists.
func (r *PaymentModel) Earnings(ctx context.Context, contentID uint64, unit string) (*types.ContentEarnings, error) {
	earnings := new(types.ContentEarnings)

	err := r.db.NewSelect().
		Model(earnings).
		Where("content_id = ?", contentID).
		Where("unit = ?", unit).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get earnings for content %d unit %s: %w", contentID, unit, err)
	}

	return earnings, nil
}

// DeleteByContent removes all payment and earnings rows for a content
// entity. Used by the discrepancy reset inside a transaction.
func (r *PaymentModel) DeleteByContent(ctx context.Context, tx bun.Tx, contentID uint64) error {
	if _, err := tx.NewDelete().
		Model((*types.Payment)(nil)).
		Where("content_id = ?", contentID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete payments for content %d: %w", contentID, err)
	}

	if _, err := tx.NewDelete().
		Model((*types.ContentEarnings)(nil)).
		Where("content_id = ?", contentID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete earnings for content %d: %w", contentID, err)
	}

	return nil
}
