package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lorekeep/curator/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ErrRuleNotFound is returned when an emoji has no rule of the requested kind.
var ErrRuleNotFound = errors.New("emoji rule not found")

// EmojiModel handles database operations for emojis and their rule tables.
type EmojiModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewEmoji creates a new emoji model.
func NewEmoji(db *bun.DB, logger *zap.Logger) *EmojiModel {
	return &EmojiModel{
		db:     db,
		logger: logger.Named("db_emoji"),
	}
}

// Upsert registers an emoji identity, keeping the first-seen row on conflict.
func (r *EmojiModel) Upsert(ctx context.Context, emoji *types.Emoji) error {
	if emoji.CreatedAt.IsZero() {
		emoji.CreatedAt = time.Now()
	}

	_, err := r.db.NewInsert().
		Model(emoji).
		On("CONFLICT (key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert emoji %s: %w", emoji.Key, err)
	}

	return nil
}

// CategoryRule returns the category rule for an emoji key.
func (r *EmojiModel) CategoryRule(ctx context.Context, emojiKey string) (*types.CategoryRule, error) {
	rule := new(types.CategoryRule)

	err := r.db.NewSelect().
		Model(rule).
		Where("emoji_key = ?", emojiKey).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRuleNotFound
		}

		return nil, fmt.Errorf("failed to get category rule for %s: %w", emojiKey, err)
	}

	return rule, nil
}

// PaymentRule returns the payment rule for an emoji key.
func (r *EmojiModel) PaymentRule(ctx context.Context, emojiKey string) (*types.PaymentRule, error) {
	rule := new(types.PaymentRule)

	err := r.db.NewSelect().
		Model(rule).
		Where("emoji_key = ?", emojiKey).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRuleNotFound
		}

		return nil, fmt.Errorf("failed to get payment rule for %s: %w", emojiKey, err)
	}

	return rule, nil
}

// UpsertCategoryRule inserts or updates a category rule.
func (r *EmojiModel) UpsertCategoryRule(ctx context.Context, rule *types.CategoryRule) error {
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}

	_, err := r.db.NewInsert().
		Model(rule).
		On("CONFLICT (emoji_key) DO UPDATE").
		Set("category = EXCLUDED.category").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert category rule for %s: %w", rule.EmojiKey, err)
	}

	return nil
}

// UpsertPaymentRule inserts or updates a payment rule.
func (r *EmojiModel) UpsertPaymentRule(ctx context.Context, rule *types.PaymentRule) error {
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}

	_, err := r.db.NewInsert().
		Model(rule).
		On("CONFLICT (emoji_key) DO UPDATE").
		Set("amount = EXCLUDED.amount").
		Set("unit = EXCLUDED.unit").
		Set("funding_source = EXCLUDED.funding_source").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert payment rule for %s: %w", rule.EmojiKey, err)
	}

	return nil
}
