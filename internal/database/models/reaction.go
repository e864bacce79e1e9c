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

// ErrReactionNotFound is returned when no reaction row matches a triple.
var ErrReactionNotFound = errors.New("reaction not found")

// ReactionModel handles database operations for reaction rows.
type ReactionModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewReaction creates a new reaction model.
func NewReaction(db *bun.DB, logger *zap.Logger) *ReactionModel {
	return &ReactionModel{
		db:     db,
		logger: logger.Named("db_reaction"),
	}
}

// Upsert inserts a reaction row for the (content, user, emoji) triple and
// returns the stored row. When the triple already exists the existing row
// is returned unchanged, keeping the add path idempotent.
func (r *ReactionModel) Upsert(ctx context.Context, contentID, userID uint64, emojiKey string) (*types.Reaction, error) {
	reaction := &types.Reaction{
		ID:        uuid.New(),
		ContentID: contentID,
		UserID:    userID,
		EmojiKey:  emojiKey,
		CreatedAt: time.Now(),
	}

	_, err := r.db.NewInsert().
		Model(reaction).
		On("CONFLICT (content_id, user_id, emoji_key) DO UPDATE").
		Set("emoji_key = EXCLUDED.emoji_key").
		Returning("id, created_at").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert reaction (%d, %d, %s): %w", contentID, userID, emojiKey, err)
	}

	return reaction, nil
}

// Get retrieves the reaction row for a (content, user, emoji) triple.
func (r *ReactionModel) Get(ctx context.Context, contentID, userID uint64, emojiKey string) (*types.Reaction, error) {
	reaction := new(types.Reaction)

	err := r.db.NewSelect().
		Model(reaction).
		Where("content_id = ?", contentID).
		Where("user_id = ?", userID).
		Where("emoji_key = ?", emojiKey).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReactionNotFound
		}

		return nil, fmt.Errorf("failed to get reaction (%d, %d, %s): %w", contentID, userID, emojiKey, err)
	}

	return reaction, nil
}

// Delete removes the reaction row for a (content, user, emoji) triple.
func (r *ReactionModel) Delete(ctx context.Context, contentID, userID uint64, emojiKey string) error {
	_, err := r.db.NewDelete().
		Model((*types.Reaction)(nil)).
		Where("content_id = ?", contentID).
		Where("user_id = ?", userID).
		Where("emoji_key = ?", emojiKey).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete reaction (%d, %d, %s): %w", contentID, userID, emojiKey, err)
	}

	return nil
}

// GetByContent returns all reaction rows recorded for a content entity.
func (r *ReactionModel) GetByContent(ctx context.Context, contentID uint64) ([]*types.Reaction, error) {
	var reactions []*types.Reaction

	err := r.db.NewSelect().
		Model(&reactions).
		Where("content_id = ?", contentID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get reactions for content %d: %w", contentID, err)
	}

	return reactions, nil
}

// CountByContent returns the number of reaction rows for a content entity.
func (r *ReactionModel) CountByContent(ctx context.Context, contentID uint64) (int, error) {
	count, err := r.db.NewSelect().
		Model((*types.Reaction)(nil)).
		Where("content_id = ?", contentID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count reactions for content %d: %w", contentID, err)
	}

	return count, nil
}

// DeleteByContent removes all reaction rows for a content entity.
// Used by the discrepancy reset inside a transaction.
func (r *ReactionModel) DeleteByContent(ctx context.Context, tx bun.Tx, contentID uint64) error {
	_, err := tx.NewDelete().
		Model((*types.Reaction)(nil)).
		Where("content_id = ?", contentID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete reactions for content %d: %w", contentID, err)
	}

	return nil
}
