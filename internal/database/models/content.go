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

// ErrContentNotFound is returned when no content row exists for a message.
var ErrContentNotFound = errors.New("content not found")

// ContentModel handles database operations for content entities.
type ContentModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewContent creates a new content model.
func NewContent(db *bun.DB, logger *zap.Logger) *ContentModel {
	return &ContentModel{
		db:     db,
		logger: logger.Named("db_content"),
	}
}

// GetByMessageID retrieves a content row by its originating message ID.
func (r *ContentModel) GetByMessageID(ctx context.Context, messageID uint64) (*types.Content, error) {
	content := new(types.Content)

	err := r.db.NewSelect().
		Model(content).
		Where("message_id = ?", messageID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContentNotFound
		}

		return nil, fmt.Errorf("failed to get content %d: %w", messageID, err)
	}

	return content, nil
}

// Upsert inserts or updates a content row.
func (r *ContentModel) Upsert(ctx context.Context, content *types.Content) error {
	now := time.Now()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}

	content.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(content).
		On("CONFLICT (message_id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("body = EXCLUDED.body").
		Set("manager_id = EXCLUDED.manager_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert content %d: %w", content.MessageID, err)
	}

	return nil
}

// SetPublished updates the publish state of a content row.
func (r *ContentModel) SetPublished(ctx context.Context, messageID uint64, published bool) error {
	_, err := r.db.NewUpdate().
		Model((*types.Content)(nil)).
		Set("is_published = ?", published).
		Set("updated_at = ?", time.Now()).
		Where("message_id = ?", messageID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set published=%t on content %d: %w", published, messageID, err)
	}

	return nil
}

// SetFeatured updates the featured state of a content row.
func (r *ContentModel) SetFeatured(ctx context.Context, messageID uint64, featured bool) error {
	_, err := r.db.NewUpdate().
		Model((*types.Content)(nil)).
		Set("is_featured = ?", featured).
		Set("updated_at = ?", time.Now()).
		Where("message_id = ?", messageID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set featured=%t on content %d: %w", featured, messageID, err)
	}

	return nil
}

// Categories returns the category names assigned to a content entity.
func (r *ContentModel) Categories(ctx context.Context, contentID uint64) ([]string, error) {
	var names []string

	err := r.db.NewSelect().
		Model((*types.ContentCategory)(nil)).
		Column("name").
		Where("content_id = ?", contentID).
		Order("created_at ASC").
		Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories for content %d: %w", contentID, err)
	}

	return names, nil
}

// AddCategory assigns a category to a content entity.
func (r *ContentModel) AddCategory(ctx context.Context, contentID uint64, name string) error {
	category := &types.ContentCategory{
		ContentID: contentID,
		Name:      name,
		CreatedAt: time.Now(),
	}

	_, err := r.db.NewInsert().
		Model(category).
		On("CONFLICT (content_id, name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add category %q to content %d: %w", name, contentID, err)
	}

	return nil
}

// RemoveCategory removes a category assignment from a content entity.
func (r *ContentModel) RemoveCategory(ctx context.Context, contentID uint64, name string) error {
	_, err := r.db.NewDelete().
		Model((*types.ContentCategory)(nil)).
		Where("content_id = ?", contentID).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove category %q from content %d: %w", name, contentID, err)
	}

	return nil
}

// ReplaceCategories replaces the full category set of a content entity.
func (r *ContentModel) ReplaceCategories(ctx context.Context, contentID uint64, names []string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*types.ContentCategory)(nil)).
			Where("content_id = ?", contentID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear categories for content %d: %w", contentID, err)
		}

		now := time.Now()
		for _, name := range names {
			category := &types.ContentCategory{
				ContentID: contentID,
				Name:      name,
				CreatedAt: now,
			}

			if _, err := tx.NewInsert().Model(category).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert category %q for content %d: %w", name, contentID, err)
			}
		}

		return nil
	})
}
