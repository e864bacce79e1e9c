package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lorekeep/curator/internal/curation"
	"github.com/lorekeep/curator/internal/database/dbretry"
	"github.com/lorekeep/curator/internal/database/models"
	"github.com/lorekeep/curator/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// CurationStore adapts the repository to the curation.Store interface,
// wrapping calls with the retry policy.
type CurationStore struct {
	db     *bun.DB
	repo   *Repository
	logger *zap.Logger
}

var _ curation.Store = (*CurationStore)(nil)

// NewCurationStore creates the store adapter for the curation core.
func NewCurationStore(client Client, logger *zap.Logger) *CurationStore {
	return &CurationStore{
		db:     client.DB(),
		repo:   client.Model(),
		logger: logger.Named("store"),
	}
}

// ContentByID returns a content row, mapping absence to curation.ErrNotFound.
func (s *CurationStore) ContentByID(ctx context.Context, messageID uint64) (*types.Content, error) {
	content, err := dbretry.Operation(ctx, func(ctx context.Context) (*types.Content, error) {
		return s.repo.Content().GetByMessageID(ctx, messageID)
	})
	if err != nil {
		if errors.Is(err, models.ErrContentNotFound) {
			return nil, curation.ErrNotFound
		}

		return nil, err
	}

	return content, nil
}

func (s *CurationStore) SaveContent(ctx context.Context, content *types.Content) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return s.repo.Content().Upsert(ctx, content)
	})
}

func (s *CurationStore) SetPublished(ctx context.Context, messageID uint64, published bool) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return s.repo.Content().SetPublished(ctx, messageID, published)
	})
}

func (s *CurationStore) SetFeatured(ctx context.Context, messageID uint64, featured bool) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return s.repo.Content().SetFeatured(ctx, messageID, featured)
	})
}

func (s *CurationStore) Categories(ctx context.Context, contentID uint64) ([]string, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]string, error) {
		return s.repo.Content().Categories(ctx, contentID)
	})
}

func (s *CurationStore) AddCategory(ctx context.Context, contentID uint64, name string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return s.repo.Content().AddCategory(ctx, contentID, name)
	})
}

func (s *CurationStore) RemoveCategory(ctx context.Context, contentID uint64, name string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return s.repo.Content().RemoveCategory(ctx, contentID, name)
	})
}

func (s *CurationStore) ReplaceCategories(ctx context.Context, contentID uint64, names []string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return s.repo.Content().ReplaceCategories(ctx, contentID, names)
	})
}

func (s *CurationStore) UpsertReaction(ctx context.Context, contentID, userID uint64, emojiKey string) (*types.Reaction, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Reaction, error) {
		return s.repo.Reaction().Upsert(ctx, contentID, userID, emojiKey)
	})
}

func (s *CurationStore) DeleteReaction(ctx context.Context, contentID, userID uint64, emojiKey string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return s.repo.Reaction().Delete(ctx, contentID, userID, emojiKey)
	})
}

func (s *CurationStore) ReactionsByContent(ctx context.Context, contentID uint64) ([]*types.Reaction, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Reaction, error) {
		return s.repo.Reaction().GetByContent(ctx, contentID)
	})
}

func (s *CurationStore) CountReactions(ctx context.Context, contentID uint64) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		return s.repo.Reaction().CountByContent(ctx, contentID)
	})
}

func (s *CurationStore) CreatePayment(ctx context.Context, payment *types.Payment) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return s.repo.Payment().Create(ctx, payment)
	})
}

func (s *CurationStore) FirstPayment(ctx context.Context, contentID uint64) (*types.Payment, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Payment, error) {
		return s.repo.Payment().First(ctx, contentID)
	})
}

func (s *CurationStore) PaymentByReaction(ctx context.Context, reactionID uuid.UUID) (*types.Payment, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Payment, error) {
		return s.repo.Payment().GetByReaction(ctx, reactionID)
	})
}

func (s *CurationStore) CountPayments(ctx context.Context, contentID uint64) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		return s.repo.Payment().CountByContent(ctx, contentID)
	})
}

func (s *CurationStore) UpsertEarnings(ctx context.Context, contentID uint64, unit string, total float64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return s.repo.Payment().UpsertEarnings(ctx, contentID, unit, total)
	})
}

func (s *CurationStore) Earnings(ctx context.Context, contentID uint64, unit string) (*types.ContentEarnings, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ContentEarnings, error) {
		return s.repo.Payment().Earnings(ctx, contentID, unit)
	})
}

func (s *CurationStore) UpsertUser(ctx context.Context, user *types.User) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return s.repo.User().Upsert(ctx, user)
	})
}

func (s *CurationStore) UpsertEmoji(ctx context.Context, emoji *types.Emoji) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return s.repo.Emoji().Upsert(ctx, emoji)
	})
}

func (s *CurationStore) CategoryRule(ctx context.Context, emojiKey string) (*types.CategoryRule, error) {
	rule, err := dbretry.Operation(ctx, func(ctx context.Context) (*types.CategoryRule, error) {
		return s.repo.Emoji().CategoryRule(ctx, emojiKey)
	})
	if err != nil {
		if errors.Is(err, models.ErrRuleNotFound) {
			return nil, curation.ErrNotFound
		}

		return nil, err
	}

	return rule, nil
}

func (s *CurationStore) PaymentRule(ctx context.Context, emojiKey string) (*types.PaymentRule, error) {
	rule, err := dbretry.Operation(ctx, func(ctx context.Context) (*types.PaymentRule, error) {
		return s.repo.Emoji().PaymentRule(ctx, emojiKey)
	})
	if err != nil {
		if errors.Is(err, models.ErrRuleNotFound) {
			return nil, curation.ErrNotFound
		}

		return nil, err
	}

	return rule, nil
}

// ResetContent atomically deletes all reaction, payment and earnings
// rows of a content entity. Used by the discrepancy reset; either
// everything goes or nothing does.
func (s *CurationStore) ResetContent(ctx context.Context, contentID uint64) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Reaction().DeleteByContent(ctx, tx, contentID); err != nil {
			return err
		}

		return s.repo.Payment().DeleteByContent(ctx, tx, contentID)
	})
	if err != nil {
		return fmt.Errorf("failed to reset content %d: %w", contentID, err)
	}

	s.logger.Info("Reset content reaction state", zap.Uint64("contentID", contentID))

	return nil
}
