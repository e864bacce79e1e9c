package database

import (
	"github.com/lorekeep/curator/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all model operations.
type Repository struct {
	content  *models.ContentModel
	reaction *models.ReactionModel
	payment  *models.PaymentModel
	emoji    *models.EmojiModel
	user     *models.UserModel
}

// NewRepository creates a repository with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		content:  models.NewContent(db, logger),
		reaction: models.NewReaction(db, logger),
		payment:  models.NewPayment(db, logger),
		emoji:    models.NewEmoji(db, logger),
		user:     models.NewUser(db, logger),
	}
}

// Content returns the content model repository.
func (r *Repository) Content() *models.ContentModel {
	return r.content
}

// Reaction returns the reaction model repository.
func (r *Repository) Reaction() *models.ReactionModel {
	return r.reaction
}

// Payment returns the payment model repository.
func (r *Repository) Payment() *models.PaymentModel {
	return r.payment
}

// Emoji returns the emoji model repository.
func (r *Repository) Emoji() *models.EmojiModel {
	return r.emoji
}

// User returns the user model repository.
func (r *Repository) User() *models.UserModel {
	return r.user
}
