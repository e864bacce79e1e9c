package curation

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

var categoryAddHandler = &Handler{
	Name:            "category_add",
	recordsReaction: true,
	// A post cannot carry the Non Anglo category without a country flag
	// reaction identifying the language.
	permit: func(ctx context.Context, c *Curator, env *env) error {
		rule := env.class.CategoryRule
		if rule == nil {
			return fmt.Errorf("%w: category rule for %s", ErrRuleMissing, env.event.Emoji.Key())
		}

		if rule.Category != NonAngloCategory {
			return nil
		}

		flagged, err := hasCountryFlagReaction(ctx, c, env)
		if err != nil {
			return err
		}

		if !flagged {
			return denyf("a post needs a country flag reaction before it can be categorized %s", NonAngloCategory)
		}

		return nil
	},
	process: func(ctx context.Context, c *Curator, env *env) error {
		rule := env.class.CategoryRule
		if rule == nil {
			return fmt.Errorf("%w: category rule for %s", ErrRuleMissing, env.event.Emoji.Key())
		}

		// Count the category emojis currently attached externally. With
		// exactly one, replace the whole set: this self-heals a category
		// list that drifted from the visible reactions.
		attached, err := countCategoryEmojis(ctx, c, env)
		if err != nil {
			return err
		}

		if attached == 1 {
			if err := c.store.ReplaceCategories(ctx, env.content.MessageID, []string{rule.Category}); err != nil {
				return fmt.Errorf("failed to replace categories: %w", err)
			}

			c.logger.Info("Category set replaced",
				zap.Uint64("contentID", env.content.MessageID),
				zap.String("category", rule.Category))

			return nil
		}

		if err := c.store.AddCategory(ctx, env.content.MessageID, rule.Category); err != nil {
			return fmt.Errorf("failed to add category: %w", err)
		}

		c.logger.Info("Category added",
			zap.Uint64("contentID", env.content.MessageID),
			zap.String("category", rule.Category))

		return nil
	},
}

var categoryRemoveHandler = &Handler{
	Name:            "category_remove",
	recordsReaction: true,
	process: func(ctx context.Context, c *Curator, env *env) error {
		rule := env.class.CategoryRule
		if rule == nil {
			return fmt.Errorf("%w: category rule for %s", ErrRuleMissing, env.event.Emoji.Key())
		}

		categories, err := c.store.Categories(ctx, env.content.MessageID)
		if err != nil {
			return fmt.Errorf("failed to load categories: %w", err)
		}

		if !slices.Contains(categories, rule.Category) {
			return nil
		}

		// A published post must always show at least one category on the
		// public site. Keep the last one and flag the disagreement.
		if len(categories) == 1 && env.content.IsPublished {
			warning := fmt.Sprintf(
				"Category %q was unreacted from published content %d but is its last category; keeping it. %s",
				rule.Category, env.content.MessageID, env.permalink())

			c.logger.Warn("Kept last category on published content",
				zap.Uint64("contentID", env.content.MessageID),
				zap.String("category", rule.Category))

			if err := c.gateway.NotifyLog(ctx, warning); err != nil {
				c.logger.Error("Failed to post category warning", zap.Error(err))
			}

			return nil
		}

		if err := c.store.RemoveCategory(ctx, env.content.MessageID, rule.Category); err != nil {
			return fmt.Errorf("failed to remove category: %w", err)
		}

		c.logger.Info("Category removed",
			zap.Uint64("contentID", env.content.MessageID),
			zap.String("category", rule.Category))

		return nil
	},
}

// countCategoryEmojis counts how many distinct category emojis are
// currently attached to the message in the external reaction set.
func countCategoryEmojis(ctx context.Context, c *Curator, env *env) (int, error) {
	set, err := c.gateway.ReactionSet(ctx, env.event.ChannelID, env.event.MessageID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch reaction set: %w", err)
	}

	count := 0

	for _, group := range set.Groups {
		if len(group.UserIDs) == 0 {
			continue
		}

		_, err := c.store.CategoryRule(ctx, group.Emoji.Key())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}

			return 0, fmt.Errorf("failed to look up category rule for %s: %w", group.Emoji.Key(), err)
		}

		count++
	}

	return count, nil
}
