package curation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lorekeep/curator/internal/database/types"
	"github.com/lorekeep/curator/internal/database/types/enum"
	"go.uber.org/zap"
)

// Category names with special payment gating.
const (
	NonAngloCategory     = "Non Anglo"
	TranslationsCategory = "Translations"
)

var paymentAddPostHandler = &Handler{
	Name:            "payment_add_post",
	recordsReaction: true,
	permit: func(ctx context.Context, c *Curator, env *env) error {
		if err := permitPostPayment(ctx, c, env); err != nil {
			return err
		}

		return permitConsistentFunding(ctx, c, env)
	},
	process: processPayment,
}

var paymentAddOddJobHandler = &Handler{
	Name:            "payment_add_oddjob",
	recordsReaction: true,
	permit: func(ctx context.Context, c *Curator, env *env) error {
		if env.content == nil || env.event.UserID != env.content.ManagerID {
			return denyf("only the odd-job manager can pay this entry")
		}

		return permitConsistentFunding(ctx, c, env)
	},
	process: processPayment,
}

var paymentAddThreadHandler = &Handler{
	Name:            "payment_add_thread",
	recordsReaction: true,
	// Thread payments are superuser-only by dispatch already; only the
	// funding consistency rule applies.
	permit:  permitConsistentFunding,
	process: processThreadPayment,
}

var paymentRemoveHandler = &Handler{
	Name:            "payment_remove",
	recordsReaction: true,
	process:         processPaymentRemoval,
}

var universalPublishHandler = &Handler{
	Name:            "universal_publish",
	recordsReaction: true,
	permit: func(ctx context.Context, c *Curator, env *env) error {
		count, err := c.store.CountPayments(ctx, env.event.MessageID)
		if err != nil {
			return fmt.Errorf("failed to count payments: %w", err)
		}

		if count > 0 {
			return denyf("this content already has payments recorded; the publish emoji no longer applies")
		}

		return nil
	},
	process: func(ctx context.Context, c *Curator, env *env) error {
		if env.content == nil {
			if err := materializeThread(ctx, c, env); err != nil {
				return err
			}
		}

		if env.content.IsPublished {
			return nil
		}

		if err := c.store.SetPublished(ctx, env.content.MessageID, true); err != nil {
			return fmt.Errorf("failed to publish content: %w", err)
		}

		env.content.IsPublished = true

		c.logger.Info("Content published via universal emoji",
			zap.Uint64("contentID", env.content.MessageID),
			zap.Uint64("by", env.event.UserID))

		return nil
	},
}

var universalRemoveHandler = &Handler{
	Name:            "universal_remove",
	recordsReaction: true,
	process: func(ctx context.Context, c *Curator, env *env) error {
		if env.content == nil {
			return nil
		}

		// The universal emoji only ever published payment-free content;
		// removing it unpublishes unless real payments arrived since.
		count, err := c.store.CountPayments(ctx, env.content.MessageID)
		if err != nil {
			return fmt.Errorf("failed to count payments: %w", err)
		}

		if count > 0 || !env.content.IsPublished {
			return nil
		}

		if err := c.store.SetPublished(ctx, env.content.MessageID, false); err != nil {
			return fmt.Errorf("failed to unpublish content: %w", err)
		}

		env.content.IsPublished = false

		return nil
	},
}

// permitPostPayment gates post payments on completeness: title, body, at
// least one category, a country-flag reaction for Non Anglo posts, and a
// Non Anglo category for Translations posts.
func permitPostPayment(ctx context.Context, c *Curator, env *env) error {
	content := env.content
	if content == nil {
		return fmt.Errorf("%w: content row for post %d", ErrNotFound, env.event.MessageID)
	}

	if content.Title == "" || content.Body == "" {
		return denyf("the post needs a title and a description before it can be paid")
	}

	categories, err := c.store.Categories(ctx, content.MessageID)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	if len(categories) == 0 {
		return denyf("the post needs at least one category before it can be paid")
	}

	if slices.Contains(categories, NonAngloCategory) {
		flagged, err := hasCountryFlagReaction(ctx, c, env)
		if err != nil {
			return err
		}

		if !flagged {
			return denyf("a %s post needs a country flag reaction before it can be paid", NonAngloCategory)
		}
	}

	if slices.Contains(categories, TranslationsCategory) && !slices.Contains(categories, NonAngloCategory) {
		return denyf("a %s post also needs the %s category", TranslationsCategory, NonAngloCategory)
	}

	return nil
}

// permitConsistentFunding enforces that every payment on one content
// entity shares the unit and funding source of its first-ever payment.
func permitConsistentFunding(ctx context.Context, c *Curator, env *env) error {
	rule := env.class.PaymentRule
	if rule == nil {
		return fmt.Errorf("%w: payment rule for %s", ErrRuleMissing, env.event.Emoji.Key())
	}

	first, err := c.store.FirstPayment(ctx, env.event.MessageID)
	if err != nil {
		return fmt.Errorf("failed to load first payment: %w", err)
	}

	if first != nil && (first.Unit != rule.Unit || first.FundingSource != rule.FundingSource) {
		return denyf("payments on this content use %s from %s; %s from %s cannot be mixed in",
			first.Unit, first.FundingSource, rule.Unit, rule.FundingSource)
	}

	return nil
}

// hasCountryFlagReaction checks the external reaction set for any
// country flag emoji.
func hasCountryFlagReaction(ctx context.Context, c *Curator, env *env) (bool, error) {
	set, err := c.gateway.ReactionSet(ctx, env.event.ChannelID, env.event.MessageID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch reaction set: %w", err)
	}

	for _, group := range set.Groups {
		if IsCountryFlag(group.Emoji) {
			return true, nil
		}
	}

	return false, nil
}

// processPayment records the payment, bumps the earnings aggregate, and
// publishes the content when it is not published yet.
func processPayment(ctx context.Context, c *Curator, env *env) error {
	rule := env.class.PaymentRule
	if rule == nil {
		return fmt.Errorf("%w: payment rule for %s", ErrRuleMissing, env.event.Emoji.Key())
	}

	// The reaction row survives duplicate deliveries of the same add; a
	// payment already attached to it means this event was handled before.
	existing, err := c.store.PaymentByReaction(ctx, env.reaction.ID)
	if err != nil {
		return fmt.Errorf("failed to check for existing payment: %w", err)
	}

	if existing != nil {
		return nil
	}

	if err := c.ledger.Add(ctx, env.content.MessageID, rule.Unit, rule.Amount); err != nil {
		return err
	}

	if err := c.store.CreatePayment(ctx, &types.Payment{
		ReactionID:    env.reaction.ID,
		ContentID:     env.content.MessageID,
		Amount:        rule.Amount,
		Unit:          rule.Unit,
		FundingSource: rule.FundingSource,
	}); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	if !env.content.IsPublished {
		if err := c.store.SetPublished(ctx, env.content.MessageID, true); err != nil {
			return fmt.Errorf("failed to publish content: %w", err)
		}

		env.content.IsPublished = true
	}

	c.logger.Info("Payment recorded",
		zap.Uint64("contentID", env.content.MessageID),
		zap.Float64("amount", rule.Amount),
		zap.String("unit", rule.Unit),
		zap.String("fundingSource", rule.FundingSource),
		zap.Uint64("by", env.event.UserID))

	return nil
}

// processThreadPayment materializes the thread content row on its first
// payment, then proceeds as a post payment.
func processThreadPayment(ctx context.Context, c *Curator, env *env) error {
	if env.content == nil {
		if err := materializeThread(ctx, c, env); err != nil {
			return err
		}
	}

	return processPayment(ctx, c, env)
}

// materializeThread creates the lazily-deferred thread content row and,
// when the thread's root post is itself unknown, a stub parent post.
// A Discord thread shares its id with the root message in the parent
// channel, which is what the stub is keyed by.
func materializeThread(ctx context.Context, c *Curator, env *env) error {
	rootID := env.event.ChannelID

	if env.event.MessageID != rootID {
		_, err := c.store.ContentByID(ctx, rootID)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("failed to load thread root post: %w", err)
			}

			stub := &types.Content{
				MessageID: rootID,
				Kind:      enum.ContentKindPost,
				ChannelID: env.parentID,
				GuildID:   env.event.GuildID,
				CreatedAt: time.Now(),
			}
			if err := c.store.SaveContent(ctx, stub); err != nil {
				return fmt.Errorf("failed to create stub parent post: %w", err)
			}

			c.logger.Debug("Created stub parent post for thread",
				zap.Uint64("rootID", rootID),
				zap.Uint64("threadMessageID", env.event.MessageID))
		}
	}

	msg, err := env.message(ctx, c)
	if err != nil {
		return err
	}

	title, body, _ := c.parser.Parse(msg)

	content := &types.Content{
		MessageID:      env.event.MessageID,
		Kind:           enum.ContentKindThread,
		ChannelID:      env.event.ChannelID,
		GuildID:        env.event.GuildID,
		Title:          title,
		Body:           body,
		ThreadParentID: rootID,
		CreatedAt:      time.Now(),
	}

	if err := c.store.SaveContent(ctx, content); err != nil {
		return fmt.Errorf("failed to materialize thread content: %w", err)
	}

	env.content = content

	return nil
}

// processPaymentRemoval recomputes the affected unit's earnings from the
// remaining reactions and unpublishes when no payment reaction is left.
func processPaymentRemoval(ctx context.Context, c *Curator, env *env) error {
	if env.content == nil {
		return nil
	}

	rule := env.class.PaymentRule
	if rule == nil {
		return fmt.Errorf("%w: payment rule for %s", ErrRuleMissing, env.event.Emoji.Key())
	}

	remaining, err := c.ledger.Recompute(ctx, env.content.MessageID, rule.Unit)
	if err != nil {
		return err
	}

	if remaining == 0 && env.content.IsPublished {
		if err := c.store.SetPublished(ctx, env.content.MessageID, false); err != nil {
			return fmt.Errorf("failed to unpublish content: %w", err)
		}

		env.content.IsPublished = false

		c.logger.Info("Content unpublished, last payment reaction removed",
			zap.Uint64("contentID", env.content.MessageID))
	}

	return nil
}
