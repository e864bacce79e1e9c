package curation

import (
	"context"
	"errors"

	"github.com/lorekeep/curator/internal/database/types/enum"
	"go.uber.org/zap"
)

// Config holds the externally configured rule surface of the curator.
type Config struct {
	// Channel/category ids monitored for posts.
	PostChannels []uint64
	// Channel/category ids monitored for odd-jobs.
	OddJobChannels []uint64
	// Role names whose holders are superusers.
	SuperuserRoles []string
	// Reserved feature-marker emoji key.
	FeatureEmoji string
	// Reserved universal-publish emoji key.
	UniversalPublishEmoji string
}

// Curator turns reaction events into content state transitions. Events
// are processed one at a time, start to finish, on a single goroutine,
// matching the platform's one-event-at-a-time delivery.
type Curator struct {
	store   Store
	gateway Gateway
	parser  Parser
	tracker *Tracker

	emojis   *EmojiClassifier
	contents *ContentClassifier
	roles    *RoleResolver
	ledger   *Ledger
	resolver *Resolver

	events chan Event
	logger *zap.Logger
}

// New creates a curator wired to its collaborators.
func New(store Store, gateway Gateway, parser Parser, tracker *Tracker, cfg Config, logger *zap.Logger) *Curator {
	logger = logger.Named("curation")

	c := &Curator{
		store:    store,
		gateway:  gateway,
		parser:   parser,
		tracker:  tracker,
		emojis:   NewEmojiClassifier(store, cfg.FeatureEmoji, cfg.UniversalPublishEmoji),
		contents: NewContentClassifier(cfg.PostChannels, cfg.OddJobChannels),
		roles:    NewRoleResolver(gateway, cfg.SuperuserRoles, logger),
		ledger:   NewLedger(store, logger),
		events:   make(chan Event, 256),
		logger:   logger,
	}
	c.resolver = newResolver(c, logger)

	return c
}

// Enqueue hands an observed reaction event to the processing loop.
func (c *Curator) Enqueue(ev Event) {
	c.events <- ev
}

// Run consumes events until the context is canceled.
func (c *Curator) Run(ctx context.Context) {
	c.logger.Info("Curation loop started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Curation loop stopped")
			return
		case ev := <-c.events:
			c.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent runs the full live pipeline for one event: self-retraction
// filtering, content classification, discrepancy checking, then dispatch.
func (c *Curator) HandleEvent(ctx context.Context, ev Event) {
	// The platform echoes the curator's own corrective removals back as
	// remove events; the tracker suppresses exactly those.
	if ev.Direction == enum.DirectionRemove {
		own, err := c.tracker.Consume(ctx, ev.MessageID, ev.UserID, ev.Emoji.Key())
		if err != nil {
			c.logger.Error("Failed to check retraction tracker", zap.Error(err))
		} else if own {
			c.logger.Debug("Skipping echo of own retraction",
				zap.Uint64("contentID", ev.MessageID),
				zap.Uint64("userID", ev.UserID))

			return
		}
	}

	info, err := c.gateway.ChannelInfo(ctx, ev.ChannelID)
	if err != nil {
		c.logger.Error("Failed to fetch channel info, dropping event",
			zap.Uint64("channelID", ev.ChannelID),
			zap.Error(err))

		return
	}

	kind, parentID := c.contents.Classify(info)
	if kind == enum.ContentKindNone {
		return
	}

	consistent, err := c.resolver.Check(ctx, ev, kind)
	if err != nil {
		// Store or platform failure: abandon the event, the external
		// reaction stays and the next check self-heals.
		c.logger.Error("Discrepancy check failed, abandoning event",
			zap.Uint64("contentID", ev.MessageID),
			zap.Error(err))

		return
	}

	if !consistent {
		if err := c.resolver.Reconcile(ctx, ev, kind, parentID); err != nil {
			c.logger.Error("Reconciliation failed",
				zap.Uint64("contentID", ev.MessageID),
				zap.Error(err))
		}

		return
	}

	_ = c.processEvent(ctx, ev, kind, parentID)
}

// processEvent classifies, dispatches and runs one event through its
// handler. Shared by the live path and discrepancy replay.
func (c *Curator) processEvent(ctx context.Context, ev Event, kind enum.ContentKind, parentID uint64) error {
	class, err := c.emojis.Classify(ctx, ev.Emoji)
	if err != nil {
		c.logger.Error("Failed to classify emoji, dropping event",
			zap.String("emoji", ev.Emoji.Key()),
			zap.Error(err))

		return err
	}

	rank := c.roles.Resolve(ctx, ev.GuildID, ev.UserID)

	handler, err := Dispatch(kind, rank, class, ev.Direction)
	if err != nil {
		c.logger.Error("Dispatch failed, dropping event",
			zap.Uint64("contentID", ev.MessageID),
			zap.String("kind", kind.String()),
			zap.String("rank", rank.String()),
			zap.String("emojiKind", class.Kind.String()),
			zap.String("direction", ev.Direction.String()),
			zap.Error(err))

		return err
	}

	env := &env{
		event:    ev,
		kind:     kind,
		parentID: parentID,
		rank:     rank,
		class:    class,
	}

	err = c.runHandler(ctx, handler, env)
	if err == nil {
		c.logger.Debug("Event handled",
			zap.String("handler", handler.Name),
			zap.Uint64("contentID", ev.MessageID),
			zap.Uint64("userID", ev.UserID),
			zap.String("emoji", ev.Emoji.Key()),
			zap.String("direction", ev.Direction.String()))

		return nil
	}

	c.handleFailure(ctx, env, err)

	return err
}

// handleFailure applies the error taxonomy: permission denials notify
// the user and retract the reaction; failures after the reaction row was
// written retract and undo through the remove path; anything earlier is
// abandoned for the next discrepancy check to heal.
func (c *Curator) handleFailure(ctx context.Context, env *env, err error) {
	ev := env.event

	c.logger.Error("Handler failed",
		zap.Uint64("contentID", ev.MessageID),
		zap.Uint64("userID", ev.UserID),
		zap.String("emoji", ev.Emoji.Key()),
		zap.String("direction", ev.Direction.String()),
		zap.Error(err))

	if ev.Direction != enum.DirectionAdd {
		return
	}

	denied := errors.Is(err, ErrNotPermitted)
	if denied {
		if nerr := c.gateway.NotifyUser(ctx, ev.UserID, DenialReason(err), env.permalink()); nerr != nil {
			c.logger.Error("Failed to notify user", zap.Uint64("userID", ev.UserID), zap.Error(nerr))
		}
	}

	if !denied && env.reaction == nil {
		// Nothing was written yet; leave the external reaction alone and
		// let the next discrepancy check settle it.
		return
	}

	c.retract(ctx, ev)

	if env.reaction != nil {
		undo := ev
		undo.Direction = enum.DirectionRemove

		if uerr := c.processEvent(ctx, undo, env.kind, env.parentID); uerr != nil {
			c.logger.Error("Failed to undo partial reaction state",
				zap.Uint64("contentID", ev.MessageID),
				zap.Error(uerr))
		}
	}
}

// retract removes the user's reaction on the platform and registers the
// retraction so its echo event is suppressed.
func (c *Curator) retract(ctx context.Context, ev Event) {
	if err := c.tracker.Register(ctx, ev.MessageID, ev.UserID, ev.Emoji.Key()); err != nil {
		c.logger.Error("Failed to register retraction", zap.Error(err))
	}

	if err := c.gateway.RemoveReaction(ctx, ev.ChannelID, ev.MessageID, ev.Emoji, ev.UserID); err != nil {
		c.logger.Error("Failed to retract reaction",
			zap.Uint64("contentID", ev.MessageID),
			zap.Uint64("userID", ev.UserID),
			zap.Error(err))
	}
}
