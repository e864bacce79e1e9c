package curation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lorekeep/curator/internal/database/types"
	"github.com/lorekeep/curator/internal/database/types/enum"
)

// Handler applies one business rule to a reaction event. Handlers are
// assembled from small strategy funcs instead of an inheritance chain;
// the pipeline is initialize, permit, reaction row, process, post.
type Handler struct {
	// Name identifies the handler in logs and tests.
	Name string

	// recordsReaction controls whether the pipeline writes/deletes the
	// reaction row for this handler. False only for rejection handlers,
	// which must not touch the store.
	recordsReaction bool

	// permit validates role and content-state rules. Runs before any
	// store mutation; returning an error aborts the pipeline.
	permit func(ctx context.Context, c *Curator, env *env) error

	// process applies the handler's store mutations.
	process func(ctx context.Context, c *Curator, env *env) error

	// post runs cleanup/logging after a successful process.
	post func(ctx context.Context, c *Curator, env *env) error
}

// env carries the state one pipeline run resolves and caches.
type env struct {
	event    Event
	kind     enum.ContentKind
	parentID uint64 // thread parent channel id, 0 otherwise
	rank     enum.UserRank
	class    EmojiClass

	msg      *Message        // raw message, fetched lazily
	content  *types.Content  // nil for a not-yet-materialized thread
	reaction *types.Reaction // set once the reaction row is written
}

// permalink returns the platform link to the reacted message.
func (e *env) permalink() string {
	return fmt.Sprintf("https://discord.com/channels/%d/%d/%d",
		e.event.GuildID, e.event.ChannelID, e.event.MessageID)
}

// message fetches and caches the raw message backing the event.
func (e *env) message(ctx context.Context, c *Curator) (*Message, error) {
	if e.msg != nil {
		return e.msg, nil
	}

	msg, err := c.gateway.Message(ctx, e.event.ChannelID, e.event.MessageID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %d: %w", e.event.MessageID, err)
	}

	e.msg = msg

	return msg, nil
}

// runHandler executes the handler pipeline for one event.
func (c *Curator) runHandler(ctx context.Context, h *Handler, env *env) error {
	if err := c.initialize(ctx, h, env); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if h.permit != nil {
		if err := h.permit(ctx, c, env); err != nil {
			return err
		}
	}

	// The reaction row is written after permission passes and before the
	// handler's own mutations, so regular reactions need nothing further
	// and duplicate deliveries stay idempotent.
	if h.recordsReaction {
		switch env.event.Direction {
		case enum.DirectionAdd:
			reaction, err := c.store.UpsertReaction(ctx, env.event.MessageID, env.event.UserID, env.event.Emoji.Key())
			if err != nil {
				return fmt.Errorf("failed to record reaction: %w", err)
			}

			env.reaction = reaction
		case enum.DirectionRemove:
			if err := c.store.DeleteReaction(ctx, env.event.MessageID, env.event.UserID, env.event.Emoji.Key()); err != nil {
				return fmt.Errorf("failed to remove reaction row: %w", err)
			}
		}
	}

	if h.process != nil {
		if err := h.process(ctx, c, env); err != nil {
			return err
		}
	}

	if h.post != nil {
		if err := h.post(ctx, c, env); err != nil {
			return err
		}
	}

	return nil
}

// initialize resolves and caches the db user, the db emoji, and the
// content row. Posts and odd-jobs are lazily curated from the raw
// message when absent; threads stay absent until their first payment.
func (c *Curator) initialize(ctx context.Context, h *Handler, env *env) error {
	if !h.recordsReaction {
		return nil
	}

	if err := c.store.UpsertUser(ctx, &types.User{
		ID:       env.event.UserID,
		Username: env.event.Username,
	}); err != nil {
		return fmt.Errorf("failed to record user: %w", err)
	}

	if err := c.store.UpsertEmoji(ctx, &types.Emoji{
		Key:      env.event.Emoji.Key(),
		Name:     env.event.Emoji.Name,
		CustomID: env.event.Emoji.ID,
	}); err != nil {
		return fmt.Errorf("failed to record emoji: %w", err)
	}

	content, err := c.store.ContentByID(ctx, env.event.MessageID)
	if err == nil {
		env.content = content
		return nil
	}

	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to load content %d: %w", env.event.MessageID, err)
	}

	if env.kind == enum.ContentKindThread {
		// Materialized only by a payment handler.
		return nil
	}

	curated, err := c.curateContent(ctx, env)
	if err != nil {
		return err
	}

	env.content = curated

	return nil
}

// curateContent creates a content row from the raw message.
func (c *Curator) curateContent(ctx context.Context, env *env) (*types.Content, error) {
	msg, err := env.message(ctx, c)
	if err != nil {
		return nil, err
	}

	title, body, _ := c.parser.Parse(msg)

	content := &types.Content{
		MessageID: env.event.MessageID,
		Kind:      env.kind,
		ChannelID: env.event.ChannelID,
		GuildID:   env.event.GuildID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}

	// The author of an odd-job is the only user allowed to pay it.
	if env.kind == enum.ContentKindOddJob {
		content.ManagerID = msg.AuthorID
	}

	if err := c.store.SaveContent(ctx, content); err != nil {
		return nil, fmt.Errorf("failed to curate content %d: %w", env.event.MessageID, err)
	}

	return content, nil
}
