package curation

import (
	"context"
	"errors"
	"fmt"

	"github.com/lorekeep/curator/internal/database/types/enum"
	"go.uber.org/zap"
)

// Resolver reconciles the internal reaction record of a content entity
// with the authoritative external reaction set. It is a two-state
// machine, idle or resolving, process-wide: reconciliation is rare and
// fast relative to event cadence, so one at a time is enough.
type Resolver struct {
	curator   *Curator
	resolving bool
	logger    *zap.Logger
}

// newResolver creates the discrepancy resolver for a curator.
func newResolver(curator *Curator, logger *zap.Logger) *Resolver {
	return &Resolver{
		curator: curator,
		logger:  logger.Named("discrepancy"),
	}
}

// acquire flips the resolver into the resolving state and returns the
// release func. Callers must defer the release so no exit path, panic
// included, can leave the resolver stuck resolving.
func (r *Resolver) acquire() func() {
	r.resolving = true

	return func() { r.resolving = false }
}

// Check compares internal and external reaction counts for the event's
// content, allowing the expected ±1 delta of the in-flight event.
// Returns true when the state is consistent. Always consistent while a
// replay is running.
func (r *Resolver) Check(ctx context.Context, ev Event, kind enum.ContentKind) (bool, error) {
	if r.resolving {
		return true, nil
	}

	_, err := r.curator.store.ContentByID(ctx, ev.MessageID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return false, fmt.Errorf("failed to load content %d: %w", ev.MessageID, err)
		}

		// A missing row is normal only for a not-yet-materialized thread.
		if kind != enum.ContentKindThread {
			r.logger.Info("Content row missing, treating as discrepancy",
				zap.Uint64("contentID", ev.MessageID))

			return false, nil
		}
	}

	internal, err := r.curator.store.CountReactions(ctx, ev.MessageID)
	if err != nil {
		return false, fmt.Errorf("failed to count internal reactions: %w", err)
	}

	set, err := r.curator.gateway.ReactionSet(ctx, ev.ChannelID, ev.MessageID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch external reactions: %w", err)
	}

	expected := internal + 1
	if ev.Direction == enum.DirectionRemove {
		expected = internal - 1
	}

	external := set.TotalCount()
	if external != expected {
		r.logger.Info("Reaction count mismatch",
			zap.Uint64("contentID", ev.MessageID),
			zap.Int("internal", internal),
			zap.Int("external", external),
			zap.Int("expected", expected))

		return false, nil
	}

	return true, nil
}

// Reconcile clears the content's internal reaction state and replays the
// current external reaction set in platform-reported order through the
// normal dispatcher. The final internal state is a deterministic
// function of the external set alone.
func (r *Resolver) Reconcile(ctx context.Context, ev Event, kind enum.ContentKind, parentID uint64) error {
	release := r.acquire()
	defer release()

	r.logger.Warn("Reconciling content against external reactions",
		zap.Uint64("contentID", ev.MessageID))

	if err := r.curator.store.ResetContent(ctx, ev.MessageID); err != nil {
		return fmt.Errorf("failed to reset content %d: %w", ev.MessageID, err)
	}

	set, err := r.curator.gateway.ReactionSet(ctx, ev.ChannelID, ev.MessageID)
	if err != nil {
		return fmt.Errorf("failed to fetch external reactions: %w", err)
	}

	replayed := 0

	for _, group := range set.Groups {
		for _, userID := range group.UserIDs {
			synthetic := Event{
				GuildID:   ev.GuildID,
				ChannelID: ev.ChannelID,
				MessageID: ev.MessageID,
				UserID:    userID,
				Emoji:     group.Emoji,
				Direction: enum.DirectionAdd,
			}

			// Replay failures retract the offending reaction like any
			// other rejected event; the rest of the set still applies.
			if err := r.curator.processEvent(ctx, synthetic, kind, parentID); err != nil {
				r.logger.Error("Replay failed for reaction",
					zap.Uint64("contentID", ev.MessageID),
					zap.Uint64("userID", userID),
					zap.String("emoji", group.Emoji.Key()),
					zap.Error(err))

				continue
			}

			replayed++
		}
	}

	r.logger.Info("Reconciliation complete",
		zap.Uint64("contentID", ev.MessageID),
		zap.Int("replayed", replayed))

	return nil
}
