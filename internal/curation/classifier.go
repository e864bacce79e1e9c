package curation

import (
	"context"
	"errors"
	"fmt"

	"github.com/lorekeep/curator/internal/database/types"
	"github.com/lorekeep/curator/internal/database/types/enum"
)

// EmojiClass is the result of classifying an emoji: its curation kind
// plus the matched rule, when one exists.
type EmojiClass struct {
	Kind         enum.EmojiKind
	CategoryRule *types.CategoryRule
	PaymentRule  *types.PaymentRule
	// Universal marks the reserved universal-publish emoji, a payment-add
	// variant that publishes without recording a payment.
	Universal bool
}

// EmojiClassifier resolves an emoji identity to its curation meaning.
// Lookup order: reserved feature marker, category rule, payment rule,
// universal-publish marker; everything else is a regular emoji.
type EmojiClassifier struct {
	store        Store
	featureKey   string
	universalKey string
}

// NewEmojiClassifier creates an emoji classifier over the rule tables.
func NewEmojiClassifier(store Store, featureKey, universalKey string) *EmojiClassifier {
	return &EmojiClassifier{
		store:        store,
		featureKey:   featureKey,
		universalKey: universalKey,
	}
}

// Classify returns the emoji's curation class. Unknown emojis are regular.
func (c *EmojiClassifier) Classify(ctx context.Context, emoji EmojiRef) (EmojiClass, error) {
	key := emoji.Key()

	if key == c.featureKey {
		return EmojiClass{Kind: enum.EmojiKindFeature}, nil
	}

	categoryRule, err := c.store.CategoryRule(ctx, key)
	if err == nil {
		return EmojiClass{Kind: enum.EmojiKindCategory, CategoryRule: categoryRule}, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return EmojiClass{}, fmt.Errorf("failed to look up category rule for %s: %w", key, err)
	}

	paymentRule, err := c.store.PaymentRule(ctx, key)
	if err == nil {
		return EmojiClass{Kind: enum.EmojiKindPayment, PaymentRule: paymentRule}, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return EmojiClass{}, fmt.Errorf("failed to look up payment rule for %s: %w", key, err)
	}

	if key == c.universalKey {
		return EmojiClass{Kind: enum.EmojiKindPayment, Universal: true}, nil
	}

	return EmojiClass{Kind: enum.EmojiKindRegular}, nil
}

// ContentClassifier maps a message's channel context to a content kind.
// Pure lookup over the configured monitor lists.
type ContentClassifier struct {
	postChannels   map[uint64]struct{}
	oddJobChannels map[uint64]struct{}
}

// NewContentClassifier creates a content classifier from the monitored
// channel/category lists.
func NewContentClassifier(postChannels, oddJobChannels []uint64) *ContentClassifier {
	classifier := &ContentClassifier{
		postChannels:   make(map[uint64]struct{}, len(postChannels)),
		oddJobChannels: make(map[uint64]struct{}, len(oddJobChannels)),
	}

	for _, id := range postChannels {
		classifier.postChannels[id] = struct{}{}
	}

	for _, id := range oddJobChannels {
		classifier.oddJobChannels[id] = struct{}{}
	}

	return classifier
}

// Classify returns the content kind for a channel context and, for
// threads, the parent channel id. Threads count only when their parent
// channel or category is monitored.
func (c *ContentClassifier) Classify(info *ChannelInfo) (enum.ContentKind, uint64) {
	if info.IsThread {
		if c.monitored(info.ParentID) {
			return enum.ContentKindThread, info.ParentID
		}

		return enum.ContentKindNone, 0
	}

	if _, ok := c.postChannels[info.ID]; ok {
		return enum.ContentKindPost, 0
	}

	if _, ok := c.postChannels[info.ParentID]; ok {
		return enum.ContentKindPost, 0
	}

	if _, ok := c.oddJobChannels[info.ID]; ok {
		return enum.ContentKindOddJob, 0
	}

	if _, ok := c.oddJobChannels[info.ParentID]; ok {
		return enum.ContentKindOddJob, 0
	}

	return enum.ContentKindNone, 0
}

func (c *ContentClassifier) monitored(channelID uint64) bool {
	if _, ok := c.postChannels[channelID]; ok {
		return true
	}

	_, ok := c.oddJobChannels[channelID]

	return ok
}
