package curation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lorekeep/curator/internal/database/types"
	"github.com/lorekeep/curator/internal/database/types/enum"
)

// EmojiRef identifies an emoji on the platform: a native glyph or a
// custom emoji with a name and numeric id.
type EmojiRef struct {
	Name string
	ID   uint64 // 0 for unicode emojis
}

// Key returns the stable identity used for store rows: the glyph itself
// for unicode emojis, "name:id" for custom ones.
func (e EmojiRef) Key() string {
	if e.ID == 0 {
		return e.Name
	}

	return fmt.Sprintf("%s:%d", e.Name, e.ID)
}

// Event is one reaction add/remove observed on the platform.
type Event struct {
	GuildID   uint64
	ChannelID uint64
	MessageID uint64
	UserID    uint64
	Username  string
	Emoji     EmojiRef
	Direction enum.Direction
}

// ChannelInfo describes the channel a message lives in.
type ChannelInfo struct {
	ID       uint64
	ParentID uint64 // Category for regular channels, parent channel for threads
	IsThread bool
	GuildID  uint64
}

// Message is the raw platform message a content entity is curated from.
type Message struct {
	ID        uint64
	ChannelID uint64
	GuildID   uint64
	AuthorID  uint64
	Author    string
	Content   string
}

// ReactionUsers is one emoji's user list in the order the platform
// reports the users.
type ReactionUsers struct {
	Emoji   EmojiRef
	UserIDs []uint64
}

// ReactionSet is the full current external reaction state of a message,
// groups ordered as the platform reports them.
type ReactionSet struct {
	Groups []ReactionUsers
}

// TotalCount returns the total number of individual reactions in the set.
func (s *ReactionSet) TotalCount() int {
	total := 0
	for _, group := range s.Groups {
		total += len(group.UserIDs)
	}

	return total
}

// Gateway is the platform transport the curation core consumes. Message
// and reaction fetching, retraction, and outward notification all go
// through it.
type Gateway interface {
	// Message fetches the raw message backing a content entity.
	Message(ctx context.Context, channelID, messageID uint64) (*Message, error)
	// ChannelInfo fetches channel/thread context for content classification.
	ChannelInfo(ctx context.Context, channelID uint64) (*ChannelInfo, error)
	// ReactionSet fetches the authoritative external reaction state of a
	// message in platform-reported order.
	ReactionSet(ctx context.Context, channelID, messageID uint64) (*ReactionSet, error)
	// MemberRoleNames fetches the role names a user holds in a guild.
	MemberRoleNames(ctx context.Context, guildID, userID uint64) ([]string, error)
	// RemoveReaction retracts a user's reaction from a message.
	RemoveReaction(ctx context.Context, channelID, messageID uint64, emoji EmojiRef, userID uint64) error
	// NotifyUser sends a direct message with a reason and a content permalink.
	NotifyUser(ctx context.Context, userID uint64, reason, permalink string) error
	// NotifyLog posts a structured line to the curation log channel.
	NotifyLog(ctx context.Context, text string) error
}

// Store is the persistence interface the curation core consumes.
// Implemented by internal/database on top of bun.
type Store interface {
	// Content
	ContentByID(ctx context.Context, messageID uint64) (*types.Content, error) // ErrNotFound when absent
	SaveContent(ctx context.Context, content *types.Content) error
	SetPublished(ctx context.Context, messageID uint64, published bool) error
	SetFeatured(ctx context.Context, messageID uint64, featured bool) error
	Categories(ctx context.Context, contentID uint64) ([]string, error)
	AddCategory(ctx context.Context, contentID uint64, name string) error
	RemoveCategory(ctx context.Context, contentID uint64, name string) error
	ReplaceCategories(ctx context.Context, contentID uint64, names []string) error

	// Reactions
	UpsertReaction(ctx context.Context, contentID, userID uint64, emojiKey string) (*types.Reaction, error)
	DeleteReaction(ctx context.Context, contentID, userID uint64, emojiKey string) error
	ReactionsByContent(ctx context.Context, contentID uint64) ([]*types.Reaction, error)
	CountReactions(ctx context.Context, contentID uint64) (int, error)

	// Payments and earnings
	CreatePayment(ctx context.Context, payment *types.Payment) error
	FirstPayment(ctx context.Context, contentID uint64) (*types.Payment, error)         // nil when none
	PaymentByReaction(ctx context.Context, reactionID uuid.UUID) (*types.Payment, error) // nil when none
	CountPayments(ctx context.Context, contentID uint64) (int, error)
	UpsertEarnings(ctx context.Context, contentID uint64, unit string, total float64) error
	Earnings(ctx context.Context, contentID uint64, unit string) (*types.ContentEarnings, error) // nil when none

	// Users and emoji rules
	UpsertUser(ctx context.Context, user *types.User) error
	UpsertEmoji(ctx context.Context, emoji *types.Emoji) error
	CategoryRule(ctx context.Context, emojiKey string) (*types.CategoryRule, error) // ErrNotFound when absent
	PaymentRule(ctx context.Context, emojiKey string) (*types.PaymentRule, error)   // ErrNotFound when absent

	// ResetContent atomically deletes all reaction, payment and earnings
	// rows of a content entity. Either everything is removed or nothing is.
	ResetContent(ctx context.Context, contentID uint64) error
}

// Parser turns a raw message into content fields. Message parsing is an
// external collaborator; the default implementation lives in internal/bot.
type Parser interface {
	Parse(msg *Message) (title, body string, tags []string)
}
