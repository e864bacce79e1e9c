package discord

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/lorekeep/curator/internal/curation"
	"go.uber.org/zap"
)

// reactionPageSize is the maximum user count Discord returns per
// reaction page.
const reactionPageSize = 100

// Gateway adapts the disgo client to the transport interface the
// curation core consumes.
type Gateway struct {
	client       bot.Client
	logChannelID uint64
	logger       *zap.Logger
}

var _ curation.Gateway = (*Gateway)(nil)

// NewGateway creates a gateway backed by a connected disgo client.
func NewGateway(client bot.Client, logChannelID uint64, logger *zap.Logger) *Gateway {
	return &Gateway{
		client:       client,
		logChannelID: logChannelID,
		logger:       logger.Named("gateway"),
	}
}

// Message fetches the raw message backing a content entity.
func (g *Gateway) Message(ctx context.Context, channelID, messageID uint64) (*curation.Message, error) {
	msg, err := g.client.Rest().GetMessage(snowflake.ID(channelID), snowflake.ID(messageID), rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %d: %w", messageID, err)
	}

	out := &curation.Message{
		ID:        uint64(msg.ID),
		ChannelID: uint64(msg.ChannelID),
		AuthorID:  uint64(msg.Author.ID),
		Author:    msg.Author.Username,
		Content:   msg.Content,
	}
	if msg.GuildID != nil {
		out.GuildID = uint64(*msg.GuildID)
	}

	return out, nil
}

// ChannelInfo fetches channel context for content classification.
func (g *Gateway) ChannelInfo(ctx context.Context, channelID uint64) (*curation.ChannelInfo, error) {
	channel, err := g.client.Rest().GetChannel(snowflake.ID(channelID), rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel %d: %w", channelID, err)
	}

	info := &curation.ChannelInfo{ID: channelID}

	switch channel.Type() {
	case discord.ChannelTypeGuildPublicThread,
		discord.ChannelTypeGuildPrivateThread,
		discord.ChannelTypeGuildNewsThread:
		info.IsThread = true
	default:
	}

	if guildChannel, ok := channel.(discord.GuildChannel); ok {
		info.GuildID = uint64(guildChannel.GuildID())

		if parentID := guildChannel.ParentID(); parentID != nil {
			info.ParentID = uint64(*parentID)
		}
	}

	return info, nil
}

// ReactionSet fetches the authoritative external reaction state of a
// message. Emoji groups come back in the order the message reports
// them, users within a group in pagination order.
func (g *Gateway) ReactionSet(ctx context.Context, channelID, messageID uint64) (*curation.ReactionSet, error) {
	msg, err := g.client.Rest().GetMessage(snowflake.ID(channelID), snowflake.ID(messageID), rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %d: %w", messageID, err)
	}

	set := &curation.ReactionSet{}

	for _, reaction := range msg.Reactions {
		ref := emojiRef(discord.PartialEmoji{ID: &reaction.Emoji.ID, Name: &reaction.Emoji.Name})

		userIDs, err := g.reactionUsers(ctx, channelID, messageID, ref)
		if err != nil {
			return nil, err
		}

		set.Groups = append(set.Groups, curation.ReactionUsers{
			Emoji:   ref,
			UserIDs: userIDs,
		})
	}

	return set, nil
}

// reactionUsers pages through all users holding one emoji on a message.
func (g *Gateway) reactionUsers(
	ctx context.Context, channelID, messageID uint64, emoji curation.EmojiRef,
) ([]uint64, error) {
	var (
		userIDs []uint64
		after   snowflake.ID
	)

	for {
		users, err := g.client.Rest().GetReactions(
			snowflake.ID(channelID), snowflake.ID(messageID),
			emoji.Key(), discord.MessageReactionTypeNormal, int(after), reactionPageSize, rest.WithCtx(ctx),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch reactions for %q: %w", emoji.Key(), err)
		}

		for _, user := range users {
			userIDs = append(userIDs, uint64(user.ID))
			after = user.ID
		}

		if len(users) < reactionPageSize {
			return userIDs, nil
		}
	}
}

// MemberRoleNames fetches the role names a user holds in a guild.
func (g *Gateway) MemberRoleNames(ctx context.Context, guildID, userID uint64) ([]string, error) {
	member, err := g.client.Rest().GetMember(snowflake.ID(guildID), snowflake.ID(userID), rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member %d: %w", userID, err)
	}

	roles, err := g.client.Rest().GetRoles(snowflake.ID(guildID), rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild roles: %w", err)
	}

	roleNames := make(map[snowflake.ID]string, len(roles))
	for _, role := range roles {
		roleNames[role.ID] = role.Name
	}

	names := make([]string, 0, len(member.RoleIDs))

	for _, roleID := range member.RoleIDs {
		if name, ok := roleNames[roleID]; ok {
			names = append(names, name)
		}
	}

	return names, nil
}

// RemoveReaction retracts a user's reaction from a message.
func (g *Gateway) RemoveReaction(
	ctx context.Context, channelID, messageID uint64, emoji curation.EmojiRef, userID uint64,
) error {
	err := g.client.Rest().RemoveUserReaction(
		snowflake.ID(channelID), snowflake.ID(messageID),
		emoji.Key(), snowflake.ID(userID), rest.WithCtx(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to remove reaction %q of user %d: %w", emoji.Key(), userID, err)
	}

	return nil
}

// NotifyUser sends a direct message with a reason and a content permalink.
// Users with DMs disabled are logged and skipped.
func (g *Gateway) NotifyUser(ctx context.Context, userID uint64, reason, permalink string) error {
	channel, err := g.client.Rest().CreateDMChannel(snowflake.ID(userID), rest.WithCtx(ctx))
	if err != nil {
		g.logger.Warn("Failed to open DM channel",
			zap.Uint64("userID", userID),
			zap.Error(err))

		return nil
	}

	_, err = g.client.Rest().CreateMessage(channel.ID(), discord.NewMessageCreateBuilder().
		SetContentf("%s\n%s", reason, permalink).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		g.logger.Warn("Failed to send DM",
			zap.Uint64("userID", userID),
			zap.Error(err))
	}

	return nil
}

// NotifyLog posts a line to the curation log channel if one is configured.
func (g *Gateway) NotifyLog(ctx context.Context, text string) error {
	if g.logChannelID == 0 {
		return nil
	}

	_, err := g.client.Rest().CreateMessage(snowflake.ID(g.logChannelID), discord.NewMessageCreateBuilder().
		SetContent(text).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to post to log channel: %w", err)
	}

	return nil
}

// emojiRef converts a platform emoji to the internal reference.
func emojiRef(emoji discord.PartialEmoji) curation.EmojiRef {
	ref := curation.EmojiRef{}
	if emoji.Name != nil {
		ref.Name = *emoji.Name
	}

	if emoji.ID != nil {
		ref.ID = uint64(*emoji.ID)
	}

	return ref
}
