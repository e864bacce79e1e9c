package bot

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"go.uber.org/zap"

	"github.com/lorekeep/curator/internal/curation"
	"github.com/lorekeep/curator/internal/database/types/enum"
	"github.com/lorekeep/curator/internal/setup/config"
)

// Bot owns the Discord connection and forwards reaction events into
// the curation engine.
type Bot struct {
	client  bot.Client
	curator *curation.Curator
	guildID uint64
	logger  *zap.Logger
}

// New configures the Discord client with the gateway intents and event
// listeners the curation engine needs. The curator is attached after
// construction because it consumes the same client through the gateway
// adapter.
func New(token string, guildID uint64, logger *zap.Logger) (*Bot, error) {
	b := &Bot{
		guildID: guildID,
		logger:  logger.Named("bot"),
	}

	client, err := disgo.New(token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMessageReactions,
			),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnGuildMessageReactionAdd:    b.handleReactionAdd,
			OnGuildMessageReactionRemove: b.handleReactionRemove,
			OnGuildReady:                 b.handleGuildReady,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord client: %w", err)
	}

	b.client = client

	return b, nil
}

// Client returns the underlying disgo client.
func (b *Bot) Client() bot.Client {
	return b.client
}

// SetCurator attaches the curation engine that receives reaction events.
func (b *Bot) SetCurator(curator *curation.Curator) {
	b.curator = curator
}

// Start opens the gateway connection.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")

	return b.client.OpenGateway(ctx)
}

// Close gracefully shuts down the Discord gateway connection.
func (b *Bot) Close() {
	b.logger.Info("Closing bot")
	b.client.Close(context.Background())
}

// handleReactionAdd forwards a reaction add into the curation engine.
func (b *Bot) handleReactionAdd(event *events.GuildMessageReactionAdd) {
	if b.curator == nil || uint64(event.GuildID) != b.guildID {
		return
	}

	// The bot's own reactions never enter curation.
	if event.Member.User.Bot {
		return
	}

	b.curator.Enqueue(curation.Event{
		GuildID:   uint64(event.GuildID),
		ChannelID: uint64(event.ChannelID),
		MessageID: uint64(event.MessageID),
		UserID:    uint64(event.UserID),
		Username:  event.Member.User.Username,
		Emoji:     emojiRef(event.Emoji),
		Direction: enum.DirectionAdd,
	})
}

// handleReactionRemove forwards a reaction remove into the curation engine.
func (b *Bot) handleReactionRemove(event *events.GuildMessageReactionRemove) {
	if b.curator == nil || uint64(event.GuildID) != b.guildID {
		return
	}

	b.curator.Enqueue(curation.Event{
		GuildID:   uint64(event.GuildID),
		ChannelID: uint64(event.ChannelID),
		MessageID: uint64(event.MessageID),
		UserID:    uint64(event.UserID),
		Emoji:     emojiRef(event.Emoji),
		Direction: enum.DirectionRemove,
	})
}

// handleGuildReady logs guild availability on startup.
func (b *Bot) handleGuildReady(event *events.GuildReady) {
	b.logger.Info("Guild ready",
		zap.Uint64("guildID", uint64(event.Guild.ID)),
		zap.String("name", event.Guild.Name))
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

// CurationConfig maps the file configuration to the engine configuration.
func CurationConfig(cfg *config.Curation) curation.Config {
	return curation.Config{
		PostChannels:          cfg.PostChannels,
		OddJobChannels:        cfg.OddJobChannels,
		SuperuserRoles:        cfg.SuperuserRoles,
		FeatureEmoji:          cfg.FeatureEmoji,
		UniversalPublishEmoji: cfg.UniversalPublishEmoji,
	}
}
