package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lorekeep/curator/internal/bot"
	"github.com/lorekeep/curator/internal/curation"
	"github.com/lorekeep/curator/internal/database"
	"github.com/lorekeep/curator/internal/discord"
	"github.com/lorekeep/curator/internal/redis"
	"github.com/lorekeep/curator/internal/setup"
)

const (
	// BotLogDir specifies where bot log files are stored.
	BotLogDir = "logs/bot_logs"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx, "bot", BotLogDir)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup(ctx)

	curationCfg := &app.Config.Bot.Curation

	// Create Discord client
	discordBot, err := bot.New(app.Config.Bot.Discord.Token, curationCfg.GuildID, app.Logger)
	if err != nil {
		log.Printf("Failed to create bot: %v", err)
		return
	}

	// Redis client for pending retraction markers
	trackerClient, err := app.RedisManager.GetClient(redis.RetractionDBIndex)
	if err != nil {
		log.Printf("Failed to create Redis client: %v", err)
		return
	}

	trackerTTL := curation.DefaultTrackerTTL
	if curationCfg.RetractionTTL > 0 {
		trackerTTL = time.Duration(curationCfg.RetractionTTL) * time.Second
	}

	// Assemble the curation engine on top of the store and gateway adapters
	curator := curation.New(
		database.NewCurationStore(app.DB, app.Logger),
		discord.NewGateway(discordBot.Client(), curationCfg.LogChannelID, app.Logger),
		bot.NewMessageParser(),
		curation.NewTracker(trackerClient, trackerTTL, app.Logger),
		bot.CurationConfig(curationCfg),
		app.Logger,
	)
	discordBot.SetCurator(curator)

	go curator.Run(ctx)

	// Start the bot and connect to Discord
	if err := discordBot.Start(ctx); err != nil {
		log.Printf("Failed to start bot: %v", err)
		return
	}

	log.Println("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")

	// Wait for interrupt signal to gracefully shutdown the bot
	// This ensures all pending events are processed before closing
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	// Cleanly close down the Discord session
	cancel()
	discordBot.Close()
}
