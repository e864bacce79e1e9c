package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/lorekeep/curator/internal/database"
	"github.com/lorekeep/curator/internal/database/migrations"
	"github.com/lorekeep/curator/internal/database/types"
	"github.com/lorekeep/curator/internal/setup/config"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var (
	ErrNameRequired = errors.New("NAME argument required")
	ErrRuleArgs     = errors.New("wrong number of arguments, see usage")
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	// Setup dependencies
	db, migrator, logger, err := setupMigrator()
	if err != nil {
		return fmt.Errorf("failed to setup migrator: %w", err)
	}
	defer db.Close()

	app := &cli.Command{
		Name:  "db",
		Usage: "Database management tool",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize migration tables",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return migrator.Init(ctx)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run pending migrations",
				Action: func(ctx context.Context, _ *cli.Command) error {
					if err := migrator.Lock(ctx); err != nil {
						return err
					}
					defer migrator.Unlock(ctx) //nolint:errcheck

					group, err := migrator.Migrate(ctx)
					if err != nil {
						return err
					}

					if group.IsZero() {
						logger.Info("No new migrations to run (database is up to date)")
						return nil
					}

					logger.Info("Successfully migrated",
						zap.String("group", group.String()),
					)

					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "Rollback the last migration group",
				Action: func(ctx context.Context, _ *cli.Command) error {
					if err := migrator.Lock(ctx); err != nil {
						return err
					}
					defer migrator.Unlock(ctx) //nolint:errcheck

					group, err := migrator.Rollback(ctx)
					if err != nil {
						return err
					}

					if group.IsZero() {
						logger.Info("No groups to roll back")
						return nil
					}

					logger.Info("Successfully rolled back",
						zap.String("group", group.String()),
					)

					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Show migration status",
				Action: func(ctx context.Context, _ *cli.Command) error {
					ms, err := migrator.MigrationsWithStatus(ctx)
					if err != nil {
						return err
					}

					logger.Info("Migration status",
						zap.String("migrations", ms.String()),
						zap.String("unapplied", ms.Unapplied().String()),
						zap.String("last_group", ms.LastGroup().String()),
					)

					return nil
				},
			},
			{
				Name:  "rule",
				Usage: "Manage the emoji rule tables",
				Commands: []*cli.Command{
					{
						Name:      "set-category",
						Usage:     "Map an emoji key to a category",
						ArgsUsage: "EMOJI CATEGORY",
						Action: func(ctx context.Context, c *cli.Command) error {
							if c.Args().Len() != 2 {
								return ErrRuleArgs
							}

							rule := &types.CategoryRule{
								EmojiKey: c.Args().Get(0),
								Category: c.Args().Get(1),
							}

							if err := db.Model().Emoji().UpsertCategoryRule(ctx, rule); err != nil {
								return err
							}

							logger.Info("Category rule set",
								zap.String("emoji", rule.EmojiKey),
								zap.String("category", rule.Category),
							)

							return nil
						},
					},
					{
						Name:      "set-payment",
						Usage:     "Map an emoji key to a payment amount, unit and funding source",
						ArgsUsage: "EMOJI AMOUNT UNIT SOURCE",
						Action: func(ctx context.Context, c *cli.Command) error {
							if c.Args().Len() != 4 {
								return ErrRuleArgs
							}

							amount, err := strconv.ParseFloat(c.Args().Get(1), 64)
							if err != nil {
								return fmt.Errorf("invalid amount %q: %w", c.Args().Get(1), err)
							}

							rule := &types.PaymentRule{
								EmojiKey:      c.Args().Get(0),
								Amount:        amount,
								Unit:          c.Args().Get(2),
								FundingSource: c.Args().Get(3),
							}

							if err := db.Model().Emoji().UpsertPaymentRule(ctx, rule); err != nil {
								return err
							}

							logger.Info("Payment rule set",
								zap.String("emoji", rule.EmojiKey),
								zap.Float64("amount", rule.Amount),
								zap.String("unit", rule.Unit),
								zap.String("source", rule.FundingSource),
							)

							return nil
						},
					},
				},
			},
			{
				Name:      "create",
				Usage:     "Create a new Go migration file",
				ArgsUsage: "NAME",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return ErrNameRequired
					}

					mf, err := migrator.CreateGoMigration(ctx, c.Args().First())
					if err != nil {
						return err
					}

					logger.Info("Created Go migration",
						zap.String("name", mf.Name),
						zap.String("path", mf.Path),
					)

					return nil
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// setupMigrator initializes the database connection and migrator.
func setupMigrator() (database.Client, *migrate.Migrator, *zap.Logger, error) {
	// Load full configuration
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Create development logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	// Connect to database
	db, err := database.NewConnection(context.Background(), &cfg.Common.PostgreSQL, logger, false)
	if err != nil {
		return nil, nil, logger, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Create migrator using database connection and migrations
	migrator := migrate.NewMigrator(db.DB(), migrations.Migrations)

	return db, migrator, logger, nil
}
