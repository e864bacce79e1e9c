package migrations

import (
	"context"
	"fmt"

	"github.com/lorekeep/curator/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		tables := []struct {
			model any
			name  string
		}{
			{(*types.Content)(nil), "contents"},
			{(*types.ContentCategory)(nil), "content_categories"},
			{(*types.Emoji)(nil), "emojis"},
			{(*types.CategoryRule)(nil), "category_rules"},
			{(*types.PaymentRule)(nil), "payment_rules"},
			{(*types.Reaction)(nil), "reactions"},
			{(*types.Payment)(nil), "payments"},
			{(*types.ContentEarnings)(nil), "content_earnings"},
			{(*types.User)(nil), "users"},
		}

		for _, table := range tables {
			_, err := db.NewCreateTable().
				Model(table.model).
				ModelTableExpr(table.name).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table %s: %w", table.name, err)
			}
		}

		// Reaction uniqueness per (content, user, emoji)
		_, err := db.NewRaw(
			"CREATE UNIQUE INDEX IF NOT EXISTS reactions_triple_idx ON reactions (content_id, user_id, emoji_key)",
		).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create reaction triple index: %w", err)
		}

		indexes := []string{
			"CREATE INDEX IF NOT EXISTS reactions_content_idx ON reactions (content_id)",
			"CREATE INDEX IF NOT EXISTS payments_content_idx ON payments (content_id)",
			"CREATE INDEX IF NOT EXISTS content_categories_content_idx ON content_categories (content_id)",
		}
		for _, stmt := range indexes {
			if _, err := db.NewRaw(stmt).Exec(ctx); err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		tables := []string{
			"content_earnings",
			"payments",
			"reactions",
			"payment_rules",
			"category_rules",
			"emojis",
			"content_categories",
			"contents",
			"users",
		}

		for _, table := range tables {
			if _, err := db.NewRaw(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table %s: %w", table, err)
			}
		}

		return nil
	})
}
