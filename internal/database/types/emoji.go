package types

import (
	"time"
)

// Emoji represents an emoji identity known to the curator.
// Key is the native glyph for unicode emojis and "name:id" for custom ones.
// Emojis are auto-registered on first use.
type Emoji struct {
	Key       string    `bun:",pk"      json:"key"`
	Name      string    `bun:",notnull" json:"name"`
	CustomID  uint64    `json:"customId"` // 0 for unicode emojis
	CreatedAt time.Time `bun:",notnull" json:"createdAt"`
}

// CategoryRule maps an emoji to the category it assigns on posts.
type CategoryRule struct {
	EmojiKey  string    `bun:",pk"      json:"emojiKey"`
	Category  string    `bun:",notnull" json:"category"`
	CreatedAt time.Time `bun:",notnull" json:"createdAt"`
}

// PaymentRule maps an emoji to the payment it records when a superuser
// reacts with it.
type PaymentRule struct {
	EmojiKey      string    `bun:",pk"      json:"emojiKey"`
	Amount        float64   `bun:",notnull" json:"amount"`
	Unit          string    `bun:",notnull" json:"unit"`
	FundingSource string    `bun:",notnull" json:"fundingSource"`
	CreatedAt     time.Time `bun:",notnull" json:"createdAt"`
}
