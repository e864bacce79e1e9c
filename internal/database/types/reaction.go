package types

import (
	"time"

	"github.com/google/uuid"
)

// Reaction represents one recorded (content, user, emoji) reaction.
// The triple is unique; the uuid is a surrogate key payments link to.
type Reaction struct {
	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	ContentID uint64    `bun:",notnull"      json:"contentId"`
	UserID    uint64    `bun:",notnull"      json:"userId"`
	EmojiKey  string    `bun:",notnull"      json:"emojiKey"`
	CreatedAt time.Time `bun:",notnull"      json:"createdAt"`
}
