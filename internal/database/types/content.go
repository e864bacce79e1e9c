package types

import (
	"time"

	"github.com/lorekeep/curator/internal/database/types/enum"
)

// Content represents a curated content entity backed by a Discord message.
// Posts and odd-jobs are curated lazily from the raw message on first
// reaction; thread rows exist only after their first payment reaction.
type Content struct {
	MessageID      uint64           `bun:",pk"      json:"messageId"`
	Kind           enum.ContentKind `bun:",notnull" json:"kind"`
	ChannelID      uint64           `bun:",notnull" json:"channelId"`
	GuildID        uint64           `bun:",notnull" json:"guildId"`
	Title          string           `json:"title"`
	Body           string           `json:"body"`
	ManagerID      uint64           `json:"managerId"` // Odd-jobs only; sole user allowed to pay
	ThreadParentID uint64           `json:"threadParentId"`
	IsPublished    bool             `bun:",notnull" json:"isPublished"`
	IsFeatured     bool             `bun:",notnull" json:"isFeatured"`
	IsDeleted      bool             `bun:",notnull" json:"isDeleted"`
	CreatedAt      time.Time        `bun:",notnull" json:"createdAt"`
	UpdatedAt      time.Time        `bun:",notnull" json:"updatedAt"`
}

// ContentCategory links a content entity to an assigned category name.
type ContentCategory struct {
	ContentID uint64    `bun:",pk"      json:"contentId"`
	Name      string    `bun:",pk"      json:"name"`
	CreatedAt time.Time `bun:",notnull" json:"createdAt"`
}
