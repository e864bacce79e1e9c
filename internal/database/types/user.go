package types

import (
	"time"
)

// User represents a Discord user seen by the curator. Authority rank is
// computed per event from live role membership and never stored here.
type User struct {
	ID        uint64    `bun:",pk"      json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `bun:",notnull" json:"createdAt"`
	UpdatedAt time.Time `bun:",notnull" json:"updatedAt"`
}
