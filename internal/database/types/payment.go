package types

import (
	"time"

	"github.com/google/uuid"
)

// Payment represents one recorded payment attached to a reaction.
// Rows are immutable once created; removing a payment reaction only
// recomputes the earnings aggregate, the history row is retained.
type Payment struct {
	ID            uuid.UUID `bun:",pk,type:uuid" json:"id"`
	ReactionID    uuid.UUID `bun:",notnull,type:uuid" json:"reactionId"`
	ContentID     uint64    `bun:",notnull"      json:"contentId"`
	Amount        float64   `bun:",notnull"      json:"amount"`
	Unit          string    `bun:",notnull"      json:"unit"`
	FundingSource string    `bun:",notnull"      json:"fundingSource"`
	CreatedAt     time.Time `bun:",notnull"      json:"createdAt"`
}

// ContentEarnings is the derived per-unit payment total for a content
// entity. Must equal the sum of payments over the currently-present
// payment reactions of that unit after every payment handler run.
type ContentEarnings struct {
	ContentID   uint64    `bun:",pk"      json:"contentId"`
	Unit        string    `bun:",pk"      json:"unit"`
	TotalAmount float64   `bun:",notnull" json:"totalAmount"`
	UpdatedAt   time.Time `bun:",notnull" json:"updatedAt"`
}
