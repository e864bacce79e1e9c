package curation

import (
	"context"
)

// regularHandler records or removes the reaction row itself; regular
// emojis carry no further meaning.
var regularHandler = &Handler{
	Name:            "regular",
	recordsReaction: true,
}

// notAllowedHandler rejects privileged emojis from regular users. It
// performs no store mutation; the curator notifies the user and retracts
// the external reaction.
var notAllowedHandler = &Handler{
	Name: "not_allowed",
	permit: func(_ context.Context, _ *Curator, env *env) error {
		return denyf("the %s emoji is reserved for curators", env.event.Emoji.Name)
	},
}
