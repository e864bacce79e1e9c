package curation

import (
	"fmt"

	"github.com/lorekeep/curator/internal/database/types/enum"
)

// Dispatch maps one (content kind, user rank, emoji class, direction)
// tuple to exactly one handler. Fixed precedence, first match wins; this
// table is the single source of truth for authorization.
func Dispatch(kind enum.ContentKind, rank enum.UserRank, class EmojiClass, dir enum.Direction) (*Handler, error) {
	privileged := class.Kind == enum.EmojiKindPayment ||
		class.Kind == enum.EmojiKindCategory ||
		class.Kind == enum.EmojiKindFeature

	switch {
	// Privileged emojis from regular users are rejected outright,
	// any content, any direction.
	case rank == enum.UserRankRegular && privileged:
		return notAllowedHandler, nil

	case rank == enum.UserRankSuperuser && class.Kind == enum.EmojiKindPayment && dir == enum.DirectionAdd:
		if class.Universal {
			return universalPublishHandler, nil
		}

		switch kind {
		case enum.ContentKindPost:
			return paymentAddPostHandler, nil
		case enum.ContentKindOddJob:
			return paymentAddOddJobHandler, nil
		case enum.ContentKindThread:
			return paymentAddThreadHandler, nil
		default:
			return nil, fmt.Errorf("%w: payment add on %s content", ErrDispatch, kind)
		}

	case rank == enum.UserRankSuperuser && class.Kind == enum.EmojiKindPayment && dir == enum.DirectionRemove:
		if class.Universal {
			return universalRemoveHandler, nil
		}

		return paymentRemoveHandler, nil

	// Category emojis act on posts only; elsewhere they are rejected.
	case rank == enum.UserRankSuperuser && class.Kind == enum.EmojiKindCategory:
		if kind != enum.ContentKindPost {
			return notAllowedHandler, nil
		}

		if dir == enum.DirectionAdd {
			return categoryAddHandler, nil
		}

		return categoryRemoveHandler, nil

	case rank == enum.UserRankSuperuser && class.Kind == enum.EmojiKindFeature:
		if dir == enum.DirectionAdd {
			return featureAddHandler, nil
		}

		return featureRemoveHandler, nil

	case class.Kind == enum.EmojiKindRegular:
		return regularHandler, nil

	default:
		return nil, fmt.Errorf("%w: (%s, %s, %s, %s)", ErrDispatch, kind, rank, class.Kind, dir)
	}
}
