package enum

// UserRank represents a user's authority for curation actions.
// Rank is computed per event from live role membership, never persisted.
type UserRank int

const (
	UserRankRegular UserRank = iota
	UserRankSuperuser
)

func (r UserRank) String() string {
	switch r {
	case UserRankSuperuser:
		return "superuser"
	case UserRankRegular:
		return "regular"
	default:
		return "unknown"
	}
}
