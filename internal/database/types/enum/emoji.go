package enum

// EmojiKind represents the curation meaning attached to an emoji.
type EmojiKind int

const (
	EmojiKindRegular EmojiKind = iota
	EmojiKindCategory
	EmojiKindPayment
	EmojiKindFeature
)

func (k EmojiKind) String() string {
	switch k {
	case EmojiKindRegular:
		return "regular"
	case EmojiKindCategory:
		return "category"
	case EmojiKindPayment:
		return "payment"
	case EmojiKindFeature:
		return "feature"
	default:
		return "unknown"
	}
}
