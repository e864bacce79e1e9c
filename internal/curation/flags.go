package curation

// Country flag emojis are pairs of regional indicator symbols
// (U+1F1E6..U+1F1FF).
const (
	regionalIndicatorFirst = 0x1F1E6
	regionalIndicatorLast  = 0x1F1FF
)

// IsCountryFlag reports whether an emoji is a country flag glyph.
func IsCountryFlag(emoji EmojiRef) bool {
	if emoji.ID != 0 {
		return false
	}

	runes := []rune(emoji.Name)
	if len(runes) != 2 {
		return false
	}

	for _, r := range runes {
		if r < regionalIndicatorFirst || r > regionalIndicatorLast {
			return false
		}
	}

	return true
}
