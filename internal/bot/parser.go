package bot

import (
	"strings"

	"github.com/lorekeep/curator/internal/curation"
)

// MessageParser is the default content parser: the first non-empty line
// becomes the title, the remainder the body, and #hashtag words are
// collected as tags.
type MessageParser struct{}

var _ curation.Parser = (*MessageParser)(nil)

// NewMessageParser creates the default parser.
func NewMessageParser() *MessageParser {
	return &MessageParser{}
}

// Parse splits a raw message into content fields.
func (p *MessageParser) Parse(msg *curation.Message) (string, string, []string) {
	var (
		title string
		body  string
		tags  []string
	)

	lines := strings.Split(msg.Content, "\n")

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		title = trimmed
		body = strings.TrimSpace(strings.Join(lines[i+1:], "\n"))

		break
	}

	for _, word := range strings.Fields(msg.Content) {
		if len(word) > 1 && strings.HasPrefix(word, "#") {
			tags = append(tags, strings.TrimPrefix(word, "#"))
		}
	}

	return title, body, tags
}
