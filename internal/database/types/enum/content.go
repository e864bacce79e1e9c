package enum

// ContentKind represents the kind of curated content a message maps to.
type ContentKind int

const (
	// ContentKindNone marks messages outside the monitored channels.
	ContentKindNone ContentKind = iota
	ContentKindPost
	ContentKindOddJob
	ContentKindThread
)

func (k ContentKind) String() string {
	switch k {
	case ContentKindPost:
		return "post"
	case ContentKindOddJob:
		return "oddjob"
	case ContentKindThread:
		return "thread"
	case ContentKindNone:
		return "none"
	default:
		return "unknown"
	}
}
