package enum

// Direction represents whether a reaction was added or removed.
type Direction int

const (
	DirectionAdd Direction = iota
	DirectionRemove
)

func (d Direction) String() string {
	switch d {
	case DirectionAdd:
		return "add"
	case DirectionRemove:
		return "remove"
	default:
		return "unknown"
	}
}
