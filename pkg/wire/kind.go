package wire

// Kind identifies what an envelope carries.
type Kind uint8

const (
	// KindSubscribe asks the authority for a snapshot of a topic.
	// Direction: client to authority, no payload.
	KindSubscribe Kind = 1

	// KindSnapshot carries the authority's full collection for a topic.
	// Direction: authority to client, payload is an array.
	KindSnapshot Kind = 2

	// KindUpdate carries one new value for a topic.
	// Direction: authority to client.
	KindUpdate Kind = 3

	// KindFire carries one value the client wants the authority to apply.
	// Direction: client to authority.
	KindFire Kind = 4
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSubscribe:
		return "Subscribe"
	case KindSnapshot:
		return "Snapshot"
	case KindUpdate:
		return "Update"
	case KindFire:
		return "Fire"
	default:
		return "Unknown"
	}
}

// IsValid returns true if k is a known kind.
func (k Kind) IsValid() bool {
	return k >= KindSubscribe && k <= KindFire
}

// HasPayload reports whether envelopes of this kind carry a payload.
func (k Kind) HasPayload() bool {
	return k != KindSubscribe
}
