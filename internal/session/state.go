package session

import "github.com/flexigpt/skillchain-go/spec"

// eventKind enumerates the messages the event loop consumes.
type eventKind int

const (
	eventAccountsChanged eventKind = iota
	eventChainChanged
	eventBarrier
)

type event struct {
	kind     eventKind
	accounts []string
	chainID  uint64

	// done is closed once the event has been applied (barrier only).
	done chan struct{}
}

// attempt is one in-flight Connect. Later callers wait on done instead of
// issuing their own provider request.
type attempt struct {
	epoch   uint64
	waiters int

	// wasConnected is whether a session existed when the attempt started.
	// A failed attempt without one falls back to the empty record.
	wasConnected bool

	done  chan struct{}
	state spec.ConnectionState
	err   error
}

func emptyState() spec.ConnectionState { return spec.ConnectionState{} }

// sameFields compares records ignoring Version.
func sameFields(a, b spec.ConnectionState) bool {
	a.Version, b.Version = 0, 0
	return a == b
}
