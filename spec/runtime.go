package spec

import "context"

// Runtime is the interface that tools bind to.
// Implementations (like package skillchain Runtime) own the connection state.
type Runtime interface {
	State() ConnectionState
	Connect(ctx context.Context) (ConnectionState, error)
	Disconnect(ctx context.Context) ConnectionState
	CheckReviewer(ctx context.Context, requiredSkills []string) (Verification, error)
}

type WalletStateArgs struct{}

type WalletConnectArgs struct{}

type WalletDisconnectArgs struct{}

type WalletStateOut struct {
	State  ConnectionState `json:"state"`
	Status Status          `json:"status"`
}

type ReviewerCheckArgs struct {
	Skills []string `json:"skills"`
}
