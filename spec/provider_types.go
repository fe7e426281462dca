package spec

import "context"

// AccountProvider is the external, asynchronously mutating account capability
// (typically a wallet extension). Implementations may invoke registered
// handlers from any goroutine at any time.
type AccountProvider interface {
	// RequestAccounts asks the holder for account access. It may prompt.
	// Fails with ErrUserRejected when the holder declines.
	RequestAccounts(ctx context.Context) ([]string, error)

	// ListAuthorizedAccounts returns accounts already authorized for this
	// client. It must never prompt.
	ListAuthorizedAccounts(ctx context.Context) ([]string, error)

	// ChainID returns the current network identifier.
	ChainID(ctx context.Context) (uint64, error)

	OnAccountsChanged(fn func(accounts []string))
	OnChainChanged(fn func(chainID uint64))

	// RemoveAllListeners drops every handler registered above.
	RemoveAllListeners()
}

// CredentialSource gives read-only access to a holder's credentials.
type CredentialSource interface {
	Credentials(ctx context.Context, holder string) ([]Credential, error)
}

// RecordStore persists the advisory last-known address. Absence of a record
// means "no prior session". Implementations need no locking beyond their own
// consistency: last writer wins.
type RecordStore interface {
	LoadAddress(ctx context.Context) (address string, ok bool, err error)
	SaveAddress(ctx context.Context, address string) error
	ClearAddress(ctx context.Context) error
}

// AddressRecordKey is the single key holding the advisory address.
const AddressRecordKey = "wallet_address"
