// Package skillchain connects a holder's wallet and decides whether the holder
// may review work that requires a given set of skills.
//
// A Runtime owns exactly one wallet connection. Account and network switches
// made in the wallet are applied in the order they happen, and results of
// connect attempts that were overtaken by a disconnect are dropped. Reviewer
// checks read the connected holder's credentials from a CredentialSource and
// keep a short-lived record of each completed check.
package skillchain

import (
	"github.com/flexigpt/skillchain-go/spec"
)

type (
	ConnectionState   = spec.ConnectionState
	Status            = spec.Status
	Credential        = spec.Credential
	Level             = spec.Level
	EligibilityResult = spec.EligibilityResult
	Verification      = spec.Verification
	VerificationID    = spec.VerificationID
)

var (
	ErrProviderUnavailable  = spec.ErrProviderUnavailable
	ErrUserRejected         = spec.ErrUserRejected
	ErrProviderError        = spec.ErrProviderError
	ErrProviderTimeout      = spec.ErrProviderTimeout
	ErrNotConnected         = spec.ErrNotConnected
	ErrVerificationNotFound = spec.ErrVerificationNotFound
)
