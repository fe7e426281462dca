package skillchain

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/flexigpt/skillchain-go/eligibility"
	"github.com/flexigpt/skillchain-go/spec"
)

type runtimeOptions struct {
	logger *slog.Logger

	provider spec.AccountProvider
	store    spec.RecordStore
	creds    spec.CredentialSource

	providerTimeout time.Duration
	eventBuffer     int

	policy           eligibility.Policy
	verificationTTL  time.Duration
	maxVerifications int
}

type Option func(*runtimeOptions) error

func WithLogger(l *slog.Logger) Option {
	return func(o *runtimeOptions) error {
		o.logger = l
		return nil
	}
}

// WithProvider sets the wallet. Without one, Connect fails with
// ErrProviderUnavailable.
func WithProvider(p spec.AccountProvider) Option {
	return func(o *runtimeOptions) error {
		o.provider = p
		return nil
	}
}

// WithRecordStore sets where the last connected address is remembered.
// Defaults to recordstore.Memory.
func WithRecordStore(s spec.RecordStore) Option {
	return func(o *runtimeOptions) error {
		o.store = s
		return nil
	}
}

func WithCredentialSource(s spec.CredentialSource) Option {
	return func(o *runtimeOptions) error {
		o.creds = s
		return nil
	}
}

// WithProviderTimeout bounds each wallet call. Non-positive uses 30s.
func WithProviderTimeout(d time.Duration) Option {
	return func(o *runtimeOptions) error {
		o.providerTimeout = d
		return nil
	}
}

// WithEventBuffer sizes the queue of pending wallet notifications.
func WithEventBuffer(n int) Option {
	return func(o *runtimeOptions) error {
		if n < 0 {
			return fmt.Errorf("%w: event buffer %d", spec.ErrInvalidArgument, n)
		}
		o.eventBuffer = n
		return nil
	}
}

func WithPolicy(p eligibility.Policy) Option {
	return func(o *runtimeOptions) error {
		o.policy = p
		return nil
	}
}

func WithVerificationTTL(ttl time.Duration) Option {
	return func(o *runtimeOptions) error {
		o.verificationTTL = ttl
		return nil
	}
}

func WithMaxVerifications(n int) Option {
	return func(o *runtimeOptions) error {
		o.maxVerifications = n
		return nil
	}
}
