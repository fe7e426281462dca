package skillchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/flexigpt/llmtools-go"
	llmtoolsgoSpec "github.com/flexigpt/llmtools-go/spec"

	"github.com/flexigpt/skillchain-go/eligibility"
	"github.com/flexigpt/skillchain-go/recordstore"
	"github.com/flexigpt/skillchain-go/reviewtool"
	"github.com/flexigpt/skillchain-go/spec"

	"github.com/flexigpt/skillchain-go/internal/session"
	"github.com/flexigpt/skillchain-go/internal/verification"
)

// credentialInvalidator is implemented by caching credential sources.
type credentialInvalidator interface {
	Invalidate(holder string)
}

// Runtime is the wallet session plus reviewer checks for one holder at a time.
type Runtime struct {
	logger        *slog.Logger
	session       *session.Manager
	creds         spec.CredentialSource
	policy        eligibility.Policy
	verifications *verification.Store

	startOnce sync.Once
}

var _ spec.Runtime = (*Runtime)(nil)

func New(opts ...Option) (*Runtime, error) {
	var o runtimeOptions
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.store == nil {
		o.store = recordstore.NewMemory()
	}

	r := &Runtime{
		logger: o.logger,
		creds:  o.creds,
		policy: o.policy,
		verifications: verification.NewStore(verification.StoreConfig{
			TTL:        o.verificationTTL,
			MaxEntries: o.maxVerifications,
		}),
	}
	r.session = session.New(session.Config{
		Provider:        o.provider,
		Store:           o.store,
		Logger:          o.logger,
		ProviderTimeout: o.providerTimeout,
		EventBuffer:     o.eventBuffer,
		OnAddressChange: r.holderChanged,
	})
	return r, nil
}

// Start subscribes to wallet notifications and restores a previously
// authorized session without prompting. Calls after the first return the
// current state.
func (r *Runtime) Start(ctx context.Context) ConnectionState {
	started := false
	r.startOnce.Do(func() {
		started = true
		r.session.Start()
	})
	if !started {
		return r.session.State()
	}
	return r.session.Restore(ctx)
}

// Close unsubscribes from the wallet. The credential source and record store
// are owned by the caller and stay open.
func (r *Runtime) Close() {
	r.session.Close()
}

func (r *Runtime) State() ConnectionState { return r.session.State() }

// Watch streams state snapshots, latest first; see session.Manager.Watch.
func (r *Runtime) Watch(ctx context.Context) <-chan ConnectionState {
	return r.session.Watch(ctx)
}

// Sync waits until every wallet notification received so far is applied.
func (r *Runtime) Sync(ctx context.Context) error { return r.session.Sync(ctx) }

func (r *Runtime) Connect(ctx context.Context) (ConnectionState, error) {
	return r.session.Connect(ctx)
}

func (r *Runtime) Disconnect(ctx context.Context) ConnectionState {
	return r.session.Disconnect(ctx)
}

// LastKnownAddress is the address remembered from an earlier session. It is
// a display hint and never implies a live connection.
func (r *Runtime) LastKnownAddress(ctx context.Context) (string, bool) {
	return r.session.LastKnownAddress(ctx)
}

// Evaluate applies the runtime's policy to an explicit credential set.
func (r *Runtime) Evaluate(required []string, creds []Credential) EligibilityResult {
	return r.policy.Evaluate(required, creds)
}

// CheckReviewer evaluates the connected holder against required skills and
// records the outcome. If the connected account changes while credentials are
// being fetched the check is abandoned with ErrStaleResponse.
func (r *Runtime) CheckReviewer(ctx context.Context, required []string) (Verification, error) {
	if err := ctx.Err(); err != nil {
		return Verification{}, err
	}
	if r.creds == nil {
		return Verification{}, spec.ErrCredentialSourceUnset
	}
	st := r.session.State()
	if !st.IsConnected {
		return Verification{}, spec.ErrNotConnected
	}

	creds, err := r.creds.Credentials(ctx, st.Address)
	if err != nil {
		return Verification{}, fmt.Errorf("credentials of %s: %w", st.Address, err)
	}
	res := r.policy.Evaluate(required, creds)

	if cur := r.session.State(); !cur.IsConnected || !strings.EqualFold(cur.Address, st.Address) {
		r.logger.Debug("reviewer check overtaken by account change", "holder", st.Address)
		return Verification{}, spec.ErrStaleResponse
	}

	v := r.verifications.Add(Verification{
		Holder:         st.Address,
		ChainID:        st.ChainID,
		RequiredSkills: slices.Clone(required),
		Result:         res,
	})
	r.logger.Info("reviewer check complete",
		"id", v.ID,
		"holder", v.Holder,
		"canReview", res.CanReview,
		"relevant", len(res.RelevantCredentials),
	)
	return v, nil
}

// Verification returns a recorded check. Records disappear after their TTL
// and as soon as the holder disconnects or switches accounts.
func (r *Runtime) Verification(id VerificationID) (Verification, error) {
	if strings.TrimSpace(string(id)) == "" {
		return Verification{}, fmt.Errorf("%w: empty verification id", spec.ErrInvalidArgument)
	}
	v, ok := r.verifications.Get(id)
	if ok {
		cur := r.session.State()
		ok = cur.IsConnected && strings.EqualFold(cur.Address, v.Holder)
	}
	if !ok {
		return Verification{}, errors.Join(spec.ErrVerificationNotFound, fmt.Errorf("id %s", id))
	}
	return v, nil
}

// Tools returns the wallet and reviewer tool specs.
func (r *Runtime) Tools() []llmtoolsgoSpec.Tool { return reviewtool.Tools() }

// RegisterTools registers the wallet and reviewer tools into an existing
// llmtools-go Registry.
func (r *Runtime) RegisterTools(reg *llmtools.Registry) error {
	return reviewtool.Register(reg, r)
}

// NewToolsRegistry returns a new llmtools-go Registry containing only the
// wallet and reviewer tools.
func (r *Runtime) NewToolsRegistry(opts ...llmtools.RegistryOption) (*llmtools.Registry, error) {
	return reviewtool.NewRegistry(r, opts...)
}

// holderChanged drops per-holder data as soon as the connected account
// changes. It runs for every intermediate account, under the session lock.
func (r *Runtime) holderChanged(prev, next string) {
	if strings.EqualFold(prev, next) {
		return
	}
	if prev != "" {
		if inv, ok := r.creds.(credentialInvalidator); ok {
			inv.Invalidate(prev)
		}
	}
	r.verifications.ForgetExcept(next)
}
