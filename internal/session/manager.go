package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/flexigpt/skillchain-go/spec"
)

const (
	defaultProviderTimeout = 30 * time.Second
	defaultEventBuffer     = 64
	persistTimeout         = 5 * time.Second
)

var errNotRunning = errors.New("session manager not running")

type Config struct {
	// Provider may be nil: every Connect then fails with ErrProviderUnavailable.
	Provider spec.AccountProvider
	Store    spec.RecordStore
	Logger   *slog.Logger

	// ProviderTimeout bounds each provider call. Non-positive uses 30s.
	ProviderTimeout time.Duration
	EventBuffer     int

	// OnAddressChange, when set, runs for every committed change of the
	// connected address, including into and out of "". It runs under the
	// manager lock and must not call back into the Manager.
	OnAddressChange func(prev, next string)
}

// Manager owns one wallet ConnectionState and keeps it in step with an account
// provider. Provider notifications are queued and applied in arrival order by a
// single goroutine; Connect/Disconnect mutate the same record under the same
// lock. Every mutation replaces the whole record and bumps its Version.
//
// Disconnects (explicit, or an empty accounts notification) advance the
// session epoch; a Connect result is applied only if its epoch is still
// current and the state is still connecting.
type Manager struct {
	logger   *slog.Logger
	provider spec.AccountProvider
	store    spec.RecordStore
	timeout  time.Duration
	onAddr   func(prev, next string)

	mu       sync.Mutex
	state    spec.ConnectionState
	epoch    uint64
	inflight *attempt
	watchers map[chan spec.ConnectionState]struct{}
	running  bool

	events    chan event
	stop      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once
}

func New(cfg Config) *Manager {
	m := &Manager{
		logger:   cfg.Logger,
		provider: cfg.Provider,
		store:    cfg.Store,
		timeout:  cfg.ProviderTimeout,
		onAddr:   cfg.OnAddressChange,
		watchers: map[chan spec.ConnectionState]struct{}{},
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.timeout <= 0 {
		m.timeout = defaultProviderTimeout
	}
	buf := cfg.EventBuffer
	if buf <= 0 {
		buf = defaultEventBuffer
	}
	m.events = make(chan event, buf)
	return m
}

// Start subscribes to provider notifications and starts the event loop.
// Without a provider there is nothing to subscribe to and Start is a no-op.
func (m *Manager) Start() {
	if m.provider == nil {
		return
	}
	m.mu.Lock()
	select {
	case <-m.stop:
		m.mu.Unlock()
		return
	default:
	}
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.provider.OnAccountsChanged(func(accounts []string) {
		m.enqueue(event{kind: eventAccountsChanged, accounts: slices.Clone(accounts)})
	})
	m.provider.OnChainChanged(func(chainID uint64) {
		m.enqueue(event{kind: eventChainChanged, chainID: chainID})
	})

	go m.loop()
}

// Close unsubscribes from the provider and stops the event loop. Events still
// queued are dropped. Safe to call more than once.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		running := m.running
		m.mu.Unlock()

		if m.provider != nil {
			m.provider.RemoveAllListeners()
		}
		close(m.stop)
		if running {
			<-m.loopDone
		}

		m.mu.Lock()
		for ch := range m.watchers {
			delete(m.watchers, ch)
			close(ch)
		}
		m.mu.Unlock()
	})
}

// State returns a snapshot of the current record.
func (m *Manager) State() spec.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Watch returns a channel that receives the current snapshot immediately and
// then every later one. A slow reader only ever misses intermediate snapshots,
// never the latest. The channel closes when ctx ends or the manager closes.
func (m *Manager) Watch(ctx context.Context) <-chan spec.ConnectionState {
	ch := make(chan spec.ConnectionState, 1)

	m.mu.Lock()
	select {
	case <-m.stop:
		m.mu.Unlock()
		close(ch)
		return ch
	default:
	}
	ch <- m.state
	m.watchers[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-m.stop:
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.watchers[ch]; ok {
			delete(m.watchers, ch)
			close(ch)
		}
	}()
	return ch
}

// Sync blocks until every notification queued before the call has been applied.
func (m *Manager) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	if !running {
		return errNotRunning
	}

	done := make(chan struct{})
	select {
	case m.events <- event{kind: eventBarrier, done: done}:
	case <-m.stop:
		return errNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-m.stop:
		return errNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect requests account access and network from the provider.
//
// A call made while another attempt is in flight joins that attempt and gets
// its outcome; the provider sees a single request. The attempt itself is not
// bound to ctx: cancelling ctx only stops this caller from waiting. A result
// that resolves after the session was reset is dropped and the current
// snapshot is returned without error.
func (m *Manager) Connect(ctx context.Context) (spec.ConnectionState, error) {
	if m.provider == nil {
		return m.State(), spec.ErrProviderUnavailable
	}
	if err := ctx.Err(); err != nil {
		return m.State(), err
	}

	m.mu.Lock()
	a := m.inflight
	if a != nil {
		a.waiters++
		m.logger.Debug("connect coalesced onto in-flight attempt", "waiters", a.waiters)
	} else {
		a = &attempt{epoch: m.epoch, wasConnected: m.state.IsConnected, done: make(chan struct{})}
		m.inflight = a

		next := m.state
		next.IsConnecting = true
		m.commitLocked(next)

		go m.runAttempt(context.WithoutCancel(ctx), a)
	}
	m.mu.Unlock()

	select {
	case <-a.done:
	case <-ctx.Done():
		return m.State(), ctx.Err()
	}

	if errors.Is(a.err, spec.ErrStaleResponse) {
		return m.State(), nil
	}
	return a.state, a.err
}

func (m *Manager) runAttempt(ctx context.Context, a *attempt) {
	accounts, chainID, err := m.requestAccess(ctx)

	m.mu.Lock()
	a.state, a.err = m.finishAttemptLocked(ctx, a, accounts, chainID, err)
	m.mu.Unlock()

	close(a.done)
}

func (m *Manager) requestAccess(ctx context.Context) ([]string, uint64, error) {
	accounts, err := callWithTimeout(ctx, m.timeout, m.provider.RequestAccounts)
	if err != nil {
		return nil, 0, classify(err)
	}
	chainID, err := callWithTimeout(ctx, m.timeout, m.provider.ChainID)
	if err != nil {
		return nil, 0, classify(err)
	}
	if len(accounts) == 0 {
		return nil, 0, fmt.Errorf("%w: provider returned no accounts", spec.ErrProviderError)
	}
	return accounts, chainID, nil
}

func (m *Manager) finishAttemptLocked(
	ctx context.Context,
	a *attempt,
	accounts []string,
	chainID uint64,
	err error,
) (spec.ConnectionState, error) {
	current := m.inflight == a
	if current {
		m.inflight = nil
	}

	if !current || a.epoch != m.epoch || !m.state.IsConnecting {
		if err != nil {
			// The session was reset meanwhile; report the failure, touch nothing.
			return m.state, err
		}
		m.logger.Debug("dropping connect result", "error", spec.ErrStaleResponse, "address", accounts[0])
		return m.state, spec.ErrStaleResponse
	}

	if err != nil {
		next := emptyState()
		if a.wasConnected {
			next = m.state
			next.IsConnecting = false
		}
		m.commitLocked(next)
		m.logger.Info("wallet connect failed", "error", err)
		return m.state, err
	}

	m.commitLocked(spec.ConnectionState{
		Address:     accounts[0],
		IsConnected: true,
		ChainID:     chainID,
	})
	m.saveRecordLocked(ctx, accounts[0])
	m.logger.Info("wallet connected", "address", accounts[0], "chainId", chainID)
	return m.state, nil
}

// Disconnect resets the state to empty and clears the advisory record.
// It always succeeds and is idempotent. An in-flight Connect is not aborted;
// its result will be dropped.
func (m *Manager) Disconnect(ctx context.Context) spec.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetLocked(context.WithoutCancel(ctx))
	return m.state
}

func (m *Manager) resetLocked(ctx context.Context) {
	m.epoch++
	m.inflight = nil
	if !sameFields(m.state, emptyState()) {
		m.commitLocked(emptyState())
		m.logger.Info("wallet disconnected")
	}
	m.clearRecordLocked(ctx)
}

// Restore adopts an already-authorized account without prompting. The live
// provider is authoritative: with no authorized account the state stays empty
// and a leftover advisory record is cleared. Failures are logged, never
// returned.
func (m *Manager) Restore(ctx context.Context) spec.ConnectionState {
	if m.provider == nil {
		return m.State()
	}

	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	if hint, ok := m.LastKnownAddress(ctx); ok {
		m.logger.Debug("advisory record present", "address", hint)
	}

	accounts, err := callWithTimeout(ctx, m.timeout, m.provider.ListAuthorizedAccounts)
	if err != nil {
		m.logger.Warn("restore: listing authorized accounts failed", "error", classify(err))
		return m.State()
	}
	var chainID uint64
	if len(accounts) > 0 {
		chainID, err = callWithTimeout(ctx, m.timeout, m.provider.ChainID)
		if err != nil {
			m.logger.Warn("restore: reading network failed", "error", classify(err))
			return m.State()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.epoch || m.inflight != nil || m.state.IsConnected {
		// A live connect or disconnect happened meanwhile and wins.
		return m.state
	}
	if len(accounts) == 0 {
		m.clearRecordLocked(context.WithoutCancel(ctx))
		return m.state
	}

	m.commitLocked(spec.ConnectionState{
		Address:     accounts[0],
		IsConnected: true,
		ChainID:     chainID,
	})
	m.saveRecordLocked(context.WithoutCancel(ctx), accounts[0])
	m.logger.Info("wallet session restored", "address", accounts[0], "chainId", chainID)
	return m.state
}

// LastKnownAddress reads the advisory record. It is a hint for display only.
func (m *Manager) LastKnownAddress(ctx context.Context) (string, bool) {
	if m.store == nil {
		return "", false
	}
	addr, ok, err := m.store.LoadAddress(ctx)
	if err != nil {
		m.logger.Warn("reading advisory record failed", "error", err)
		return "", false
	}
	return addr, ok
}

func (m *Manager) enqueue(ev event) {
	select {
	case m.events <- ev:
	case <-m.stop:
	}
}

func (m *Manager) loop() {
	defer close(m.loopDone)
	for {
		select {
		case ev := <-m.events:
			m.apply(ev)
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) apply(ev event) {
	if ev.kind == eventBarrier {
		close(ev.done)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.kind {
	case eventAccountsChanged:
		if len(ev.accounts) == 0 {
			m.resetLocked(context.Background())
			return
		}
		if !m.state.IsConnected {
			m.logger.Debug("ignoring accounts change without a session", "address", ev.accounts[0])
			return
		}
		if m.state.Address == ev.accounts[0] {
			return
		}
		next := m.state
		next.Address = ev.accounts[0]
		m.commitLocked(next)
		m.saveRecordLocked(context.Background(), ev.accounts[0])
		m.logger.Info("wallet account changed", "address", ev.accounts[0])

	case eventChainChanged:
		if !m.state.IsConnected && !m.state.IsConnecting {
			m.logger.Debug("ignoring network change without a session", "chainId", ev.chainID)
			return
		}
		if m.state.ChainID == ev.chainID {
			return
		}
		next := m.state
		next.ChainID = ev.chainID
		m.commitLocked(next)
		m.logger.Info("wallet network changed", "chainId", ev.chainID)
	}
}

// commitLocked replaces the record and fans the snapshot out to watchers.
func (m *Manager) commitLocked(next spec.ConnectionState) {
	prev := m.state
	next.Version = prev.Version + 1
	m.state = next

	if m.onAddr != nil && prev.Address != next.Address {
		m.onAddr(prev.Address, next.Address)
	}

	for ch := range m.watchers {
		select {
		case ch <- next:
		default:
			// Replace the unread snapshot with the latest one.
			select {
			case <-ch:
			default:
			}
			ch <- next
		}
	}
}

func (m *Manager) saveRecordLocked(ctx context.Context, address string) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := m.store.SaveAddress(ctx, address); err != nil {
		m.logger.Warn("writing advisory record failed", "error", err)
	}
}

func (m *Manager) clearRecordLocked(ctx context.Context) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := m.store.ClearAddress(ctx); err != nil {
		m.logger.Warn("clearing advisory record failed", "error", err)
	}
}

// callWithTimeout runs fn with a deadline and returns when either fn or the
// deadline finishes, so a provider that ignores ctx cannot strand the caller.
func callWithTimeout[T any](
	ctx context.Context,
	timeout time.Duration,
	fn func(context.Context) (T, error),
) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// classify maps provider failures onto the sentinel errors while keeping
// the cause reachable through errors.Is.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, spec.ErrUserRejected),
		errors.Is(err, spec.ErrProviderTimeout),
		errors.Is(err, spec.ErrProviderError):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Join(spec.ErrProviderTimeout, err)
	default:
		return errors.Join(spec.ErrProviderError, err)
	}
}
