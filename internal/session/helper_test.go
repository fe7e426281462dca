package session

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flexigpt/skillchain-go/recordstore"
	"github.com/flexigpt/skillchain-go/spec"
)

type fakeProvider struct {
	requestCalls atomic.Int32
	listCalls    atomic.Int32
	chainCalls   atomic.Int32
	removed      atomic.Int32

	requestFn func(context.Context) ([]string, error)
	listFn    func(context.Context) ([]string, error)
	chainFn   func(context.Context) (uint64, error)

	mu               sync.Mutex
	accountsHandlers []func([]string)
	chainHandlers    []func(uint64)
}

func (p *fakeProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	p.requestCalls.Add(1)
	if p.requestFn != nil {
		return p.requestFn(ctx)
	}
	return []string{"0xabc"}, nil
}

func (p *fakeProvider) ListAuthorizedAccounts(ctx context.Context) ([]string, error) {
	p.listCalls.Add(1)
	if p.listFn != nil {
		return p.listFn(ctx)
	}
	return nil, nil
}

func (p *fakeProvider) ChainID(ctx context.Context) (uint64, error) {
	p.chainCalls.Add(1)
	if p.chainFn != nil {
		return p.chainFn(ctx)
	}
	return 1, nil
}

func (p *fakeProvider) OnAccountsChanged(fn func([]string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accountsHandlers = append(p.accountsHandlers, fn)
}

func (p *fakeProvider) OnChainChanged(fn func(uint64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chainHandlers = append(p.chainHandlers, fn)
}

func (p *fakeProvider) RemoveAllListeners() {
	p.removed.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accountsHandlers = nil
	p.chainHandlers = nil
}

func (p *fakeProvider) emitAccounts(accounts ...string) {
	p.mu.Lock()
	hs := slices.Clone(p.accountsHandlers)
	p.mu.Unlock()
	for _, h := range hs {
		h(accounts)
	}
}

func (p *fakeProvider) emitChain(id uint64) {
	p.mu.Lock()
	hs := slices.Clone(p.chainHandlers)
	p.mu.Unlock()
	for _, h := range hs {
		h(id)
	}
}

// gate blocks provider calls until released, and reports when a call entered.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (g *gate) wait(ctx context.Context) error {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func mustNewManager(t *testing.T, p spec.AccountProvider, store spec.RecordStore) *Manager {
	t.Helper()
	cfg := Config{Store: store, ProviderTimeout: 5 * time.Second}
	if p != nil {
		cfg.Provider = p
	}
	m := New(cfg)
	m.Start()
	t.Cleanup(m.Close)
	return m
}

func mustConnect(t *testing.T, m *Manager) spec.ConnectionState {
	t.Helper()
	s, err := m.Connect(t.Context())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	assertInvariant(t, s)
	return s
}

func mustSync(t *testing.T, m *Manager) {
	t.Helper()
	if err := m.Sync(t.Context()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

func assertInvariant(t *testing.T, s spec.ConnectionState) {
	t.Helper()
	if s.IsConnected != (s.Address != "") {
		t.Fatalf("invariant broken: isConnected=%v address=%q", s.IsConnected, s.Address)
	}
}

func recordOf(t *testing.T, store *recordstore.Memory) (string, bool) {
	t.Helper()
	addr, ok, err := store.LoadAddress(t.Context())
	if err != nil {
		t.Fatalf("LoadAddress: %v", err)
	}
	return addr, ok
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func (m *Manager) inflightWaiters() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight == nil {
		return -1
	}
	return m.inflight.waiters
}
