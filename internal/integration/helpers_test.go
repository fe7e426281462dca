package integration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	skillchain "github.com/flexigpt/skillchain-go"
	"github.com/flexigpt/skillchain-go/credsource"
	"github.com/flexigpt/skillchain-go/recordstore/badgerstore"
	"github.com/flexigpt/skillchain-go/rpcprovider"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
)

const credentialsYAML = `
holders:
  "0x1111111111111111111111111111111111111111":
    - {id: "1", skill: React, level: Expert, verified: true, tokenId: "1"}
    - {id: "2", skill: Solidity, level: Intermediate, verified: false}
  "0x2222222222222222222222222222222222222222":
    - {id: "3", skill: Go, level: Advanced, verified: true}
`

type rejection struct{}

func (rejection) Error() string  { return "User rejected the request." }
func (rejection) ErrorCode() int { return rpcprovider.CodeUserRejected }

// walletBridge plays the wallet side of the JSON-RPC connection ("eth"
// namespace).
type walletBridge struct {
	mu         sync.Mutex
	authorized []common.Address
	selected   []common.Address
	chainID    uint64
	reject     bool
	gate       chan struct{}

	requestCalls atomic.Int32
}

func (w *walletBridge) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	w.requestCalls.Add(1)
	w.mu.Lock()
	gate, reject := w.gate, w.reject
	w.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if reject {
		return nil, rejection{}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.authorized = append([]common.Address(nil), w.selected...)
	return append([]common.Address(nil), w.authorized...), nil
}

func (w *walletBridge) Accounts() []common.Address {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]common.Address(nil), w.authorized...)
}

func (w *walletBridge) ChainId() hexutil.Uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return hexutil.Uint64(w.chainID)
}

func (w *walletBridge) selectAccounts(addrs ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selected = nil
	for _, a := range addrs {
		w.selected = append(w.selected, common.HexToAddress(a))
	}
}

// switchTo changes the authorized account set, as a user switching accounts
// in the wallet would.
func (w *walletBridge) switchTo(addrs ...string) {
	w.selectAccounts(addrs...)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.authorized = append([]common.Address(nil), w.selected...)
}

func (w *walletBridge) setChain(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chainID = id
}

type harness struct {
	wallet   *walletBridge
	provider *rpcprovider.Provider
	stateDir string
	credFile string
}

func newHarness(t *testing.T, chainID uint64, selected ...string) *harness {
	t.Helper()

	w := &walletBridge{chainID: chainID}
	w.selectAccounts(selected...)

	srv := rpc.NewServer()
	if err := srv.RegisterName("eth", w); err != nil {
		t.Fatalf("register wallet: %v", err)
	}
	t.Cleanup(srv.Stop)

	p := rpcprovider.New(rpc.DialInProc(srv), rpcprovider.Config{PollInterval: -1})
	t.Cleanup(p.Close)

	dir := t.TempDir()
	credFile := filepath.Join(dir, "credentials.yaml")
	if err := os.WriteFile(credFile, []byte(credentialsYAML), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	return &harness{
		wallet:   w,
		provider: p,
		stateDir: filepath.Join(dir, "state"),
		credFile: credFile,
	}
}

// newRuntime opens the durable record store and builds a started runtime. The
// store and runtime are closed by the returned func, which is also registered
// for cleanup.
func (h *harness) newRuntime(t *testing.T, opts ...skillchain.Option) (*skillchain.Runtime, func()) {
	t.Helper()

	store, err := badgerstore.Open(h.stateDir)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	creds, err := credsource.NewCached(credsource.NewFile(h.credFile), credsource.CacheConfig{TTL: time.Minute})
	if err != nil {
		t.Fatalf("credential cache: %v", err)
	}

	base := []skillchain.Option{
		skillchain.WithProvider(h.provider),
		skillchain.WithRecordStore(store),
		skillchain.WithCredentialSource(creds),
		skillchain.WithProviderTimeout(5 * time.Second),
	}
	rt, err := skillchain.New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var once sync.Once
	closeAll := func() {
		once.Do(func() {
			rt.Close()
			creds.Close()
			if err := store.Close(); err != nil {
				t.Errorf("close badger: %v", err)
			}
		})
	}
	t.Cleanup(closeAll)
	return rt, closeAll
}

// poll drives one provider observation and waits until the runtime applied
// whatever it produced.
func (h *harness) poll(t *testing.T, rt *skillchain.Runtime) {
	t.Helper()
	if err := h.provider.Poll(t.Context()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if err := rt.Sync(t.Context()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

func checksum(addr string) string { return common.HexToAddress(addr).Hex() }
