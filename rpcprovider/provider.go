// Package rpcprovider implements spec.AccountProvider over Ethereum JSON-RPC
// (an EIP-1193 bridge, a wallet daemon or a node's unlocked accounts).
//
// JSON-RPC has no push channel for account or network switches over plain
// HTTP, so change notifications are produced by polling eth_accounts and
// eth_chainId and diffing against the previous observation.
package rpcprovider

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/flexigpt/skillchain-go/spec"
)

const (
	// CodeUserRejected is the EIP-1193 "user rejected the request" code.
	CodeUserRejected = 4001

	codeMethodNotFound = -32601

	defaultPollInterval = 4 * time.Second
)

type Config struct {
	// PollInterval between change checks. Zero uses 4s; negative disables the
	// background poller (Poll may still be called directly).
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Provider is safe for concurrent use.
type Provider struct {
	client       *rpc.Client
	logger       *slog.Logger
	pollInterval time.Duration

	mu         sync.Mutex
	accountFns []func([]string)
	chainFns   []func(uint64)
	stop       chan struct{}
	done       chan struct{}

	// Last observation; valid once primed.
	primed   bool
	accounts []string
	chainID  uint64
}

var _ spec.AccountProvider = (*Provider)(nil)

// Dial connects to an endpoint (http, ws or ipc path).
func Dial(ctx context.Context, rawurl string, cfg Config) (*Provider, error) {
	c, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, errors.Join(spec.ErrProviderUnavailable, err)
	}
	return New(c, cfg), nil
}

// New wraps an existing client. The caller keeps ownership of the client
// unless Close is called.
func New(client *rpc.Client, cfg Config) *Provider {
	p := &Provider{
		client:       client,
		logger:       cfg.Logger,
		pollInterval: cfg.PollInterval,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.pollInterval == 0 {
		p.pollInterval = defaultPollInterval
	}
	return p
}

// RequestAccounts calls eth_requestAccounts, falling back to eth_accounts on
// endpoints that do not implement it.
func (p *Provider) RequestAccounts(ctx context.Context) ([]string, error) {
	accts, err := p.accountsVia(ctx, "eth_requestAccounts")
	if err != nil && rpcCode(err) == codeMethodNotFound {
		return p.accountsVia(ctx, "eth_accounts")
	}
	return accts, err
}

func (p *Provider) ListAuthorizedAccounts(ctx context.Context) ([]string, error) {
	return p.accountsVia(ctx, "eth_accounts")
}

func (p *Provider) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := p.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return 0, mapError(err)
	}
	return uint64(id), nil
}

func (p *Provider) accountsVia(ctx context.Context, method string) ([]string, error) {
	var raw []common.Address
	if err := p.client.CallContext(ctx, &raw, method); err != nil {
		return nil, mapError(err)
	}
	out := make([]string, 0, len(raw))
	for _, a := range raw {
		out = append(out, a.Hex())
	}
	return out, nil
}

func (p *Provider) OnAccountsChanged(fn func([]string)) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	p.accountFns = append(p.accountFns, fn)
	p.startPollingLocked()
	p.mu.Unlock()
}

func (p *Provider) OnChainChanged(fn func(uint64)) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	p.chainFns = append(p.chainFns, fn)
	p.startPollingLocked()
	p.mu.Unlock()
}

// RemoveAllListeners drops every handler and stops the poller.
func (p *Provider) RemoveAllListeners() {
	p.mu.Lock()
	p.accountFns = nil
	p.chainFns = nil
	p.primed = false
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// Close stops polling and closes the underlying client.
func (p *Provider) Close() {
	p.RemoveAllListeners()
	p.client.Close()
}

// Poll observes accounts and chain once and notifies handlers of changes since
// the previous observation. The first observation after subscribing only
// records a baseline.
func (p *Provider) Poll(ctx context.Context) error {
	accts, err := p.ListAuthorizedAccounts(ctx)
	if err != nil {
		return err
	}
	chainID, err := p.ChainID(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if !p.primed {
		p.primed = true
		p.accounts, p.chainID = accts, chainID
		p.mu.Unlock()
		return nil
	}
	accountsChanged := !slices.Equal(p.accounts, accts)
	chainChanged := p.chainID != chainID
	p.accounts, p.chainID = accts, chainID
	accountFns := slices.Clone(p.accountFns)
	chainFns := slices.Clone(p.chainFns)
	p.mu.Unlock()

	if accountsChanged {
		for _, fn := range accountFns {
			fn(slices.Clone(accts))
		}
	}
	if chainChanged {
		for _, fn := range chainFns {
			fn(chainID)
		}
	}
	return nil
}

func (p *Provider) startPollingLocked() {
	if p.pollInterval < 0 || p.stop != nil {
		return
	}
	stop, done := make(chan struct{}), make(chan struct{})
	p.stop, p.done = stop, done
	go p.pollLoop(stop, done)
}

func (p *Provider) pollLoop(stop, done chan struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	tick := time.NewTicker(p.pollInterval)
	defer tick.Stop()
	for {
		if err := p.pollOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Debug("rpcprovider: poll failed", "err", err)
		}
		select {
		case <-stop:
			return
		case <-tick.C:
		}
	}
}

func (p *Provider) pollOnce(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, p.pollInterval)
	defer cancel()
	return p.Poll(pctx)
}

func rpcCode(err error) int {
	var re rpc.Error
	if errors.As(err, &re) {
		return re.ErrorCode()
	}
	return 0
}

// mapError classifies JSON-RPC failures. Context errors pass through untouched
// so callers can tell a deadline from a provider fault.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if rpcCode(err) == CodeUserRejected {
		return errors.Join(spec.ErrUserRejected, err)
	}
	return errors.Join(spec.ErrProviderError, err)
}
