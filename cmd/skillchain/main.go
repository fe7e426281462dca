// Command skillchain restores or connects a wallet session and checks whether
// the connected holder may review work requiring a set of skills. The outcome
// is printed as JSON on stdout; state changes are logged on stderr.
//
// Configuration comes from SKILLCHAIN_* environment variables; flags override
// them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	skillchain "github.com/flexigpt/skillchain-go"
	"github.com/flexigpt/skillchain-go/credsource"
	"github.com/flexigpt/skillchain-go/eligibility"
	"github.com/flexigpt/skillchain-go/recordstore"
	"github.com/flexigpt/skillchain-go/recordstore/badgerstore"
	"github.com/flexigpt/skillchain-go/rpcprovider"
	"github.com/flexigpt/skillchain-go/spec"

	"github.com/flexigpt/skillchain-go/internal/config"
)

type plan struct {
	Connect    bool
	Disconnect bool
	Skills     []string
	Watch      time.Duration
}

type report struct {
	LastKnownAddress string               `json:"lastKnownAddress,omitempty"`
	State            spec.ConnectionState `json:"state"`
	Status           spec.Status          `json:"status"`
	Verification     *spec.Verification   `json:"verification,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var p plan
	var skills string
	fs := flag.NewFlagSet("skillchain", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.RPCURL, "rpc", cfg.RPCURL, "wallet JSON-RPC endpoint (default: SKILLCHAIN_RPC_URL)")
	fs.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for the session record; empty keeps it in memory")
	fs.StringVar(&cfg.CredentialsFile, "credentials", cfg.CredentialsFile, "YAML credential file")
	fs.DurationVar(&cfg.ProviderTimeout, "timeout", cfg.ProviderTimeout, "per-call wallet timeout")
	fs.BoolVar(&p.Connect, "connect", false, "request wallet access if no session can be restored")
	fs.BoolVar(&p.Disconnect, "disconnect", false, "disconnect before exiting")
	fs.StringVar(&skills, "skills", "", "comma-separated skills required for review")
	fs.DurationVar(&p.Watch, "watch", 0, "keep following wallet changes for this long")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p.Skills = splitCSV(skills)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	store, closeStore, err := openRecordStore(cfg.StateDir)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []skillchain.Option{
		skillchain.WithLogger(logger),
		skillchain.WithRecordStore(store),
		skillchain.WithProviderTimeout(cfg.ProviderTimeout),
		skillchain.WithPolicy(eligibility.Policy{MinLevel: cfg.MinLevel}),
	}

	if cfg.CredentialsFile != "" {
		cached, err := credsource.NewCached(
			credsource.NewFile(cfg.CredentialsFile),
			credsource.CacheConfig{TTL: cfg.CredentialCacheTTL},
		)
		if err != nil {
			return fmt.Errorf("credential cache: %w", err)
		}
		defer cached.Close()
		opts = append(opts, skillchain.WithCredentialSource(cached))
	}

	if cfg.RPCURL != "" {
		provider, err := rpcprovider.Dial(ctx, cfg.RPCURL, rpcprovider.Config{
			PollInterval: cfg.PollInterval,
			Logger:       logger,
		})
		if err != nil {
			return fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
		}
		defer provider.Close()
		opts = append(opts, skillchain.WithProvider(provider))
	}

	rt, err := skillchain.New(opts...)
	if err != nil {
		return err
	}
	defer rt.Close()

	var rep report
	g, gctx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gctx)
	defer stopWatch()

	g.Go(func() error {
		for st := range rt.Watch(watchCtx) {
			logger.Info("wallet state",
				"status", st.Status(),
				"address", st.Address,
				"chainId", st.ChainID,
				"version", st.Version,
			)
		}
		return nil
	})
	g.Go(func() error {
		defer stopWatch()
		var err error
		rep, err = execute(gctx, rt, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func execute(ctx context.Context, rt *skillchain.Runtime, p plan) (report, error) {
	var rep report
	if addr, ok := rt.LastKnownAddress(ctx); ok {
		rep.LastKnownAddress = addr
	}

	st := rt.Start(ctx)
	if p.Connect && !st.IsConnected {
		if _, err := rt.Connect(ctx); err != nil {
			return rep, fmt.Errorf("connect: %w", err)
		}
	}

	if len(p.Skills) > 0 {
		v, err := rt.CheckReviewer(ctx, p.Skills)
		if err != nil {
			return rep, fmt.Errorf("reviewer check: %w", err)
		}
		rep.Verification = &v
	}

	if p.Watch > 0 {
		select {
		case <-ctx.Done():
			return rep, ctx.Err()
		case <-time.After(p.Watch):
		}
	}

	if p.Disconnect {
		rt.Disconnect(ctx)
	}

	st = rt.State()
	rep.State = st
	rep.Status = st.Status()
	return rep, nil
}

func openRecordStore(dir string) (spec.RecordStore, func(), error) {
	if strings.TrimSpace(dir) == "" {
		return recordstore.NewMemory(), func() {}, nil
	}
	clean := filepath.Clean(dir)
	if err := os.MkdirAll(clean, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create state dir: %w", err)
	}
	s, err := badgerstore.Open(clean)
	if err != nil {
		return nil, nil, fmt.Errorf("open state store: %w", err)
	}
	return s, func() {
		if err := s.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: close state store: %v\n", err)
		}
	}, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	output := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		output = append(output, trimmed)
	}
	return output
}
