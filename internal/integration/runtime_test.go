package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flexigpt/skillchain-go/spec"
)

func TestConnectCheckAndRestoreAcrossRestart(t *testing.T) {
	h := newHarness(t, 11155111, alice)

	rt, closeRT := h.newRuntime(t)
	if st := rt.Start(t.Context()); st.IsConnected {
		t.Fatalf("nothing authorized yet, got %+v", st)
	}

	st, err := rt.Connect(t.Context())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if st.Address != checksum(alice) || st.ChainID != 11155111 || st.IsConnecting {
		t.Fatalf("unexpected state: %+v", st)
	}

	v, err := rt.CheckReviewer(t.Context(), []string{"react", "solidity"})
	if err != nil {
		t.Fatalf("CheckReviewer: %v", err)
	}
	if !v.Result.CanReview || len(v.Result.RelevantCredentials) != 2 {
		t.Fatalf("unexpected result: %+v", v.Result)
	}
	closeRT()

	// A new process sees the remembered address and adopts the still
	// authorized account without prompting.
	rt2, _ := h.newRuntime(t)
	if addr, ok := rt2.LastKnownAddress(t.Context()); !ok || addr != checksum(alice) {
		t.Fatalf("record=%q ok=%v", addr, ok)
	}
	st = rt2.Start(t.Context())
	if !st.IsConnected || st.Address != checksum(alice) {
		t.Fatalf("restore failed: %+v", st)
	}
	if n := h.wallet.requestCalls.Load(); n != 1 {
		t.Fatalf("eth_requestAccounts calls=%d, want 1", n)
	}
}

func TestRestoreClearsRevokedSession(t *testing.T) {
	h := newHarness(t, 1, alice)

	rt, closeRT := h.newRuntime(t)
	rt.Start(t.Context())
	if _, err := rt.Connect(t.Context()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	closeRT()

	// Access revoked in the wallet while the process was down.
	h.wallet.switchTo()

	rt2, _ := h.newRuntime(t)
	if st := rt2.Start(t.Context()); st.IsConnected {
		t.Fatalf("revoked session must not be restored: %+v", st)
	}
	if _, ok := rt2.LastKnownAddress(t.Context()); ok {
		t.Fatalf("stale record must be cleared")
	}
}

func TestWalletSwitchesArePolledAndApplied(t *testing.T) {
	h := newHarness(t, 1, alice)
	rt, _ := h.newRuntime(t)
	rt.Start(t.Context())
	if _, err := rt.Connect(t.Context()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	h.poll(t, rt) // baseline

	before, err := rt.CheckReviewer(t.Context(), []string{"react"})
	if err != nil {
		t.Fatalf("CheckReviewer: %v", err)
	}

	h.wallet.switchTo(bob)
	h.poll(t, rt)
	st := rt.State()
	if st.Address != checksum(bob) || st.ChainID != 1 {
		t.Fatalf("account switch not applied: %+v", st)
	}
	if _, err := rt.Verification(before.ID); !errors.Is(err, spec.ErrVerificationNotFound) {
		t.Fatalf("previous holder's verification must be gone, got %v", err)
	}
	v, err := rt.CheckReviewer(t.Context(), []string{"golang"})
	if err != nil {
		t.Fatalf("CheckReviewer: %v", err)
	}
	if !v.Result.CanReview {
		t.Fatalf("bob holds a verified Go credential: %+v", v.Result)
	}

	h.wallet.setChain(8453)
	h.poll(t, rt)
	if got := rt.State(); got.ChainID != 8453 || got.Address != checksum(bob) {
		t.Fatalf("chain switch not applied: %+v", got)
	}

	h.wallet.switchTo()
	h.poll(t, rt)
	if got := rt.State(); got.IsConnected || got.Address != "" || got.ChainID != 0 {
		t.Fatalf("wallet lock must disconnect: %+v", got)
	}
	if _, ok := rt.LastKnownAddress(t.Context()); ok {
		t.Fatalf("record must be cleared after wallet lock")
	}
}

func TestUserRejection(t *testing.T) {
	h := newHarness(t, 1, alice)
	h.wallet.reject = true

	rt, _ := h.newRuntime(t)
	rt.Start(t.Context())

	st, err := rt.Connect(t.Context())
	if !errors.Is(err, spec.ErrUserRejected) {
		t.Fatalf("want ErrUserRejected, got %v", err)
	}
	if st.IsConnected || st.IsConnecting {
		t.Fatalf("unexpected state after rejection: %+v", st)
	}
}

func TestConcurrentConnectsShareOnePrompt(t *testing.T) {
	h := newHarness(t, 1, alice)
	gate := make(chan struct{})
	h.wallet.gate = gate

	rt, _ := h.newRuntime(t)
	rt.Start(t.Context())

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rt.Connect(context.Background())
			errs <- err
		}()
	}

	deadline := time.Now().Add(5 * time.Second)
	for h.wallet.requestCalls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("wallet never prompted")
		}
		time.Sleep(time.Millisecond)
	}
	// Give the remaining callers a moment to join the pending attempt.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Connect: %v", err)
		}
	}
	if n := h.wallet.requestCalls.Load(); n != 1 {
		t.Fatalf("eth_requestAccounts calls=%d, want 1", n)
	}
	if st := rt.State(); !st.IsConnected || st.Address != checksum(alice) {
		t.Fatalf("unexpected state: %+v", st)
	}
}
