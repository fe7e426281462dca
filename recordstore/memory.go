// Package recordstore holds implementations of spec.RecordStore, the advisory
// last-known-address record.
package recordstore

import (
	"context"
	"sync"

	"github.com/flexigpt/skillchain-go/spec"
)

// Memory is an in-process RecordStore. It is the default when no durable store
// is configured and survives only as long as the process.
type Memory struct {
	mu      sync.Mutex
	address string
	ok      bool
}

var _ spec.RecordStore = (*Memory)(nil)

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) LoadAddress(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.address, m.ok, nil
}

func (m *Memory) SaveAddress(ctx context.Context, address string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.address, m.ok = address, true
	return nil
}

func (m *Memory) ClearAddress(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.address, m.ok = "", false
	return nil
}
