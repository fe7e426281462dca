package verification

import (
	"container/list"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flexigpt/skillchain-go/spec"
)

const (
	defaultTTL = 30 * time.Minute
	defaultMax = 1024
)

type StoreConfig struct {
	TTL        time.Duration
	MaxEntries int

	// Now is used for timestamps and expiry; defaults to time.Now.
	Now func() time.Time
}

// Store keeps recent reviewer verifications in memory, bounded by TTL and an
// LRU size limit.
type Store struct {
	mu sync.Mutex

	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	lru *list.List               // front=MRU
	m   map[string]*list.Element // id -> element(Value=*item)
}

type item struct {
	v        spec.Verification
	lastUsed time.Time
}

func NewStore(cfg StoreConfig) *Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	maxE := cfg.MaxEntries
	if maxE <= 0 {
		maxE = defaultMax
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		ttl:        ttl,
		maxEntries: maxE,
		now:        now,
		lru:        list.New(),
		m:          map[string]*list.Element{},
	}
}

// Add assigns an ID and timestamp to v and stores it.
func (st *Store) Add(v spec.Verification) spec.Verification {
	now := st.now()

	v.ID = spec.VerificationID(uuid.Must(uuid.NewV7()).String())
	v.CheckedAt = now.UTC()
	v.RequiredSkills = slices.Clone(v.RequiredSkills)
	v.Result.RelevantCredentials = slices.Clone(v.Result.RelevantCredentials)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)

	e := st.lru.PushFront(&item{v: v, lastUsed: now})
	st.m[string(v.ID)] = e

	st.evictOverLimitLocked()
	return v
}

func (st *Store) Get(id spec.VerificationID) (spec.Verification, bool) {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)

	e := st.m[string(id)]
	if e == nil {
		return spec.Verification{}, false
	}
	it, _ := e.Value.(*item)
	if it == nil {
		st.deleteElemLocked(e)
		return spec.Verification{}, false
	}

	it.lastUsed = now
	st.lru.MoveToFront(e)
	return it.v, true
}

// ForgetExcept drops every verification not made for keep. An empty keep
// drops everything.
func (st *Store) ForgetExcept(keep string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for e := st.lru.Front(); e != nil; {
		next := e.Next()
		if it, _ := e.Value.(*item); it == nil || keep == "" || !strings.EqualFold(it.v.Holder, keep) {
			st.deleteElemLocked(e)
		}
		e = next
	}
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lru.Len()
}

func (st *Store) evictExpiredLocked(now time.Time) {
	for e := st.lru.Back(); e != nil; {
		prev := e.Prev()
		it, ok := e.Value.(*item)
		if !ok || it == nil {
			st.deleteElemLocked(e)
			e = prev
			continue
		}
		if now.Sub(it.lastUsed) <= st.ttl {
			break
		}
		st.deleteElemLocked(e)
		e = prev
	}
}

func (st *Store) evictOverLimitLocked() {
	for st.lru.Len() > st.maxEntries {
		e := st.lru.Back()
		if e == nil {
			return
		}
		st.deleteElemLocked(e)
	}
}

func (st *Store) deleteElemLocked(e *list.Element) {
	if it, _ := e.Value.(*item); it != nil {
		delete(st.m, string(it.v.ID))
	}
	st.lru.Remove(e)
}
