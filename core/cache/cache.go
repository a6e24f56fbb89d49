// Package cache implements a process-wide, keyed stale-while-revalidate
// store: previously fetched data is served instantly while fresh data is
// fetched in the background, with at most one in-flight fetch per key.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/sgescola/sge/core"
)

// ErrUnknownKey is returned by Refresh when no fetch was ever registered
// for the key.
var ErrUnknownKey = errors.New("cache: unknown key")

// FetchFunc loads the payload for a key. Timeouts are the fetch's own
// concern; the store surfaces whatever error it returns.
type FetchFunc func(ctx context.Context) (interface{}, error)

// Result is a point-in-time snapshot of a cache entry.
type Result struct {
	Data      interface{}
	UpdatedAt time.Time
	Loading   bool  // observable loading flag; silent refreshes never flip it
	Err       error // last fetch error; Data remains last-known-good
}

type entry struct {
	data      interface{}
	updatedAt time.Time
	loading   bool
	err       error
	fetch     FetchFunc
}

func (e *entry) snapshot() Result {
	return Result{Data: e.data, UpdatedAt: e.updatedAt, Loading: e.loading, Err: e.err}
}

// Store maps string keys to cached payloads. Entries are never expired by
// the store itself; staleness policy belongs to callers (revalidation,
// polling, write-path invalidation).
type Store struct {
	logger core.Logger // optional

	mu      sync.Mutex
	entries map[string]*entry
	gens    map[string]uint64 // bumped by invalidation; checked at write-back
	sf      singleflight.Group
}

func NewStore(logger core.Logger) *Store {
	return &Store{
		logger:  logger,
		entries: make(map[string]*entry),
		gens:    make(map[string]uint64),
	}
}

// GetOrFetch returns the entry for key, fetching it first if the key has
// never been fetched successfully. An existing entry is returned as-is
// without invoking fetch; revalidate additionally triggers a silent
// background refresh (stale-while-revalidate). Concurrent first fetches
// for the same key share a single fetch invocation.
func (s *Store) GetOrFetch(ctx context.Context, key string, fetch FetchFunc, revalidate bool) (Result, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok {
		e.fetch = fetch
		if !e.updatedAt.IsZero() {
			res := e.snapshot()
			s.mu.Unlock()
			if revalidate {
				// detached: the revalidation outlives the request that mounted it
				go func() { _, _ = s.Refresh(context.Background(), key, true) }()
			}
			return res, nil
		}
		// first fetch still in flight; join it below
	} else {
		s.entries[key] = &entry{fetch: fetch, loading: true}
	}
	s.mu.Unlock()

	data, err := s.fetchOne(ctx, key, fetch)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		// no fetch ever succeeded: leave the key absent
		if e, ok := s.entries[key]; ok && e.updatedAt.IsZero() {
			delete(s.entries, key)
		}
		return Result{Err: err}, err
	}
	if e, ok := s.entries[key]; ok {
		e.loading = false
		return e.snapshot(), nil
	}
	// entry invalidated while the fetch was in flight
	return Result{Data: data, UpdatedAt: time.Now().UTC()}, nil
}

// Refresh re-invokes the fetch registered for key. A non-silent refresh
// flips the observable loading flag for the duration of the call; a silent
// one leaves it untouched so currently displayed data stays uninterrupted.
// On failure the previous data is retained and the error is both recorded
// on the entry and returned.
func (s *Store) Refresh(ctx context.Context, key string, silent bool) (Result, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return Result{}, ErrUnknownKey
	}
	fetch := e.fetch
	if !silent {
		e.loading = true
	}
	s.mu.Unlock()

	_, err := s.fetchOne(ctx, key, fetch)

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		if !silent {
			e.loading = false
		}
		if err != nil {
			e.err = err // stale-but-available over empty
		}
		return e.snapshot(), err
	}
	return Result{Err: err}, err
}

// fetchOne performs the actual fetch for key, deduplicated so that at most
// one fetch per key is in flight; concurrent callers join the existing
// flight. The successful result is written back only if no invalidation
// superseded the fetch while it ran.
func (s *Store) fetchOne(ctx context.Context, key string, fetch FetchFunc) (interface{}, error) {
	s.mu.Lock()
	gen := s.gens[key]
	s.mu.Unlock()

	return s.doFlight(key, func() (interface{}, error) {
		data, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if e, ok := s.entries[key]; ok && s.gens[key] == gen {
			e.data = data
			e.updatedAt = time.Now().UTC()
			e.err = nil
		}
		s.mu.Unlock()
		return data, nil
	})
}

func (s *Store) doFlight(key string, fn func() (interface{}, error)) (interface{}, error) {
	v, err, _ := s.sf.Do(key, fn)
	return v, err
}

// Invalidate removes the entry whose key equals keyOrPrefix and every
// entry whose key starts with it. In-flight fetches for removed keys are
// forgotten so their results are never applied after the invalidation.
func (s *Store) Invalidate(keyOrPrefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if k == keyOrPrefix || strings.HasPrefix(k, keyOrPrefix) {
			s.evict(k)
		}
	}
}

// Flush removes every entry (sign-out / process teardown).
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		s.evict(k)
	}
}

// evict must be called with s.mu held.
func (s *Store) evict(key string) {
	delete(s.entries, key)
	s.gens[key]++
	s.sf.Forget(key)
}

// Peek returns a read-only snapshot of the entry for key, if present.
// It never triggers a fetch.
func (s *Store) Peek(key string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.updatedAt.IsZero() {
		return Result{}, false
	}
	return e.snapshot(), true
}

// Len reports the number of entries holding data.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if !e.updatedAt.IsZero() {
			n++
		}
	}
	return n
}
