package server

import (
	"sync"
	"time"

	"github.com/devicelab-dev/uidriver/pkg/core"
	"github.com/google/uuid"
)

// defaultHandleTTL is how long a retained element handle stays valid
// without being used. Expired handles resolve as stale.
const defaultHandleTTL = 30 * time.Second

type handleEntry struct {
	ref     core.NodeRef
	expires time.Time
}

// handleStore maps opaque handle ids to native node references. The
// server stays stateless apart from this cache: losing it only costs
// clients a re-resolve.
type handleStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]handleEntry
	stop    chan struct{}
	done    chan struct{}
}

func newHandleStore(ttl time.Duration) *handleStore {
	if ttl <= 0 {
		ttl = defaultHandleTTL
	}
	s := &handleStore{
		ttl:     ttl,
		entries: make(map[string]handleEntry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Put retains a node reference and returns its handle id.
func (s *handleStore) Put(ref core.NodeRef) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.entries[id] = handleEntry{ref: ref, expires: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return id
}

// Get returns the node reference for a handle id and refreshes its TTL.
// Unknown and expired handles are indistinguishable to callers; both
// come back as stale.
func (s *handleStore) Get(id string) (core.NodeRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || time.Now().After(e.expires) {
		delete(s.entries, id)
		return core.NodeRef{}, core.ErrStaleElement.WithMessage("unknown or expired element handle %q", id)
	}
	e.expires = time.Now().Add(s.ttl)
	s.entries[id] = e
	return e.ref, nil
}

func (s *handleStore) janitor() {
	defer close(s.done)
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, e := range s.entries {
				if now.After(e.expires) {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *handleStore) Close() {
	close(s.stop)
	<-s.done
}
