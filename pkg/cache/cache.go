package cache

import "sync"

// Collection keys for the shared caches.
const (
	Reports   = "reports"
	Templates = "templates"
	Schedules = "schedules"
)

// Invalidator is the hook services use after a successful mutation.
type Invalidator interface {
	Invalidate(collection string)
}

type entry struct {
	value   any
	version uint64
	valid   bool
}

// Store is a versioned collection cache. Each collection carries a version
// counter; a mutation invalidates the collection, bumping the version and
// notifying subscribers so a refetch is scheduled before stale data can be
// presented as authoritative. Snapshot swaps happen atomically under one
// lock acquisition - no partially-applied update is observable.
type Store struct {
	mu          sync.Mutex
	entries     map[string]entry
	subscribers map[string]map[int]func()
	nextSubID   int
}

// NewStore creates an empty cache.
func NewStore() *Store {
	return &Store{
		entries:     make(map[string]entry),
		subscribers: make(map[string]map[int]func()),
	}
}

// Get returns the cached snapshot, its version, and whether it is still
// valid. An invalidated collection reports ok=false even though its version
// keeps advancing.
func (s *Store) Get(collection string) (any, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[collection]
	return e.value, e.version, e.valid
}

// Put stores a fresh snapshot fetched at version fetchedAt. The write is
// dropped if the collection was invalidated after the fetch started, so a
// slow response never resurrects stale data.
func (s *Store) Put(collection string, value any, fetchedAt uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[collection]
	if e.version != fetchedAt {
		return false
	}
	s.entries[collection] = entry{value: value, version: e.version, valid: true}
	return true
}

// Version returns the collection's current version counter.
func (s *Store) Version(collection string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[collection].version
}

// Invalidate drops the snapshot, bumps the version, and notifies
// subscribers. Called by services after every successful mutation.
func (s *Store) Invalidate(collection string) {
	s.mu.Lock()
	e := s.entries[collection]
	s.entries[collection] = entry{version: e.version + 1}
	var subs []func()
	for _, fn := range s.subscribers[collection] {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Subscribe registers fn to run whenever collection is invalidated, and
// returns an unsubscribe function. Screens use this to schedule refetches.
func (s *Store) Subscribe(collection string, fn func()) func() {
	s.mu.Lock()
	if s.subscribers[collection] == nil {
		s.subscribers[collection] = make(map[int]func())
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[collection][id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers[collection], id)
		s.mu.Unlock()
	}
}

var _ Invalidator = (*Store)(nil)
