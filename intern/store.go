// Package intern implements the scheduler's content-addressed interning
// store: a process-wide map from opaque keys to (type tag, value), used
// everywhere the scheduler would otherwise need to compare subjects,
// products, selectors or functions by a structural walk.
//
// Storage is append-only within a scheduler's lifetime, sharded across a
// fixed number of buckets guarded by a per-shard sync.RWMutex, following
// the lock-embedding pattern of bittoy-rule's RuleComponentRegistry.
package intern

import (
	"sync"

	"github.com/productgraph/pgsched/types"
)

const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	values  map[types.Key]any
	typeTag map[types.Key]types.Key
}

// Store is the interning store. The zero value is not usable; use New.
type Store struct {
	shards [shardCount]*shard
}

// New returns an empty Store ready for use.
func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{
			values:  make(map[types.Key]any),
			typeTag: make(map[types.Key]types.Key),
		}
	}
	return s
}

func (s *Store) shardFor(k types.Key) *shard {
	// The key's first byte is already a uniform hash output; it is a fine
	// shard selector without any further mixing.
	return s.shards[k[0]%shardCount]
}

// Put stores value and returns a deterministic key: equal values (by
// structural hash) yield equal keys, and re-putting an already-interned
// value is a cheap no-op.
func (s *Store) Put(value any) types.Key {
	key := keyOf(value, false)
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.values[key]; !ok {
		sh.values[key] = value
	}
	return key
}

// PutTyped stores value keyed by both its content and its Go type, so that
// e.g. an empty string and a zero-value struct with no fields don't
// collide. It additionally records the type's own key, retrievable with
// GetType.
func (s *Store) PutTyped(value any) types.Key {
	key := keyOf(value, true)
	typeKey := keyOf(typeTagValue(value), false)

	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.values[key]; !ok {
		sh.values[key] = value
		sh.typeTag[key] = typeKey
	}
	return key
}

// Get returns the value stored under key, if any.
func (s *Store) Get(key types.Key) (any, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.values[key]
	return v, ok
}

// GetType returns the type-tag key recorded for a key stored via PutTyped.
func (s *Store) GetType(key types.Key) (types.Key, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	t, ok := sh.typeTag[key]
	return t, ok
}
