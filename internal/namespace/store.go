package namespace

import (
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/illarion/microkv/internal/crypto"
)

// Entry is a sealed value: the authenticated ciphertext and the nonce used
// to produce it.
type Entry struct {
	Ciphertext []byte
	Nonce      []byte
}

func (e Entry) wipe() {
	crypto.ClearBytes(e.Ciphertext)
	crypto.ClearBytes(e.Nonce)
}

// Store is an insertion-ordered map of key to Entry.
type Store struct {
	name    string
	entries *orderedmap.OrderedMap[string, Entry]
}

// New creates an empty namespace store
func New(name string) *Store {
	return &Store{
		name:    name,
		entries: orderedmap.New[string, Entry](),
	}
}

// Name returns the namespace name; the default namespace is "".
func (s *Store) Name() string {
	return s.name
}

// Put adds or replaces the entry for key. A replaced entry is wiped.
func (s *Store) Put(key string, e Entry) {
	if old, present := s.entries.Set(key, e); present {
		old.wipe()
	}
}

// Get returns the entry for key
func (s *Store) Get(key string) (Entry, bool) {
	return s.entries.Get(key)
}

// Has reports whether key is present
func (s *Store) Has(key string) bool {
	_, ok := s.entries.Get(key)
	return ok
}

// Delete removes key and reports whether it existed.
func (s *Store) Delete(key string) bool {
	old, present := s.entries.Delete(key)
	if present {
		old.wipe()
	}
	return present
}

// Len returns the number of entries
func (s *Store) Len() int {
	return s.entries.Len()
}

// Keys returns all keys in insertion order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, s.entries.Len())
	for pair := s.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// SortedKeys returns all keys in lexicographic order.
func (s *Store) SortedKeys() []string {
	keys := s.Keys()
	slices.Sort(keys)
	return keys
}

// Each calls fn for every entry in insertion order.
func (s *Store) Each(fn func(key string, e Entry)) {
	for pair := s.entries.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Clear wipes every entry and empties the store.
func (s *Store) Clear() {
	for pair := s.entries.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.wipe()
	}
	s.entries = orderedmap.New[string, Entry]()
}
