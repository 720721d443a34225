package machine

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// HashTable is the Value variant that serves as both associative map and
// ordered list (lists use stringified indices "0", "1", …), per spec.md
// §3. Backed by the teacher's own swiss.Map (lang/machine/map.go), with a
// count field cached alongside it and kept in sync on every write, since
// swiss.Map does not expose its own size.
type HashTable struct {
	m     *swiss.Map[string, Value]
	count int
}

var _ Value = (*HashTable)(nil)

// NewHashTable returns an empty table with initial capacity for at least
// size entries.
func NewHashTable(size int) *HashTable {
	if size < 0 {
		size = 0
	}
	return &HashTable{m: swiss.NewMap[string, Value](uint32(size))}
}

func (h *HashTable) String() string { return fmt.Sprintf("hashtable(%p)", h) }
func (h *HashTable) Type() string   { return "hashtable" }

// Get returns the value stored at key, or (nil, false) if absent.
func (h *HashTable) Get(key string) (Value, bool) {
	return h.m.Get(key)
}

// Set stores v at key, growing the cached element count on a new key.
func (h *HashTable) Set(key string, v Value) {
	if _, existed := h.m.Get(key); !existed {
		h.count++
	}
	h.m.Put(key, v)
}

// Len returns the cached element count (spec.md §3: "plus cached element
// count"), backing the `len` native.
func (h *HashTable) Len() int { return h.count }
