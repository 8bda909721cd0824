package cache

import (
	"sync"
	"time"
)

const (
	// DefaultL1Capacity is the default number of entries held in L1.
	DefaultL1Capacity = 1000
)

// lruNode is one key inside the recency list. The doubly-linked list
// orders entries from most recently used (head) to least (tail).
type lruNode struct {
	entry *Entry
	prev  *lruNode
	next  *lruNode
}

// MemoryStore is the bounded L1 tier: a map guarded by a single mutex
// with an intrusive doubly-linked list for LRU ordering. Capacity is a
// hard invariant; Put evicts before it ever grows past it.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	nodes    map[string]*lruNode
	head     *lruNode
	tail     *lruNode
	bytes    int64

	now func() time.Time
}

// NewMemoryStore creates an L1 store with the given capacity.
// A capacity <= 0 falls back to DefaultL1Capacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultL1Capacity
	}
	return &MemoryStore{
		capacity: capacity,
		nodes:    make(map[string]*lruNode, capacity),
		now:      time.Now,
	}
}

// Get returns the entry for key and marks it most recently used.
// Expired entries are removed and reported as absent.
func (m *MemoryStore) Get(key string) (*Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[key]
	if !ok {
		return nil, false
	}
	if n.entry.ExpiredAt(m.now()) {
		m.removeNode(n)
		return nil, false
	}
	m.moveToFront(n)
	n.entry.Touch(m.now())
	return n.entry, true
}

// Peek returns the entry without touching recency or access counters.
func (m *MemoryStore) Peek(key string) (*Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[key]
	if !ok || n.entry.ExpiredAt(m.now()) {
		return nil, false
	}
	return n.entry, true
}

// Put inserts or replaces an entry, evicting oldest entries first when
// at capacity. Evicted entries are returned so the caller can demote
// them. Returns a CapacityExceededError if eviction frees no slot.
func (m *MemoryStore) Put(entry *Entry) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n, ok := m.nodes[entry.Key]; ok {
		m.bytes += int64(entry.SizeBytes) - int64(n.entry.SizeBytes)
		n.entry = entry
		m.moveToFront(n)
		return nil, nil
	}

	var evicted []*Entry
	for len(m.nodes) >= m.capacity {
		old := m.tail
		if old == nil {
			return evicted, &CapacityExceededError{Capacity: m.capacity}
		}
		m.removeNode(old)
		evicted = append(evicted, old.entry)
	}

	n := &lruNode{entry: entry}
	m.nodes[entry.Key] = n
	m.pushFront(n)
	m.bytes += int64(entry.SizeBytes)
	return evicted, nil
}

// Delete removes the entry for key. Returns false if absent.
func (m *MemoryStore) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[key]
	if !ok {
		return false
	}
	m.removeNode(n)
	return true
}

// RemoveOldest evicts and returns the least recently used entry.
func (m *MemoryStore) RemoveOldest() (*Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tail == nil {
		return nil, false
	}
	entry := m.tail.entry
	m.removeNode(m.tail)
	return entry, true
}

// PruneExpired removes and returns all expired entries.
func (m *MemoryStore) PruneExpired() []*Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var pruned []*Entry
	for _, n := range m.nodes {
		if n.entry.ExpiredAt(now) {
			pruned = append(pruned, n.entry)
		}
	}
	for _, e := range pruned {
		m.removeNode(m.nodes[e.Key])
	}
	return pruned
}

// DirtyEntries returns the write-back entries awaiting a flush.
func (m *MemoryStore) DirtyEntries() []*Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var dirty []*Entry
	for _, n := range m.nodes {
		if n.entry.Dirty {
			dirty = append(dirty, n.entry)
		}
	}
	return dirty
}

// MarkClean clears the dirty flag for key if the entry is still present.
func (m *MemoryStore) MarkClean(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n, ok := m.nodes[key]; ok {
		n.entry.Dirty = false
	}
}

// Keys returns a snapshot of all resident keys.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.nodes))
	for k := range m.nodes {
		keys = append(keys, k)
	}
	return keys
}

// Contains reports key residency without touching recency.
func (m *MemoryStore) Contains(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[key]
	return ok && !n.entry.ExpiredAt(m.now())
}

// Len returns the number of resident entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.nodes)
}

// Bytes returns the total encoded size of resident values.
func (m *MemoryStore) Bytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bytes
}

// pushFront adds a node as most recently used.
func (m *MemoryStore) pushFront(n *lruNode) {
	n.prev = nil
	n.next = m.head
	if m.head != nil {
		m.head.prev = n
	}
	m.head = n
	if m.tail == nil {
		m.tail = n
	}
}

// unlink detaches a node from the recency list.
func (m *MemoryStore) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		m.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		m.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}

// removeNode unlinks a node and drops it from the map and byte count.
func (m *MemoryStore) removeNode(n *lruNode) {
	m.unlink(n)
	delete(m.nodes, n.entry.Key)
	m.bytes -= int64(n.entry.SizeBytes)
}

// moveToFront marks a node most recently used.
func (m *MemoryStore) moveToFront(n *lruNode) {
	m.unlink(n)
	m.pushFront(n)
}
