package events

import "sync"

// backlogEntry holds a single broadcast envelope for replay.
type backlogEntry struct {
	Seq  int64
	Data []byte // pre-built envelope JSON
}

// Backlog is a fixed-size circular buffer of recent order event envelopes.
// A reconnecting page asks for everything after the last seq it saw.
//
// Thread-safe for concurrent writes and reads.
type Backlog struct {
	mu   sync.RWMutex
	buf  []backlogEntry
	cap  int
	pos  int // next write position
	full bool
}

// NewBacklog creates a backlog with the given capacity.
func NewBacklog(capacity int) *Backlog {
	if capacity <= 0 {
		capacity = 50
	}
	return &Backlog{
		buf: make([]backlogEntry, capacity),
		cap: capacity,
	}
}

// Push appends an envelope. Overwrites the oldest entry when full.
func (b *Backlog) Push(seq int64, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Copy data to avoid holding onto the caller's slice
	cp := make([]byte, len(data))
	copy(cp, data)

	b.buf[b.pos] = backlogEntry{Seq: seq, Data: cp}
	b.pos = (b.pos + 1) % b.cap
	if b.pos == 0 && !b.full {
		b.full = true
	}
}

// Since returns the envelopes with seq > after, oldest first.
func (b *Backlog) Since(after int64) [][]byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result [][]byte
	for i := 0; i < b.len(); i++ {
		e := b.buf[b.index(i)]
		if e.Seq > after {
			result = append(result, e.Data)
		}
	}
	return result
}

func (b *Backlog) len() int {
	if b.full {
		return b.cap
	}
	return b.pos
}

// index converts a logical index (0 = oldest) to a physical buffer index.
func (b *Backlog) index(logical int) int {
	if b.full {
		return (b.pos + logical) % b.cap
	}
	return logical
}
