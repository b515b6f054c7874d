package rendezvous

import (
	"net"
	"sync"
)

// PendingSession is an externally-accepted socket awaiting pairing with the
// data channel the client opens in response to the matching OPEN.
type PendingSession struct {
	SID  int64
	Conn net.Conn
	Port int
}

// PendingTable maps session ID to PendingSession under a single mutex. A
// hash map keyed by session id gives O(1) pop and lets socket ownership
// transfer out cleanly on Pop, unlike a linked list walked to find a match.
type PendingTable struct {
	mu      sync.Mutex
	entries map[int64]*PendingSession
}

// NewPendingTable returns an empty PendingTable.
func NewPendingTable() *PendingTable {
	return &PendingTable{entries: make(map[int64]*PendingSession)}
}

// Push enqueues p. Session IDs are never reused, so a collision here would
// indicate a caller bug; it overwrites silently rather than panicking, to
// keep this path free of anything that blocks on a lock.
func (t *PendingTable) Push(p *PendingSession) {
	t.mu.Lock()
	t.entries[p.SID] = p
	t.mu.Unlock()
}

// Pop removes and returns the pending entry for sid, transferring ownership
// of its socket to the caller. The second return value is false if no entry
// with that session ID is present.
func (t *PendingTable) Pop(sid int64) (*PendingSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.entries[sid]
	if ok {
		delete(t.entries, sid)
	}
	return p, ok
}

// Remove deletes the entry for sid without returning it, for the case where
// the caller already holds the socket and just wants it out of the table.
func (t *PendingTable) Remove(sid int64) {
	t.mu.Lock()
	delete(t.entries, sid)
	t.mu.Unlock()
}

// Len reports the number of pending entries, for metrics/admin reporting.
func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// CloseAll closes every pending socket and empties the table. Used on
// process shutdown so no accepted-but-unpaired socket leaks open.
func (t *PendingTable) CloseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for sid, p := range t.entries {
		p.Conn.Close()
		delete(t.entries, sid)
	}
}
