package command

import (
	"sync"
)

const defaultLogCapacity = 100

// ExecutionLog is a thread-safe ring of recent execution results. When full,
// a new entry overwrites the oldest one.
type ExecutionLog struct {
	entries  []*ExecutionResult
	head     int
	size     int
	capacity int
	mu       sync.RWMutex
	full     bool
}

// NewExecutionLog creates a log holding up to capacity results.
// Non-positive capacities fall back to 100.
func NewExecutionLog(capacity int) *ExecutionLog {
	if capacity <= 0 {
		capacity = defaultLogCapacity
	}

	return &ExecutionLog{
		entries:  make([]*ExecutionResult, capacity),
		capacity: capacity,
	}
}

// Append stores one result, overwriting the oldest entry when full.
func (l *ExecutionLog) Append(r *ExecutionResult) {
	if r == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.head] = r
	l.head = (l.head + 1) % l.capacity

	if !l.full {
		l.size++
		if l.size == l.capacity {
			l.full = true
		}
	}
}

// Entries returns the stored results, oldest first.
func (l *ExecutionLog) Entries() []*ExecutionResult {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*ExecutionResult, 0, l.size)

	start := 0
	if l.full {
		start = l.head
	}

	for i := range l.size {
		out = append(out, l.entries[(start+i)%l.capacity])
	}

	return out
}

// Len returns the number of stored results.
func (l *ExecutionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.size
}

// Clear removes all stored results.
func (l *ExecutionLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make([]*ExecutionResult, l.capacity)
	l.head = 0
	l.size = 0
	l.full = false
}
