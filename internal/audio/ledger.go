package audio

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryLedger is a process-local domain.AudioLedger.
type MemoryLedger struct {
	mu      sync.Mutex
	written map[string]time.Time
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		mu:      sync.Mutex{},
		written: make(map[string]time.Time),
	}
}

// Record notes that filename was written at at.
func (l *MemoryLedger) Record(_ context.Context, filename string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.written[filename] = at
	return nil
}

// Expired lists files written strictly before cutoff, oldest first.
func (l *MemoryLedger) Expired(_ context.Context, cutoff time.Time) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	expired := make([]string, 0)
	for filename, at := range l.written {
		if at.Before(cutoff) {
			expired = append(expired, filename)
		}
	}

	sort.Slice(expired, func(i, j int) bool {
		return l.written[expired[i]].Before(l.written[expired[j]])
	})

	return expired, nil
}

// Forget drops filenames from the ledger.
func (l *MemoryLedger) Forget(_ context.Context, filenames ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, filename := range filenames {
		delete(l.written, filename)
	}
	return nil
}

// Len returns the number of tracked files.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.written)
}
