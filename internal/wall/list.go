package wall

import (
	"sync"

	"github.com/monument-wall/wall-service/internal/domain"
)

// List is the in-memory mirror of the participants table: bulk-loaded at
// startup in created_at order, then grown by batch flushes in arrival
// order. Entries are never reordered, mutated or removed.
type List struct {
	mu    sync.RWMutex
	items []domain.Participant
}

func NewList() *List {
	return &List{}
}

// Load replaces the list with the initial bulk read.
func (l *List) Load(items []domain.Participant) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = items
}

// Append adds a flushed batch and returns the new length.
func (l *List) Append(batch []domain.Participant) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, batch...)
	return len(l.items)
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Snapshot returns a stable view of the current list. Appends only ever
// extend the slice, so sharing the backing array is safe.
func (l *List) Snapshot() []domain.Participant {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.items[:len(l.items):len(l.items)]
}

// FindByWallet returns the participant for a wallet address, or nil.
func (l *List) FindByWallet(address string) *domain.Participant {
	norm := domain.NormalizeAddress(address)
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.items {
		if domain.NormalizeAddress(l.items[i].WalletAddress) == norm {
			p := l.items[i]
			return &p
		}
	}
	return nil
}
