package runner

import (
	"context"
	"sync"
)

// SymbolLocker: неблокирующий лок на символ. release идемпотентен.
type SymbolLocker interface {
	TryLock(ctx context.Context, symbol string) (release func(), ok bool, err error)
}

// MemoryLocks: локи в памяти процесса, создаются лениво и живут до конца процесса.
type MemoryLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemoryLocks() *MemoryLocks {
	return &MemoryLocks{locks: make(map[string]*sync.Mutex)}
}

func (m *MemoryLocks) TryLock(_ context.Context, symbol string) (func(), bool, error) {
	m.mu.Lock()
	l, ok := m.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		m.locks[symbol] = l
	}
	m.mu.Unlock()

	if !l.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(l.Unlock) }, true, nil
}

var _ SymbolLocker = (*MemoryLocks)(nil)
