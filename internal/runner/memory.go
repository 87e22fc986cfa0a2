package runner

import (
	"sync"
	"trade_guard/internal/models"
)

// ProtectionMemory: последние запрошенные TP/SL по символу, last-writer-wins.
// Гардиан читает не отсюда, а из своей копии, снятой при запуске.
type ProtectionMemory struct {
	mu      sync.RWMutex
	records map[string]models.ProtectionRecord
}

func NewProtectionMemory() *ProtectionMemory {
	return &ProtectionMemory{records: make(map[string]models.ProtectionRecord)}
}

func (m *ProtectionMemory) Record(symbol string, rec models.ProtectionRecord) {
	m.mu.Lock()
	m.records[symbol] = rec
	m.mu.Unlock()
}

func (m *ProtectionMemory) Get(symbol string) (models.ProtectionRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[symbol]
	return rec, ok
}

func (m *ProtectionMemory) Snapshot() map[string]models.ProtectionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]models.ProtectionRecord, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out
}
