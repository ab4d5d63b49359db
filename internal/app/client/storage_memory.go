package client

import "sync"

// MemoryStorage - временное in-memory хранилище, используется когда постоянное не открылось
type MemoryStorage struct {
	mu    sync.Mutex
	state *State
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{state: NewState()}
}

func (m *MemoryStorage) Load() (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone(), nil
}

func (m *MemoryStorage) Save(state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state.clone()
	return nil
}

func (m *MemoryStorage) Path() string {
	return ""
}

func (m *MemoryStorage) Close() error {
	return nil
}
