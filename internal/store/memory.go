package store

import (
	"context"
	"sync"
)

// Memory is an in-process store; positions do not survive a restart.
type Memory struct {
	mu    sync.Mutex
	data  map[string]Position
	saves int
}

func NewMemory() *Memory {
	return &Memory{data: map[string]Position{}}
}

func (m *Memory) Load(_ context.Context, key string) (Position, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data[key]
	return p, ok, nil
}

func (m *Memory) Save(_ context.Context, key string, p Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = p
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Memory) Close() error { return nil }
