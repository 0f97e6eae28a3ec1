package tournament

import (
	"context"
	"sync"
	"time"
)

type memRepo struct {
	mu          sync.Mutex
	tournaments map[string]*Tournament
	players     map[string]string // address -> id
}

func NewMemoryRepo() Repo {
	return &memRepo{
		tournaments: make(map[string]*Tournament),
		players:     make(map[string]string),
	}
}

func (m *memRepo) Save(ctx context.Context, t *Tournament, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.players[t.Address]; ok && id != t.ID {
		return ErrAlreadyInTournament
	}
	cp := *t
	m.tournaments[t.ID] = &cp
	m.players[t.Address] = t.ID
	// 简单忽略 TTL，内存版仅供测试与单机运行
	return nil
}

func (m *memRepo) Get(ctx context.Context, id string) (*Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memRepo) GetByPlayer(ctx context.Context, address string) (*Tournament, error) {
	m.mu.Lock()
	id, ok := m.players[address]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.Get(ctx, id)
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.tournaments, id)
	if m.players[t.Address] == id {
		delete(m.players, t.Address)
	}
	return nil
}
