package store

import (
	"sort"
	"sync"
	"time"

	"github.com/tht-tools/team-balancer/internal/models"
)

// MemoryStore implements BoardStore in process memory. The default driver:
// boards live until restart, which matches the throwaway nature of a
// tournament-day session.
type MemoryStore struct {
	mu     sync.RWMutex
	boards map[string]models.Board
}

// NewMemoryStore creates an empty in-memory board store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{boards: make(map[string]models.Board)}
}

func (m *MemoryStore) List() ([]models.Board, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Board, 0, len(m.boards))
	for _, b := range m.boards {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (m *MemoryStore) Get(id string) (*models.Board, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.boards[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *MemoryStore) Save(board *models.Board) (*models.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if board.ID == "" {
		board.ID = genID("board")
	}
	if board.CreatedAt == 0 {
		board.CreatedAt = time.Now().UnixMilli()
	}

	m.boards[board.ID] = *board
	return board, nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.boards[id]; !ok {
		return ErrNotFound
	}
	delete(m.boards, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
