package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/cheese-peerchess/internal/domain"
)

// Memory keeps results in process; used for local and ai games when no
// database is configured.
type Memory struct {
	mu    sync.RWMutex
	games map[string]domain.GameRecord
}

func NewMemory() *Memory {
	return &Memory{games: make(map[string]domain.GameRecord)}
}

func (m *Memory) SaveResult(_ context.Context, rec domain.GameRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	m.mu.Lock()
	m.games[rec.ID] = rec.Clone()
	m.mu.Unlock()
	return nil
}

func (m *Memory) Recent(_ context.Context, limit int) ([]domain.GameRecord, error) {
	m.mu.RLock()
	items := make([]domain.GameRecord, 0, len(m.games))
	for _, g := range m.games {
		items = append(items, g.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *Memory) Close() error { return nil }
