package archive

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/park285/cheese-peerchess/internal/domain"
)

var ErrNoGameID = errors.New("archive: game id is required")

// Store keeps snapshots of games so an interrupted game can be listed and
// replayed. Load returns nil, nil for an unknown id.
type Store interface {
	Save(ctx context.Context, rec domain.GameRecord) error
	Load(ctx context.Context, id string) (*domain.GameRecord, error)
	Active(ctx context.Context) ([]domain.GameRecord, error)
	Finish(ctx context.Context, rec domain.GameRecord) error
}

type MemoryStore struct {
	mu     sync.RWMutex
	games  map[string]domain.GameRecord
	active map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:  make(map[string]domain.GameRecord),
		active: make(map[string]struct{}),
	}
}

func (m *MemoryStore) Save(_ context.Context, rec domain.GameRecord) error {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return ErrNoGameID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[id] = rec.Clone()
	if rec.Finished() {
		delete(m.active, id)
	} else {
		m.active[id] = struct{}{}
	}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.games[strings.TrimSpace(id)]
	if !ok {
		return nil, nil
	}
	dup := rec.Clone()
	return &dup, nil
}

func (m *MemoryStore) Active(_ context.Context) ([]domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.GameRecord, 0, len(m.active))
	for id := range m.active {
		rec := m.games[id]
		out = append(out, rec.Clone())
	}
	sortByUpdated(out)
	return out, nil
}

func (m *MemoryStore) Finish(ctx context.Context, rec domain.GameRecord) error {
	if err := m.Save(ctx, rec); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.active, strings.TrimSpace(rec.ID))
	m.mu.Unlock()
	return nil
}

// sortByUpdated orders most recently touched games first.
func sortByUpdated(recs []domain.GameRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].UpdatedAt.Equal(recs[j].UpdatedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
	})
}
