package selection

import (
	"context"
	"sort"
	"sync"

	"github.com/wonny/aegis-watch/internal/contracts"
)

// MemoryRepository keeps picks in process memory (development without a database)
type MemoryRepository struct {
	mu    sync.RWMutex
	picks []contracts.Pick
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// SavePick appends a copy of pick
func (m *MemoryRepository) SavePick(ctx context.Context, pick *contracts.Pick) error {
	p := *pick
	p.Reasons = append([]string(nil), pick.Reasons...)

	m.mu.Lock()
	m.picks = append(m.picks, p)
	m.mu.Unlock()
	return nil
}

// LatestPicks returns up to limit picks, newest first
func (m *MemoryRepository) LatestPicks(ctx context.Context, limit int) ([]contracts.Pick, error) {
	m.mu.RLock()
	picks := make([]contracts.Pick, len(m.picks))
	copy(picks, m.picks)
	m.mu.RUnlock()

	// 최신순, 같은 시각이면 rank 순
	sort.SliceStable(picks, func(i, j int) bool {
		if !picks[i].Timestamp.Equal(picks[j].Timestamp) {
			return picks[i].Timestamp.After(picks[j].Timestamp)
		}
		return picks[i].Rank < picks[j].Rank
	})

	if limit > 0 && len(picks) > limit {
		picks = picks[:limit]
	}
	return picks, nil
}
