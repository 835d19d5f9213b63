package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu    sync.RWMutex
	lines []Line
	seq   int64
}

// NewMemoryStore creates a concurrency-safe in-memory ledger store useful
// for unit tests and for running the engine without a database.
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (s *memoryStore) AppendLines(_ context.Context, lines []Line) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	appended := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.ID == uuid.Nil {
			line.ID = uuid.New()
		}
		s.seq++
		line.Position = s.seq
		line.CreatedAt = now
		s.lines = append(s.lines, line)
		appended = append(appended, line)
	}
	return appended, nil
}

func (s *memoryStore) LinesBySource(_ context.Context, ref SourceRef) ([]Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Line
	for _, line := range s.lines {
		if line.Source == ref {
			out = append(out, line)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *memoryStore) Lines(_ context.Context, filter Filter) ([]Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Line
	for _, line := range s.lines {
		if filter.OnlyUnscoped {
			if line.UniversityID != nil {
				continue
			}
		} else if filter.UniversityID != nil {
			if line.UniversityID == nil || *line.UniversityID != *filter.UniversityID {
				continue
			}
		}
		if filter.SourceKind != nil && line.Source.Kind != *filter.SourceKind {
			continue
		}
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (s *memoryStore) Scopes(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, line := range s.lines {
		if line.UniversityID == nil {
			continue
		}
		if _, ok := seen[*line.UniversityID]; ok {
			continue
		}
		seen[*line.UniversityID] = struct{}{}
		out = append(out, *line.UniversityID)
	}
	return out, nil
}

func (s *memoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.lines)), nil
}

func (s *memoryStore) UpdateRunningBalances(_ context.Context, updates []BalanceUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[uuid.UUID]BalanceUpdate, len(updates))
	for _, u := range updates {
		byID[u.LineID] = u
	}
	for i := range s.lines {
		if u, ok := byID[s.lines[i].ID]; ok {
			s.lines[i].RunningBalance = u.Balance
		}
	}
	return nil
}

func (s *memoryStore) Truncate(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := int64(len(s.lines))
	s.lines = nil
	return removed, nil
}
