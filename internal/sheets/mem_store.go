package sheets

import (
	"context"
	"sync"

	"crm-backend/internal/apperr"
)

// MemStore is an in-memory Store. Used by tests and available as a driver
// when no database is configured.
type MemStore struct {
	mu     sync.Mutex
	sheets map[string]*memSheet

	// FailNext makes every subsequent operation fail as remote-unavailable,
	// for exercising fallback paths.
	FailNext bool
}

func NewMemStore() *MemStore {
	return &MemStore{sheets: map[string]*memSheet{}}
}

func (m *MemStore) Sheet(_ context.Context, name string) (Sheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext {
		return nil, apperr.RemoteUnavailable(nil)
	}
	s, ok := m.sheets[name]
	if !ok {
		s = &memSheet{store: m, name: name}
		m.sheets[name] = s
	}
	return s, nil
}

type memSheet struct {
	store  *MemStore
	name   string
	header []string
	rows   [][]string
}

func (s *memSheet) Name() string { return s.name }

func (s *memSheet) guard() error {
	if s.store.FailNext {
		return apperr.RemoteUnavailable(nil)
	}
	return nil
}

func (s *memSheet) Header(context.Context) ([]string, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if err := s.guard(); err != nil {
		return nil, err
	}
	return append([]string(nil), s.header...), nil
}

func (s *memSheet) EnsureHeader(_ context.Context, header []string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	s.header = append([]string(nil), header...)
	return nil
}

func (s *memSheet) Rows(context.Context) ([][]string, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if err := s.guard(); err != nil {
		return nil, err
	}
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (s *memSheet) ReplaceAll(_ context.Context, header []string, rows [][]string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	s.header = append([]string(nil), header...)
	s.rows = nil
	for _, r := range rows {
		s.rows = append(s.rows, append([]string(nil), r...))
	}
	return nil
}

func (s *memSheet) Append(_ context.Context, rows [][]string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	for _, r := range rows {
		s.rows = append(s.rows, append([]string(nil), r...))
	}
	return nil
}

func (s *memSheet) UpdateRow(_ context.Context, index int, cells []string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.rows) {
		return apperr.NotFound(nil).WithMessage("Sheet row not found")
	}
	s.rows[index] = append([]string(nil), cells...)
	return nil
}

func (s *memSheet) DeleteRowsWhere(_ context.Context, col int, value string) (int, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if err := s.guard(); err != nil {
		return 0, err
	}
	kept := s.rows[:0:0]
	removed := 0
	for _, r := range s.rows {
		if col < len(r) && r[col] == value {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return removed, nil
}

func (s *memSheet) Clear(context.Context) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	s.header = nil
	s.rows = nil
	return nil
}
