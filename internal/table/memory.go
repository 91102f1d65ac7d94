package table

import (
	"context"
	"sync"
)

// MemoryStore keeps tables in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[rowKey]Row
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]map[rowKey]Row)}
}

func (s *MemoryStore) Overwrite(_ context.Context, table string, rows []Row) error {
	if err := validateAll(table, rows); err != nil {
		return err
	}
	t := make(map[rowKey]Row, len(rows))
	for _, r := range rows {
		t[rowKey{r.Path, r.PageNumber}] = r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = t
	return nil
}

func (s *MemoryStore) Append(_ context.Context, table string, rows []Row) error {
	if err := validateAll(table, rows); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		t = make(map[rowKey]Row, len(rows))
		s.tables[table] = t
	}
	for _, r := range rows {
		t[rowKey{r.Path, r.PageNumber}] = r
	}
	return nil
}

func (s *MemoryStore) Rows(_ context.Context, table string) ([]Row, error) {
	if err := ValidateName(table); err != nil {
		return nil, err
	}

	s.mu.RLock()
	t := s.tables[table]
	rows := make([]Row, 0, len(t))
	for _, r := range t {
		rows = append(rows, r)
	}
	s.mu.RUnlock()

	sortRows(rows)
	return rows, nil
}

func (s *MemoryStore) Count(_ context.Context, table string) (int, error) {
	if err := ValidateName(table); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table]), nil
}

func (s *MemoryStore) Close() error { return nil }
