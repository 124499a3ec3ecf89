package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/muster/internal/muster/store"
)

type Sheet struct {
	mu     sync.RWMutex
	name   string
	header []string
	rows   []store.Row
	next   int
}

func NewSheet(name string, header []string) *Sheet {
	return &Sheet{
		name:   name,
		header: append([]string(nil), header...),
		next:   1,
	}
}

func (s *Sheet) Name() string { return s.name }

func (s *Sheet) Snapshot(_ context.Context) (store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.Snapshot{Header: s.header, Rows: s.rows}.Clone(), nil
}

func (s *Sheet) AppendRow(_ context.Context, cells []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.next
	s.next++
	s.rows = append(s.rows, store.Row{
		Index:   idx,
		Cells:   append([]string(nil), cells...),
		Version: 1,
	})
	return idx, nil
}

func (s *Sheet) WriteCell(_ context.Context, row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.find(row)
	if err != nil {
		return err
	}
	if err := s.set(r, col, value); err != nil {
		return err
	}
	r.Version++
	return nil
}

func (s *Sheet) CompareAndWrite(_ context.Context, row int, version int64, cells map[int]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.find(row)
	if err != nil {
		return err
	}
	if r.Version != version {
		return store.ErrVersionConflict
	}
	for col := range cells {
		if col < 0 || col >= len(s.header) {
			return store.ErrColumnRange
		}
	}
	for col, v := range cells {
		_ = s.set(r, col, v)
	}
	r.Version++
	return nil
}

func (s *Sheet) SetNote(_ context.Context, row, col int, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.find(row)
	if err != nil {
		return err
	}
	if col < 0 || col >= len(s.header) {
		return store.ErrColumnRange
	}
	if r.Notes == nil {
		r.Notes = make(map[int]string)
	}
	r.Notes[col] = note
	return nil
}

func (s *Sheet) DeleteRows(_ context.Context, match func(store.Row) bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	var deleted int64
	for _, r := range s.rows {
		if match(r) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return deleted, nil
}

// Len returns the number of data rows. Test-only helper.
func (s *Sheet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *Sheet) find(row int) (*store.Row, error) {
	for i := range s.rows {
		if s.rows[i].Index == row {
			return &s.rows[i], nil
		}
	}
	return nil, store.ErrRowNotFound
}

func (s *Sheet) set(r *store.Row, col int, value string) error {
	if col < 0 || col >= len(s.header) {
		return store.ErrColumnRange
	}
	for len(r.Cells) <= col {
		r.Cells = append(r.Cells, "")
	}
	r.Cells[col] = value
	return nil
}
