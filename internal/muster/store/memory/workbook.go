package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/BrandonDHaskell/muster/internal/muster/store"
)

var (
	_ store.Workbook = (*Workbook)(nil)
	_ store.Sheet    = (*Sheet)(nil)
)

// Workbook is an in-memory set of sheets. It is intended for use in tests
// and dev environments.
type Workbook struct {
	mu     sync.RWMutex
	sheets map[string]*Sheet
}

func NewWorkbook() *Workbook {
	return &Workbook{sheets: make(map[string]*Sheet)}
}

func (w *Workbook) Sheet(_ context.Context, name string) (store.Sheet, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.sheets[strings.TrimSpace(name)]
	if !ok {
		return nil, store.ErrSheetNotFound
	}
	return s, nil
}

func (w *Workbook) EnsureSheet(_ context.Context, name string, header []string) (store.Sheet, error) {
	name = strings.TrimSpace(name)
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.sheets[name]; ok {
		return s, nil
	}
	s := NewSheet(name, header)
	w.sheets[name] = s
	return s, nil
}

// Add registers a prepared sheet, replacing any sheet with the same name.
// Test-only helper.
func (w *Workbook) Add(s *Sheet) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sheets[s.Name()] = s
}
