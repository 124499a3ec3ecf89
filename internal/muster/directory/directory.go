// Package directory looks people up in the personnel sheet.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BrandonDHaskell/muster/internal/muster/identity"
	"github.com/BrandonDHaskell/muster/internal/muster/ledger"
	"github.com/BrandonDHaskell/muster/internal/muster/store"
	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

// Header of a freshly created personnel sheet.
var Header = []string{"Cédula", "Nombre", "Empresa"}

const (
	similarPrefix = 5
	similarLimit  = 5
)

type Directory struct {
	wb    store.Workbook
	sheet string
}

func New(wb store.Workbook, sheet string) *Directory {
	return &Directory{wb: wb, sheet: sheet}
}

// FindByIdentity returns the person whose identity matches raw either
// verbatim or after normalization. ok is false when nobody matches.
func (d *Directory) FindByIdentity(ctx context.Context, raw string) (types.Person, bool, error) {
	people, err := d.all(ctx)
	if err != nil {
		return types.Person{}, false, err
	}
	for _, p := range people {
		if identity.Match(p.Identity, raw) {
			return p, true, nil
		}
	}
	return types.Person{}, false, nil
}

// Similar lists up to five registered identities sharing the first five
// characters of raw's normalized key. Used to hint at typos at the desk.
func (d *Directory) Similar(ctx context.Context, raw string) ([]string, error) {
	key := strings.ToUpper(identity.Key(raw))
	if len(key) < similarPrefix {
		return nil, nil
	}
	prefix := key[:similarPrefix]

	people, err := d.all(ctx)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, p := range people {
		if strings.HasPrefix(strings.ToUpper(identity.Key(p.Identity)), prefix) {
			out = append(out, p.Identity)
			if len(out) == similarLimit {
				break
			}
		}
	}
	return out, nil
}

func (d *Directory) all(ctx context.Context) ([]types.Person, error) {
	sh, err := d.wb.Sheet(ctx, d.sheet)
	if errors.Is(err, store.ErrSheetNotFound) {
		return nil, types.NotFound(fmt.Sprintf("sheet %q not found", d.sheet), err)
	}
	if err != nil {
		return nil, types.Processing("open personnel", err)
	}
	snap, err := sh.Snapshot(ctx)
	if err != nil {
		return nil, types.Processing("read personnel", err)
	}

	s := ledger.Resolve(snap.Header)
	idCol, ok := s.Col(ledger.FieldIdentity)
	if !ok {
		return nil, types.NotFound(fmt.Sprintf("sheet %q has no identity column", d.sheet), nil)
	}
	nameCol, hasName := s.Col(ledger.FieldName)
	companyCol, hasCompany := s.Col(ledger.FieldCompany)

	people := make([]types.Person, 0, len(snap.Rows))
	for _, r := range snap.Rows {
		p := types.Person{Identity: strings.TrimSpace(r.Cell(idCol))}
		if p.Identity == "" {
			continue
		}
		if hasName {
			p.Name = strings.TrimSpace(r.Cell(nameCol))
		}
		if hasCompany {
			p.Company = strings.TrimSpace(r.Cell(companyCol))
		}
		people = append(people, p)
	}
	return people, nil
}
