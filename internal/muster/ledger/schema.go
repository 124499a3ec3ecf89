package ledger

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is a canonical column name, independent of the header's wording.
type Field string

const (
	FieldDate     Field = "fecha"
	FieldIdentity Field = "cedula"
	FieldName     Field = "nombre"
	FieldCompany  Field = "empresa"
	FieldEntry    Field = "entrada"
	FieldExit     Field = "salida"
	FieldStatus   Field = "estado"
	FieldDuration Field = "duracion"
)

// synonyms are compared after folding, so accents and case never matter.
var synonyms = map[Field][]string{
	FieldDate:     {"fecha", "fecha y hora", "marca de tiempo", "date"},
	FieldIdentity: {"cedula", "id", "identity"},
	FieldName:     {"nombre", "nombres", "name"},
	FieldCompany:  {"empresa", "compania", "organizacion", "company"},
	FieldEntry:    {"entrada", "hora entrada", "hora_entrada", "entry"},
	FieldExit:     {"salida", "hora salida", "hora_salida", "exit"},
	FieldStatus:   {"estado del acceso", "estado", "acceso", "status"},
	FieldDuration: {"duracion", "tiempo", "duration"},
}

// DefaultHeader is used when the ledger sheet is created from scratch.
var DefaultHeader = []string{
	"Fecha", "Cédula", "Nombre", "Estado del Acceso", "Entrada", "Salida", "Duración", "Empresa",
}

// Schema maps canonical fields to column positions for one header. It is
// re-derived on every operation; never cache it across calls.
type Schema struct {
	cols  map[Field]int
	width int
}

func Resolve(header []string) Schema {
	s := Schema{cols: make(map[Field]int), width: len(header)}
	for i, h := range header {
		f, ok := lookup(fold(h))
		if !ok {
			continue
		}
		// First matching column wins.
		if _, dup := s.cols[f]; !dup {
			s.cols[f] = i
		}
	}
	return s
}

func lookup(h string) (Field, bool) {
	for f, names := range synonyms {
		for _, n := range names {
			if h == n {
				return f, true
			}
		}
	}
	return "", false
}

// Col returns the position of f, or false when the header lacks it.
func (s Schema) Col(f Field) (int, bool) {
	i, ok := s.cols[f]
	return i, ok
}

func (s Schema) Has(f Field) bool {
	_, ok := s.cols[f]
	return ok
}

// Parsable reports whether the header carries both an identity and an entry
// column.
func (s Schema) Parsable() bool {
	return s.Has(FieldIdentity) && s.Has(FieldEntry)
}

func (s Schema) Width() int { return s.width }

// Row lays values out in header order. Fields the header lacks are dropped.
func (s Schema) Row(values map[Field]string) []string {
	out := make([]string, s.width)
	for f, v := range values {
		if i, ok := s.cols[f]; ok {
			out[i] = v
		}
	}
	return out
}

// Cells maps values to column positions for a partial write.
func (s Schema) Cells(values map[Field]string) map[int]string {
	out := make(map[int]string, len(values))
	for f, v := range values {
		if i, ok := s.cols[f]; ok {
			out[i] = v
		}
	}
	return out
}

func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	// Chains hold state; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(out), " ")
}
