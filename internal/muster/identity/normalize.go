// Package identity canonicalizes raw identity strings (badge scans, QR
// payloads, typed national ids) into a comparable key.
package identity

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Extractor is one step of the pattern cascade. Group selects the capture
// holding the identity.
type Extractor struct {
	Name  string
	re    *regexp.Regexp
	group int
}

// Extract returns the whitespace-free capture when it has a plausible id shape.
func (x Extractor) Extract(s string) (string, bool) {
	m := x.re.FindStringSubmatch(s)
	if m == nil || len(m) <= x.group || m[x.group] == "" {
		return "", false
	}
	v := whitespace.ReplaceAllString(m[x.group], "")
	if !idShape.MatchString(v) {
		return "", false
	}
	return v, true
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	idShape    = regexp.MustCompile(`^[A-Za-z0-9-]{3,20}$`)
	fieldShape = regexp.MustCompile(`^[\w-]{3,20}$`)
	digitRuns  = regexp.MustCompile(`\d{5,15}`)
	preferred  = regexp.MustCompile(`^\d{8,12}$`)
)

// Cascade is evaluated in order; the first extractor that yields a value wins.
var Cascade = []Extractor{
	{Name: "qr-texto", re: regexp.MustCompile(`(?i)Texto\s*-\s*([\w-]+)`), group: 1},
	{Name: "label-cedula", re: regexp.MustCompile(`(?i)\bC[EÉ]DULA[:=\s-]*([A-Z0-9-]{3,20})`), group: 1},
	{Name: "label-id", re: regexp.MustCompile(`(?i)\bID[:=\s-]*([A-Z0-9-]{3,20})`), group: 1},
	{Name: "label-dni", re: regexp.MustCompile(`(?i)\bDNI[:=\s-]*([A-Z0-9-]{3,20})`), group: 1},
	{Name: "label-doc", re: regexp.MustCompile(`(?i)\bDOC(?:UMENTO)?[:=\s-]*([A-Z0-9-]{3,20})`), group: 1},
	{Name: "prefixed-ve", re: regexp.MustCompile(`(?i)\b[VE]-([0-9-]{6,15})\b`), group: 1},
	{Name: "hyphenated-national", re: regexp.MustCompile(`\b([0-9]{1,2}-[0-9]{3,4}-[0-9]{3,6})\b`), group: 1},
	{Name: "hyphenated-lettered", re: regexp.MustCompile(`\b([A-Z]?\d+-\d+-\d+)\b`), group: 1},
	{Name: "alpha-prefixed", re: regexp.MustCompile(`(?i)\b([A-Z]{1,3}[0-9]{6,12})\b`), group: 1},
	{Name: "long-digits", re: regexp.MustCompile(`\b([0-9]{7,15})\b`), group: 1},
	{Name: "generic-token", re: regexp.MustCompile(`(?i)\b([A-Z0-9-]{5,20})\b`), group: 1},
}

// jsonFields are probed in order when the raw value is a JSON object.
var jsonFields = []string{
	"cedula", "cédula", "documento", "id", "identificacion",
	"identificación", "numero", "número", "dni", "doc",
	"num_doc", "no_doc", "nro_doc", "num", "no", "nro",
}

// Normalize never fails: on any internal fault it returns the trimmed input.
// The cascade is re-applied until it reaches a fixed point, which makes
// Normalize idempotent. Every pass returns either its input or a strictly
// shorter string, so the loop terminates.
func Normalize(raw string) (out string) {
	trimmed := strings.TrimSpace(raw)
	defer func() {
		if r := recover(); r != nil {
			out = trimmed
		}
	}()

	cur := trimmed
	for {
		next := normalizeOnce(cur)
		if next == cur {
			return cur
		}
		cur = next
	}
}

// Key is the matching key used by the ledger: the normalized identity with
// anything outside [A-Za-z0-9_-] removed.
func Key(raw string) string {
	return nonKey.ReplaceAllString(Normalize(raw), "")
}

var nonKey = regexp.MustCompile(`[^\w-]`)

// Match reports whether two raw identities refer to the same person.
func Match(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == b {
		return true
	}
	ka := Key(a)
	return ka != "" && ka == Key(b)
}

func normalizeOnce(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if v, ok := fromJSON(s); ok {
		return v
	}

	for _, x := range Cascade {
		if v, ok := x.Extract(s); ok {
			return v
		}
	}

	direct := whitespace.ReplaceAllString(s, "")
	if idShape.MatchString(direct) {
		return direct
	}

	if runs := digitRuns.FindAllString(s, -1); len(runs) > 0 {
		for _, r := range runs {
			if preferred.MatchString(r) {
				return r
			}
		}
		return runs[0]
	}

	if direct != "" {
		return direct
	}
	return s
}

func fromJSON(s string) (string, bool) {
	if !strings.HasPrefix(s, "{") {
		return "", false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return "", false
	}
	for _, f := range jsonFields {
		v, ok := obj[f]
		if !ok {
			continue
		}
		str := strings.TrimSpace(scalar(v))
		if str != "" && fieldShape.MatchString(str) {
			return str, true
		}
	}
	return "", false
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		if t.String() == "0" {
			return ""
		}
		return t.String()
	case bool:
		if t {
			return "true"
		}
	}
	return ""
}
