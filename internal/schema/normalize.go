package schema

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"docschema/internal/domain"
)

// PrimaryKey is the implicit auto-assigned primary key of every dynamic table.
const PrimaryKey = "id"

// ReservedTables cannot be used as dynamic table names.
var ReservedTables = map[string]bool{
	"meta_tables":       true,
	"meta_columns":      true,
	"meta_labels":       true,
	"ingest_runs":       true,
	"schema_migrations": true,
}

// fold strips diacritics by decomposing and dropping combining marks.
func fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// identifier applies the shared character rules of column and table names:
// whitespace runs (and any extra separator runes) collapse to a single
// underscore and everything outside [a-z0-9_] is dropped.
func identifier(s string, separator func(rune) bool) string {
	s = strings.ToLower(strings.TrimSpace(fold(s)))

	var b strings.Builder
	inSep := false
	for _, r := range s {
		if unicode.IsSpace(r) || (separator != nil && separator(r)) {
			if !inSep {
				b.WriteByte('_')
			}
			inSep = true
			continue
		}
		inSep = false
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func placeholder(index int) string {
	return "field_" + strconv.Itoa(index)
}

// Normalize maps a raw field label to a canonical column identifier. index
// is the 1-based position of the field in its record and only matters when
// nothing of the label survives.
func Normalize(label string, index int) string {
	name := identifier(label, nil)
	if name == "" {
		return placeholder(index)
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "col_" + name
	}
	if name == PrimaryKey {
		name = "record_id"
	}
	return name
}

// NormalizeTableName canonicalizes a user supplied table name.
func NormalizeTableName(raw string) (string, error) {
	name := identifier(raw, func(r rune) bool { return r == '-' })
	if name == "" || strings.Trim(name, "_") == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidTableName, raw)
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "t_" + name
	}
	if ReservedTables[name] {
		return "", fmt.Errorf("%w: %q is reserved", domain.ErrInvalidTableName, raw)
	}
	return name, nil
}

// LabelResolver assigns collision-free column names to raw labels of one
// table. It is seeded with the labels and columns already persisted so that
// a label keeps its column across runs.
type LabelResolver struct {
	labels map[string]string
	taken  map[string]bool
	added  []domain.Label
}

// NewLabelResolver creates a resolver seeded with the persisted label
// mappings and column names of a table.
func NewLabelResolver(labels []domain.Label, columns []string) *LabelResolver {
	r := &LabelResolver{
		labels: make(map[string]string, len(labels)),
		taken:  map[string]bool{PrimaryKey: true},
	}
	for _, c := range columns {
		r.taken[c] = true
	}
	for _, l := range labels {
		r.labels[l.Raw] = l.Column
		r.taken[l.Column] = true
	}
	return r
}

// LabelKey is the catalog key of a raw label. Labels that normalize to a
// positional placeholder are keyed by position as well, so that unrelated
// unlabeled fields do not share a column.
func LabelKey(label string, index int) string {
	label = strings.TrimSpace(label)
	if identifier(label, nil) == "" {
		return label + "#" + strconv.Itoa(index)
	}
	return label
}

// Resolve returns the column for label at position index, assigning a new
// name when the label has not been seen before.
func (r *LabelResolver) Resolve(label string, index int) string {
	key := LabelKey(label, index)
	if col, ok := r.labels[key]; ok {
		return col
	}

	base := Normalize(label, index)
	name := base
	for n := 2; r.taken[name]; n++ {
		name = base + "_" + strconv.Itoa(n)
	}

	r.labels[key] = name
	r.taken[name] = true
	r.added = append(r.added, domain.Label{Raw: key, Column: name})
	return name
}

// Added returns the label mappings created since the resolver was built,
// in resolution order.
func (r *LabelResolver) Added() []domain.Label {
	return r.added
}
