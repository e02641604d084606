package schema

import (
	"docschema/internal/domain"
)

// Plan is the outcome of mapping a batch of records onto a table: the
// schema changes needed to store it and the rows keyed by column.
type Plan struct {
	Table  string
	Create bool
	Add    []domain.Column
	Widen  []domain.Column
	Labels []domain.Label
	Schema domain.TableSchema
	Rows   []map[string]string
}

// Changed reports whether applying the plan alters the persisted schema or
// label catalog.
func (p *Plan) Changed() bool {
	return p.Create || len(p.Add) > 0 || len(p.Widen) > 0 || len(p.Labels) > 0
}

// BuildPlan resolves every field label of records against the table's
// persisted labels and schema. current is nil when the table does not exist
// yet. Column types are folded over all batch values; a new column that
// only ever saw nulls is created as text.
func BuildPlan(table string, current *domain.TableSchema, labels []domain.Label, records []domain.Record) *Plan {
	p := &Plan{Table: table, Schema: domain.TableSchema{Name: table}}

	var existing []string
	if current != nil {
		p.Schema.Columns = append(p.Schema.Columns, current.Columns...)
		for _, c := range current.Columns {
			existing = append(existing, c.Name)
		}
	}
	resolver := NewLabelResolver(labels, existing)

	observed := make(map[string]domain.ColumnType)
	var order []string
	p.Rows = make([]map[string]string, 0, len(records))
	for _, rec := range records {
		row := make(map[string]string, len(rec.Fields))
		for i, f := range rec.Fields {
			col := resolver.Resolve(f.Label, i+1)
			t, seen := observed[col]
			if !seen {
				order = append(order, col)
				t = domain.TypeNull
			}
			observed[col] = Promote(t, Infer(f.Value))
			row[col] = f.Value
		}
		p.Rows = append(p.Rows, row)
	}
	p.Labels = resolver.Added()
	p.Create = current == nil && len(order) > 0

	for _, name := range order {
		t := observed[name]
		idx := columnIndex(p.Schema.Columns, name)
		if idx < 0 {
			if t == domain.TypeNull {
				t = domain.TypeText
			}
			col := domain.Column{Name: name, Type: t, Position: len(p.Schema.Columns) + 1}
			p.Schema.Columns = append(p.Schema.Columns, col)
			if !p.Create {
				p.Add = append(p.Add, col)
			}
			continue
		}
		if t.Wider(p.Schema.Columns[idx].Type) {
			p.Schema.Columns[idx].Type = t
			p.Widen = append(p.Widen, p.Schema.Columns[idx])
		}
	}
	return p
}

func columnIndex(cols []domain.Column, name string) int {
	for i, c := range cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Values coerces the planned rows against schema, which may be wider than
// the plan's own when another writer changed the table meanwhile. Each row
// has one value per schema column, nil where the record had no field. Rows
// that fail coercion are reported and left out.
func (p *Plan) Values(schema domain.TableSchema) ([][]any, []*domain.RowError) {
	var (
		values  = make([][]any, 0, len(p.Rows))
		skipped []*domain.RowError
	)
	for i, row := range p.Rows {
		vals, rerr := CoerceRow(schema, row)
		if rerr != nil {
			rerr.Row = i + 1
			skipped = append(skipped, rerr)
			continue
		}
		values = append(values, vals)
	}
	return values, skipped
}

// CoerceRow converts a column -> raw value map into schema column order.
func CoerceRow(schema domain.TableSchema, row map[string]string) ([]any, *domain.RowError) {
	vals := make([]any, len(schema.Columns))
	for j, col := range schema.Columns {
		raw, ok := row[col.Name]
		if !ok {
			continue
		}
		v, err := Coerce(raw, col.Type)
		if err != nil {
			return nil, &domain.RowError{Column: col.Name, Value: raw, Err: err}
		}
		vals[j] = v
	}
	return vals, nil
}
