package riverbend

import (
	"context"
	"fmt"
)

// textColumn is the designated column of relations produced by the "text"
// source: one line of input per row.
const textColumn = "value"

// Relation is an opaque handle to a continuously-updating tabular relation
// held by the session. The engine owns the data; the handle only names it.
type Relation struct {
	session *Session
	id      string
	columns []string
}

// ID returns the engine-assigned relation id.
func (r *Relation) ID() string {
	return r.id
}

// Columns returns the relation's column names as reported by the engine.
func (r *Relation) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Select narrows the relation to the given columns, returning a new handle.
// The receiver stays valid.
func (r *Relation) Select(ctx context.Context, columns ...string) (*Relation, error) {
	h, err := r.session.client.ProjectRelation(ctx, r.session.id, r.id, columns)
	if err != nil {
		return nil, err
	}
	return &Relation{session: r.session, id: h.RelationID, columns: h.Columns}, nil
}

// Records reads the relation's current micro-batch as generic JSON records,
// in row order.
func (r *Relation) Records(ctx context.Context) ([]map[string]any, error) {
	return r.session.client.ReadRelationRecords(ctx, r.session.id, r.id)
}

// Strings reinterprets the relation as a sequence of strings drawn from the
// named column.
func (r *Relation) Strings(column string) *StringDataset {
	return &StringDataset{rel: r, column: column}
}

// StringDataset is a typed view over a single string column of a relation.
type StringDataset struct {
	rel    *Relation
	column string
}

// Relation returns the underlying relation handle.
func (d *StringDataset) Relation() *Relation {
	return d.rel
}

// Collect reads the current micro-batch and decodes each row's value as a
// plain string, preserving row order. Rows missing the column or holding a
// non-string value fail the read.
func (d *StringDataset) Collect(ctx context.Context) ([]string, error) {
	recs, err := d.rel.Records(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(recs))
	for i, rec := range recs {
		v, ok := rec[d.column]
		if !ok {
			return nil, fmt.Errorf("row %d: missing column %q", i, d.column)
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("row %d: column %q is %T, want string", i, d.column, v)
		}
		out = append(out, s)
	}
	return out, nil
}
