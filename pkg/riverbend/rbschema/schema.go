// Package rbschema models the structured schema accepted by stream readers.
//
// The engine is the sole authority on schema correctness; this package only
// renders a structured description into the canonical DDL text the session
// API accepts. Nothing here validates type names or field names.
package rbschema

import "strings"

// Field is one column of a structured schema.
type Field struct {
	Name     string
	Type     string
	Nullable bool
}

// StructType is a structured schema description.
//
// A nil *StructType means "no schema": readers treat it as absent and let the
// engine infer one.
type StructType struct {
	Fields []Field
}

// New constructs an empty StructType.
func New() *StructType {
	return &StructType{}
}

// Add appends a nullable field and returns the same StructType for chaining.
func (s *StructType) Add(name, typ string) *StructType {
	s.Fields = append(s.Fields, Field{Name: name, Type: typ, Nullable: true})
	return s
}

// AddRequired appends a non-nullable field and returns the same StructType.
func (s *StructType) AddRequired(name, typ string) *StructType {
	s.Fields = append(s.Fields, Field{Name: name, Type: typ, Nullable: false})
	return s
}

// DDL renders the canonical textual encoding transmitted to the engine,
// for example "ts TIMESTAMP, line STRING NOT NULL".
func (s *StructType) DDL() string {
	if s == nil {
		return ""
	}
	parts := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		var b strings.Builder
		b.WriteString(strings.TrimSpace(f.Name))
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(f.Type))
		if !f.Nullable {
			b.WriteString(" NOT NULL")
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ", ")
}
