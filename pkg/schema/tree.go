package schema

import (
	"time"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/value"
)

// Tree is the normalized schema snapshot of one introspection call. It
// is rebuilt wholesale each time; there is no incremental diffing.
type Tree struct {
	Backend    adapter.Kind
	Schemas    []*Schema
	GatheredAt time.Time
}

// Schema is one namespace. Partial marks a node whose children could
// not be fully gathered (typically a permission denial); the rest of
// the tree is still usable.
type Schema struct {
	Name    string
	Tables  []*Table
	Partial bool
}

// Table carries column, index and constraint metadata.
type Table struct {
	Name        string
	Columns     []Column
	Indexes     []Index
	Constraints []Constraint
	Partial     bool
}

// Column describes one table column with both the native declared type
// and its normalized kind, so the same logical schema introspected on
// different backends compares equal on the Kind tag.
type Column struct {
	Name       string
	NativeType string
	Kind       value.Kind
	Nullable   bool
	Position   int
}

type Index struct {
	Name   string
	Column string
	Unique bool
}

// Constraint types are normalized to PRIMARY KEY / FOREIGN KEY /
// UNIQUE / CHECK by the dialect catalog queries.
type Constraint struct {
	Name   string
	Type   string
	Column string
}

// Schema returns the named schema node, or nil.
func (t *Tree) Schema(name string) *Schema {
	for _, s := range t.Schemas {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Table returns the named table node, or nil.
func (s *Schema) Table(name string) *Table {
	for _, tb := range s.Tables {
		if tb.Name == name {
			return tb
		}
	}
	return nil
}
