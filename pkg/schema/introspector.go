// Package schema assembles a normalized metadata tree from the
// backend's catalog. Every call reflects the catalog at call time;
// nothing is cached across calls.
package schema

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/dbcore/pkg/conn"
	"github.com/kasuganosora/dbcore/pkg/dberr"
)

// Introspector builds Schema Trees for the manager's active session.
type Introspector struct {
	mgr *conn.Manager
	log *zap.Logger
}

// Option configures an Introspector.
type Option func(*Introspector)

// WithLogger attaches a logger; the default is a nop.
func WithLogger(log *zap.Logger) Option {
	return func(i *Introspector) { i.log = log }
}

func NewIntrospector(mgr *conn.Manager, opts ...Option) *Introspector {
	i := &Introspector{mgr: mgr, log: zap.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// claimSession resolves the active session and claims it, so catalog
// queries never interleave with a streaming statement on the pinned
// connection. The caller releases it.
func (i *Introspector) claimSession() (*conn.Session, error) {
	sess := i.mgr.Session()
	if sess == nil {
		return nil, dberr.New(dberr.KindNotConnected, "", "no active session")
	}
	if err := sess.Acquire(); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSchema introspects the session's current schema (the profile's
// schema, or the backend default).
func (i *Introspector) GetSchema(ctx context.Context) (*Tree, error) {
	sess, err := i.claimSession()
	if err != nil {
		return nil, err
	}
	defer sess.Release()
	name := sess.Profile().Schema
	if name == "" {
		name = sess.Adapter().Catalog().DefaultSchema(sess.Profile())
	}
	return i.introspect(ctx, sess, []string{name})
}

// GetSchemaNamed introspects one explicitly named schema.
func (i *Introspector) GetSchemaNamed(ctx context.Context, name string) (*Tree, error) {
	sess, err := i.claimSession()
	if err != nil {
		return nil, err
	}
	defer sess.Release()
	if max := sess.Adapter().Capabilities().MaxIdentifierLength; max > 0 && len(name) > max {
		return nil, dberr.Newf(dberr.KindSyntax, string(sess.Profile().Kind),
			"schema name exceeds the backend's %d-character identifier limit", max)
	}
	return i.introspect(ctx, sess, []string{name})
}

// GetSchemaAll introspects every schema visible to the session.
func (i *Introspector) GetSchemaAll(ctx context.Context) (*Tree, error) {
	sess, err := i.claimSession()
	if err != nil {
		return nil, err
	}
	defer sess.Release()
	catalog := sess.Adapter().Catalog()
	rows, err := i.queryAll(ctx, sess, catalog.SchemasQuery())
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			names = append(names, asString(row[0]))
		}
	}
	return i.introspect(ctx, sess, names)
}

func (i *Introspector) introspect(ctx context.Context, sess *conn.Session, names []string) (*Tree, error) {
	tree := &Tree{
		Backend:    sess.Profile().Kind,
		GatheredAt: time.Now(),
	}
	for _, name := range names {
		node, err := i.introspectSchema(ctx, sess, name)
		if err != nil {
			return nil, err
		}
		tree.Schemas = append(tree.Schemas, node)
	}
	return tree, nil
}

// introspectSchema gathers one schema. Permission denials on
// sub-queries mark the affected node partial instead of failing the
// tree; anything else aborts.
func (i *Introspector) introspectSchema(ctx context.Context, sess *conn.Session, name string) (*Schema, error) {
	catalog := sess.Adapter().Catalog()
	node := &Schema{Name: name}

	rows, err := i.queryAll(ctx, sess, catalog.TablesQuery(), name)
	if err != nil {
		if dberr.KindOf(err) == dberr.KindPermission {
			node.Partial = true
			i.log.Warn("schema introspection partial",
				zap.String("schema", name), zap.Error(err))
			return node, nil
		}
		return nil, err
	}

	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		table, err := i.introspectTable(ctx, sess, name, asString(row[0]))
		if err != nil {
			return nil, err
		}
		node.Tables = append(node.Tables, table)
		if table.Partial {
			node.Partial = true
		}
	}
	return node, nil
}

func (i *Introspector) introspectTable(ctx context.Context, sess *conn.Session, schemaName, tableName string) (*Table, error) {
	catalog := sess.Adapter().Catalog()
	ad := sess.Adapter()
	table := &Table{Name: tableName}

	partial := func(err error) (bool, error) {
		if err == nil {
			return false, nil
		}
		if dberr.KindOf(err) == dberr.KindPermission {
			table.Partial = true
			i.log.Warn("table introspection partial",
				zap.String("schema", schemaName),
				zap.String("table", tableName),
				zap.Error(err))
			return true, nil
		}
		return false, err
	}

	rows, err := i.queryAll(ctx, sess, catalog.ColumnsQuery(), schemaName, tableName)
	if skipped, err := partial(err); err != nil {
		return nil, err
	} else if !skipped {
		for _, row := range rows {
			if len(row) < 4 {
				continue
			}
			nativeType := asString(row[1])
			table.Columns = append(table.Columns, Column{
				Name:       asString(row[0]),
				NativeType: nativeType,
				Kind:       ad.NormalizeType(nativeType),
				Nullable:   strings.EqualFold(asString(row[2]), "YES"),
				Position:   asInt(row[3]),
			})
		}
	}

	rows, err = i.queryAll(ctx, sess, catalog.IndexesQuery(), schemaName, tableName)
	if skipped, err := partial(err); err != nil {
		return nil, err
	} else if !skipped {
		for _, row := range rows {
			if len(row) < 3 {
				continue
			}
			table.Indexes = append(table.Indexes, Index{
				Name:   asString(row[0]),
				Column: asString(row[1]),
				Unique: asInt(row[2]) != 0,
			})
		}
	}

	rows, err = i.queryAll(ctx, sess, catalog.ConstraintsQuery(), schemaName, tableName)
	if skipped, err := partial(err); err != nil {
		return nil, err
	} else if !skipped {
		for _, row := range rows {
			if len(row) < 3 {
				continue
			}
			table.Constraints = append(table.Constraints, Constraint{
				Name:   asString(row[0]),
				Type:   asString(row[1]),
				Column: strings.TrimSpace(asString(row[2])),
			})
		}
	}

	return table, nil
}

// queryAll runs one catalog query and drains it.
func (i *Introspector) queryAll(ctx context.Context, sess *conn.Session, query string, args ...any) ([][]any, error) {
	raw, err := sess.Adapter().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer raw.Close()

	var all [][]any
	for {
		batch, eof, err := raw.FetchNext(ctx, 256)
		all = append(all, batch...)
		if err != nil {
			return nil, sess.Adapter().NormalizeError(err)
		}
		if eof {
			return all, nil
		}
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	case []byte:
		if i, err := strconv.Atoi(string(n)); err == nil {
			return i
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return 0
}
