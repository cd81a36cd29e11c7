package postgresql

import "github.com/kasuganosora/dbcore/pkg/adapter"

// Catalog queries for the schema introspector. Column shapes follow the
// adapter.Catalog contract.

func (d *Dialect) DefaultSchema(profile *adapter.Profile) string { return "public" }

func (d *Dialect) SchemasQuery() string {
	return `SELECT schema_name FROM information_schema.schemata
WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
  AND schema_name NOT LIKE 'pg_toast%'
  AND schema_name NOT LIKE 'pg_temp%'
ORDER BY schema_name`
}

func (d *Dialect) TablesQuery() string {
	return `SELECT table_name FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`
}

func (d *Dialect) ColumnsQuery() string {
	return `SELECT column_name, udt_name AS data_type, is_nullable, ordinal_position
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`
}

func (d *Dialect) IndexesQuery() string {
	return `SELECT i.relname AS index_name, a.attname AS column_name,
       CASE WHEN ix.indisunique THEN 1 ELSE 0 END AS is_unique
FROM pg_index ix
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
WHERE n.nspname = $1 AND t.relname = $2
ORDER BY i.relname, a.attnum`
}

func (d *Dialect) ConstraintsQuery() string {
	return `SELECT tc.constraint_name,
       tc.constraint_type,
       COALESCE(kcu.column_name, '') AS column_name
FROM information_schema.table_constraints tc
LEFT JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name
 AND kcu.table_schema = tc.table_schema
 AND kcu.table_name = tc.table_name
WHERE tc.table_schema = $1 AND tc.table_name = $2
ORDER BY tc.constraint_name, kcu.ordinal_position`
}
