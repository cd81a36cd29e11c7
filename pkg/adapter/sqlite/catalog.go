package sqlite

import "github.com/kasuganosora/dbcore/pkg/adapter"

// Catalog queries for the schema introspector. SQLite exposes metadata
// through pragma table-valued functions; the single namespace is "main".
// The schema parameter every query receives is ignored where SQLite has
// no equivalent concept, so the shapes stay uniform across dialects.

func (d *Dialect) DefaultSchema(profile *adapter.Profile) string { return "main" }

func (d *Dialect) SchemasQuery() string {
	return `SELECT 'main' AS schema_name`
}

func (d *Dialect) TablesQuery() string {
	return `SELECT name AS table_name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND ? IS NOT NULL
ORDER BY name`
}

func (d *Dialect) ColumnsQuery() string {
	return `SELECT name AS column_name,
       type AS data_type,
       CASE "notnull" WHEN 0 THEN 'YES' ELSE 'NO' END AS is_nullable,
       cid + 1 AS ordinal_position
FROM pragma_table_info(?2)
WHERE ?1 IS NOT NULL
ORDER BY cid`
}

func (d *Dialect) IndexesQuery() string {
	return `SELECT il.name AS index_name,
       ii.name AS column_name,
       il."unique" AS is_unique
FROM pragma_index_list(?2) il
JOIN pragma_index_info(il.name) ii
WHERE ?1 IS NOT NULL
ORDER BY il.name, ii.seqno`
}

func (d *Dialect) ConstraintsQuery() string {
	return `SELECT 'pk_' || ?2 AS constraint_name,
       'PRIMARY KEY' AS constraint_type,
       name AS column_name
FROM pragma_table_info(?2)
WHERE pk > 0 AND ?1 IS NOT NULL
UNION ALL
SELECT 'fk_' || ?2 || '_' || id AS constraint_name,
       'FOREIGN KEY' AS constraint_type,
       "from" AS column_name
FROM pragma_foreign_key_list(?2)
ORDER BY constraint_name`
}
