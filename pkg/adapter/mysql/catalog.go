package mysql

import "github.com/kasuganosora/dbcore/pkg/adapter"

// Catalog queries for the schema introspector. In MySQL the schema and
// the database are the same namespace.

func (d *Dialect) DefaultSchema(profile *adapter.Profile) string { return profile.Database }

func (d *Dialect) SchemasQuery() string {
	return `SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA
WHERE SCHEMA_NAME NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
ORDER BY SCHEMA_NAME`
}

func (d *Dialect) TablesQuery() string {
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_NAME`
}

func (d *Dialect) ColumnsQuery() string {
	return `SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, ORDINAL_POSITION
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`
}

func (d *Dialect) IndexesQuery() string {
	return `SELECT INDEX_NAME, COLUMN_NAME, IF(NON_UNIQUE = 0, 1, 0) AS IS_UNIQUE
FROM INFORMATION_SCHEMA.STATISTICS
WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
ORDER BY INDEX_NAME, SEQ_IN_INDEX`
}

func (d *Dialect) ConstraintsQuery() string {
	return `SELECT tc.CONSTRAINT_NAME,
       tc.CONSTRAINT_TYPE,
       COALESCE(kcu.COLUMN_NAME, '') AS COLUMN_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
LEFT JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
  ON kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
 AND kcu.TABLE_SCHEMA = tc.TABLE_SCHEMA
 AND kcu.TABLE_NAME = tc.TABLE_NAME
WHERE tc.TABLE_SCHEMA = ? AND tc.TABLE_NAME = ?
ORDER BY tc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`
}
