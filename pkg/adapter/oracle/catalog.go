package oracle

import (
	"strings"

	"github.com/kasuganosora/dbcore/pkg/adapter"
)

// Catalog queries for the schema introspector. Oracle schemas are
// users; the default schema is the connecting user.

func (d *Dialect) DefaultSchema(profile *adapter.Profile) string {
	return strings.ToUpper(profile.Username)
}

func (d *Dialect) SchemasQuery() string {
	return `SELECT username AS schema_name FROM all_users ORDER BY username`
}

func (d *Dialect) TablesQuery() string {
	return `SELECT table_name FROM all_tables WHERE owner = :1 ORDER BY table_name`
}

func (d *Dialect) ColumnsQuery() string {
	return `SELECT column_name,
       data_type,
       CASE nullable WHEN 'Y' THEN 'YES' ELSE 'NO' END AS is_nullable,
       column_id AS ordinal_position
FROM all_tab_columns
WHERE owner = :1 AND table_name = :2
ORDER BY column_id`
}

func (d *Dialect) IndexesQuery() string {
	return `SELECT ic.index_name,
       ic.column_name,
       CASE i.uniqueness WHEN 'UNIQUE' THEN 1 ELSE 0 END AS is_unique
FROM all_ind_columns ic
JOIN all_indexes i ON i.owner = ic.index_owner AND i.index_name = ic.index_name
WHERE ic.table_owner = :1 AND ic.table_name = :2
ORDER BY ic.index_name, ic.column_position`
}

func (d *Dialect) ConstraintsQuery() string {
	return `SELECT c.constraint_name,
       CASE c.constraint_type
         WHEN 'P' THEN 'PRIMARY KEY'
         WHEN 'R' THEN 'FOREIGN KEY'
         WHEN 'U' THEN 'UNIQUE'
         WHEN 'C' THEN 'CHECK'
         ELSE c.constraint_type
       END AS constraint_type,
       COALESCE(cc.column_name, ' ') AS column_name
FROM all_constraints c
LEFT JOIN all_cons_columns cc
  ON cc.owner = c.owner AND cc.constraint_name = c.constraint_name
WHERE c.owner = :1 AND c.table_name = :2
ORDER BY c.constraint_name, cc.position`
}
