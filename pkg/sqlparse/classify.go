// Package sqlparse splits query text into statements and classifies
// them so the executor can route row-returning statements, guard
// multi-statement input and track transaction control.
package sqlparse

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// Class groups statements by how their results are consumed.
type Class int

const (
	ClassQuery       Class = iota // produces a result set
	ClassDML                      // produces an affected-row count
	ClassDDL                      // schema change
	ClassTransaction              // BEGIN / COMMIT / ROLLBACK
	ClassOther
)

func (c Class) String() string {
	switch c {
	case ClassQuery:
		return "query"
	case ClassDML:
		return "dml"
	case ClassDDL:
		return "ddl"
	case ClassTransaction:
		return "transaction"
	default:
		return "other"
	}
}

// ReturnsRows reports whether statements of this class stream a result
// set back.
func (c Class) ReturnsRows() bool { return c == ClassQuery }

// Statement is one classified statement with its original text.
type Statement struct {
	Text  string
	Class Class
}

// Classifier parses SQL text. The tidb parser covers the MySQL family;
// for syntax it rejects (engine-specific constructs on the other
// backends) a keyword heuristic takes over, so classification is total.
type Classifier struct {
	p *parser.Parser
}

func NewClassifier() *Classifier {
	return &Classifier{p: parser.New()}
}

// Classify splits sql into statements and classifies each.
func (c *Classifier) Classify(sql string) []Statement {
	stmtNodes, _, err := c.p.Parse(sql, "", "")
	if err != nil || len(stmtNodes) == 0 {
		return classifyHeuristic(sql)
	}

	stmts := make([]Statement, 0, len(stmtNodes))
	for _, node := range stmtNodes {
		text := strings.TrimSpace(node.Text())
		if text == "" {
			continue
		}
		stmts = append(stmts, Statement{Text: text, Class: classifyNode(node)})
	}
	if len(stmts) == 0 {
		return classifyHeuristic(sql)
	}
	return stmts
}

// First returns the first statement and the total statement count.
func (c *Classifier) First(sql string) (Statement, int) {
	stmts := c.Classify(sql)
	if len(stmts) == 0 {
		return Statement{Text: strings.TrimSpace(sql), Class: ClassOther}, 0
	}
	return stmts[0], len(stmts)
}

func classifyNode(node ast.StmtNode) Class {
	switch node.(type) {
	case *ast.SelectStmt, *ast.SetOprStmt, *ast.ShowStmt, *ast.ExplainStmt:
		return ClassQuery
	case *ast.InsertStmt, *ast.UpdateStmt, *ast.DeleteStmt, *ast.LoadDataStmt:
		return ClassDML
	case *ast.BeginStmt, *ast.CommitStmt, *ast.RollbackStmt, *ast.SavepointStmt:
		return ClassTransaction
	case ast.DDLNode:
		return ClassDDL
	default:
		return ClassOther
	}
}

// classifyHeuristic is the dialect-agnostic fallback: split on
// semicolons outside quotes and classify by leading keyword.
func classifyHeuristic(sql string) []Statement {
	var stmts []Statement
	for _, text := range splitStatements(sql) {
		stmts = append(stmts, Statement{Text: text, Class: classifyKeyword(text)})
	}
	return stmts
}

func classifyKeyword(text string) Class {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ClassOther
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "SHOW", "EXPLAIN", "DESC", "DESCRIBE", "TABLE", "VALUES":
		return ClassQuery
	case "INSERT", "UPDATE", "DELETE", "MERGE", "REPLACE", "UPSERT", "CALL":
		return ClassDML
	case "CREATE", "ALTER", "DROP", "TRUNCATE", "RENAME", "COMMENT", "GRANT", "REVOKE":
		return ClassDDL
	case "BEGIN", "START", "COMMIT", "ROLLBACK", "SAVEPOINT":
		return ClassTransaction
	default:
		return ClassOther
	}
}

// splitStatements separates on top-level semicolons, honoring single
// and double quoted runs and line comments.
func splitStatements(sql string) []string {
	var (
		out     []string
		cur     strings.Builder
		quote   byte
		comment bool
	)
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case comment:
			cur.WriteByte(ch)
			if ch == '\n' {
				comment = false
			}
		case quote != 0:
			cur.WriteByte(ch)
			if ch == quote {
				// doubled quote escapes itself
				if i+1 < len(sql) && sql[i+1] == quote {
					cur.WriteByte(sql[i+1])
					i++
				} else {
					quote = 0
				}
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			cur.WriteByte(ch)
		case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			comment = true
			cur.WriteByte(ch)
		case ch == ';':
			if text := strings.TrimSpace(cur.String()); text != "" {
				out = append(out, text)
			}
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	if text := strings.TrimSpace(cur.String()); text != "" {
		out = append(out, text)
	}
	return out
}
