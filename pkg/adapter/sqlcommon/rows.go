package sqlcommon

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/kasuganosora/dbcore/pkg/adapter"
)

// rawRows adapts *sql.Rows to the streaming FetchNext contract. The
// column descriptor list is built once and immutable afterwards.
type rawRows struct {
	mu      sync.Mutex
	rows    *sql.Rows
	dialect Dialect
	columns []adapter.Column
	eof     bool
	closed  bool
}

func newRawRows(rows *sql.Rows, dialect Dialect) (*rawRows, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("get column types: %w", err)
	}

	columns := make([]adapter.Column, len(colTypes))
	for i, ct := range colTypes {
		nullable, _ := ct.Nullable()
		columns[i] = adapter.Column{
			Name:       ct.Name(),
			NativeType: ct.DatabaseTypeName(),
			Kind:       dialect.NormalizeType(ct.DatabaseTypeName()),
			Nullable:   nullable,
		}
	}

	return &rawRows{rows: rows, dialect: dialect, columns: columns}, nil
}

func (r *rawRows) Columns() []adapter.Column { return r.columns }

// FetchNext scans up to maxRows rows. Cancellation is observed between
// rows through ctx; the underlying driver observes it mid-read through
// the query context.
func (r *rawRows) FetchNext(ctx context.Context, maxRows int) ([][]any, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.eof {
		return nil, true, nil
	}
	if maxRows <= 0 {
		maxRows = 1
	}

	batch := make([][]any, 0, maxRows)
	for len(batch) < maxRows {
		if err := ctx.Err(); err != nil {
			return batch, false, err
		}
		if !r.rows.Next() {
			r.eof = true
			if err := r.rows.Err(); err != nil {
				return batch, false, err
			}
			return batch, true, nil
		}

		values := make([]any, len(r.columns))
		targets := make([]any, len(r.columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := r.rows.Scan(targets...); err != nil {
			return batch, false, fmt.Errorf("scan row: %w", err)
		}
		batch = append(batch, values)
	}
	return batch, false, nil
}

func (r *rawRows) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.rows.Close()
}
