package pager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	"github.com/kasuganosora/dbcore/pkg/adapter/sqlcommon"
	"github.com/kasuganosora/dbcore/pkg/conn"
	"github.com/kasuganosora/dbcore/pkg/dberr"
	"github.com/kasuganosora/dbcore/pkg/exec"
	"github.com/kasuganosora/dbcore/pkg/value"
)

// streamAdapter serves one scripted int column result set.
type streamAdapter struct {
	rows *streamRows
}

type streamRows struct {
	total int
	pos   int
}

func (r *streamRows) Columns() []adapter.Column {
	return []adapter.Column{{Name: "id", NativeType: "INT", Kind: value.KindInt}}
}

func (r *streamRows) FetchNext(ctx context.Context, maxRows int) ([][]any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var batch [][]any
	for len(batch) < maxRows && r.pos < r.total {
		r.pos++
		batch = append(batch, []any{int64(r.pos)})
	}
	return batch, r.pos >= r.total, nil
}

func (r *streamRows) Close() error { return nil }

func (f *streamAdapter) Kind() adapter.Kind                 { return adapter.Kind("fake") }
func (f *streamAdapter) Capabilities() adapter.Capabilities { return adapter.Capabilities{} }
func (f *streamAdapter) Connect(ctx context.Context) error  { return nil }
func (f *streamAdapter) Close(ctx context.Context) error    { return nil }
func (f *streamAdapter) Connected() bool                    { return true }
func (f *streamAdapter) ServerVersion() string              { return "fake-1.0" }
func (f *streamAdapter) Query(ctx context.Context, sql string, args ...any) (adapter.RawRows, error) {
	return f.rows, nil
}
func (f *streamAdapter) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return 0, nil
}
func (f *streamAdapter) Begin(ctx context.Context) error    { return nil }
func (f *streamAdapter) Commit(ctx context.Context) error   { return nil }
func (f *streamAdapter) Rollback(ctx context.Context) error { return nil }
func (f *streamAdapter) Abort() error                       { return nil }
func (f *streamAdapter) NormalizeType(nativeType string) value.Kind {
	return value.KindInt
}
func (f *streamAdapter) NormalizeValue(col adapter.Column, raw any) value.Value {
	return sqlcommon.DefaultNormalize(col, raw)
}
func (f *streamAdapter) NormalizeError(err error) error { return err }
func (f *streamAdapter) Catalog() adapter.Catalog       { return nil }

// newPager runs a query producing total sequential rows and wraps its
// handle.
func newPager(t *testing.T, total int, opts ...Option) *Pager {
	t.Helper()
	fa := &streamAdapter{rows: &streamRows{total: total}}
	mgr := conn.NewManager(conn.WithFactory(
		func(p *adapter.Profile) (adapter.Adapter, error) { return fa, nil }))
	_, err := mgr.Connect(context.Background(),
		&adapter.Profile{Name: "test", Kind: adapter.Kind("fake"), Host: "x"})
	require.NoError(t, err)

	h, err := exec.NewExecutor(mgr).RunQuery(context.Background(), "SELECT id FROM t")
	require.NoError(t, err)
	return New(h, opts...)
}

func firstID(rows []exec.Row) int64 {
	return rows[0][0].Int()
}

func TestPageBoundaries(t *testing.T) {
	// 5 rows at page size 2: pages of 2, 2 and 1
	p := newPager(t, 5, WithPageSize(2))

	page, err := p.Page(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(1), firstID(page))
	assert.True(t, p.HasMore())

	page, err = p.Page(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), firstID(page))

	page, err = p.Page(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(5), firstID(page))
	assert.False(t, p.HasMore())

	total, known := p.TotalRows()
	assert.True(t, known)
	assert.Equal(t, int64(5), total)
}

func TestExactPageBoundary(t *testing.T) {
	// 4 rows at page size 2: exactly 2 pages, page 2 is past the end
	p := newPager(t, 4, WithPageSize(2))

	page, err := p.Page(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.False(t, p.HasMore())

	total, known := p.TotalRows()
	assert.True(t, known)
	assert.Equal(t, int64(4), total)
}

func TestEmptyResult(t *testing.T) {
	p := newPager(t, 0, WithPageSize(2))

	page, err := p.Page(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.False(t, p.HasMore())

	total, known := p.TotalRows()
	assert.True(t, known)
	assert.Zero(t, total)
}

func TestResidentPageIsReServed(t *testing.T) {
	p := newPager(t, 10, WithPageSize(2))

	first, err := p.Page(context.Background(), 0)
	require.NoError(t, err)

	_, err = p.Page(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Position())

	// backwards to a buffered page, no re-execution involved
	again, err := p.Page(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 0, p.Position())
}

func TestSkippingAheadLoadsIntermediatePages(t *testing.T) {
	p := newPager(t, 10, WithPageSize(2))

	page, err := p.Page(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(9), firstID(page))

	// the skipped pages were buffered on the way
	page, err = p.Page(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), firstID(page))
}

func TestEvictedPageFails(t *testing.T) {
	// 10 pages through a 3-page buffer
	p := newPager(t, 20, WithPageSize(2), WithMaxPages(3))

	_, err := p.Page(context.Background(), 9)
	require.NoError(t, err)

	_, err = p.Page(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, dberr.KindPageEvicted, dberr.KindOf(err))

	// recent pages are still resident
	page, err := p.Page(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, int64(17), firstID(page))
}

func TestLRUKeepsTouchedPages(t *testing.T) {
	p := newPager(t, 20, WithPageSize(2), WithMaxPages(3))

	_, err := p.Page(context.Background(), 0)
	require.NoError(t, err)
	_, err = p.Page(context.Background(), 1)
	require.NoError(t, err)
	_, err = p.Page(context.Background(), 2)
	require.NoError(t, err)

	// touch page 0 so page 1 is now the eviction candidate
	_, err = p.Page(context.Background(), 0)
	require.NoError(t, err)

	_, err = p.Page(context.Background(), 3)
	require.NoError(t, err)

	_, err = p.Page(context.Background(), 0)
	assert.NoError(t, err, "recently used page should survive eviction")

	_, err = p.Page(context.Background(), 1)
	assert.Equal(t, dberr.KindPageEvicted, dberr.KindOf(err))
}

func TestNegativePageIndex(t *testing.T) {
	p := newPager(t, 2)
	_, err := p.Page(context.Background(), -1)
	require.Error(t, err)
}

func TestTotalRowsUnknownWhileStreaming(t *testing.T) {
	p := newPager(t, 10, WithPageSize(2))

	_, err := p.Page(context.Background(), 0)
	require.NoError(t, err)

	_, known := p.TotalRows()
	assert.False(t, known)
}

func TestDefaultOptions(t *testing.T) {
	p := newPager(t, 1)
	assert.Equal(t, DefaultPageSize, p.PageSize())

	// non-positive options keep the defaults
	p = newPager(t, 1, WithPageSize(0), WithMaxPages(-1))
	assert.Equal(t, DefaultPageSize, p.PageSize())
}
