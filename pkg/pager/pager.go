// Package pager buffers normalized rows in bounded fixed-size pages so
// a caller can scroll a large result set without holding all of it in
// memory. Evicted pages are gone: the underlying handle is single-use,
// so re-reading them would need a fresh execute.
package pager

import (
	"container/list"
	"context"

	"github.com/kasuganosora/dbcore/pkg/dberr"
	"github.com/kasuganosora/dbcore/pkg/exec"
)

const (
	DefaultPageSize = 100
	DefaultMaxPages = 50
)

// Pager pages one query handle's rows. Pages are least-recently-used
// evicted once maxPages resident pages are exceeded.
type Pager struct {
	handle   *exec.Handle
	pageSize int
	maxPages int

	pages    map[int][]exec.Row
	lru      *list.List // front = most recent; holds page indexes
	elems    map[int]*list.Element
	evicted  map[int]bool
	loaded   int  // number of pages pulled from the handle so far
	eof      bool // handle fully drained
	lastLen  int  // row count of the final page once eof
	position int
}

// Option configures a Pager.
type Option func(*Pager)

// WithPageSize sets the rows-per-page window.
func WithPageSize(n int) Option {
	return func(p *Pager) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// WithMaxPages bounds the resident buffer.
func WithMaxPages(n int) Option {
	return func(p *Pager) {
		if n > 0 {
			p.maxPages = n
		}
	}
}

// New wraps a handle. The pager owns the handle's row stream from here
// on; nothing else may fetch from it.
func New(handle *exec.Handle, opts ...Option) *Pager {
	p := &Pager{
		handle:   handle,
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPages,
		pages:    make(map[int][]exec.Row),
		lru:      list.New(),
		elems:    make(map[int]*list.Element),
		evicted:  make(map[int]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pager) PageSize() int { return p.pageSize }

// Position is the index of the page served most recently.
func (p *Pager) Position() int { return p.position }

// HasMore reports whether rows beyond the loaded pages may exist.
func (p *Pager) HasMore() bool { return !p.eof }

// TotalRows returns the exact row count and true once the stream has
// been fully drained; while streaming the total is unknown.
func (p *Pager) TotalRows() (int64, bool) {
	if !p.eof {
		return 0, false
	}
	if p.loaded == 0 {
		return 0, true
	}
	return int64(p.loaded-1)*int64(p.pageSize) + int64(p.lastLen), true
}

// Page returns the rows of the given zero-based page index. Resident
// pages are re-served from the buffer; pages past the loaded range pull
// from the executor; pages past the end of the result come back empty
// with HasMore false; pages the eviction policy discarded fail with the
// page-evicted kind.
func (p *Pager) Page(ctx context.Context, index int) ([]exec.Row, error) {
	if index < 0 {
		return nil, dberr.Newf(dberr.KindInternal, "", "negative page index %d", index)
	}

	if rows, ok := p.pages[index]; ok {
		p.touch(index)
		p.position = index
		return rows, nil
	}
	if p.evicted[index] {
		return nil, dberr.Newf(dberr.KindPageEvicted, "",
			"page %d was evicted from the buffer", index)
	}

	for !p.eof && p.loaded <= index {
		if err := p.loadNext(ctx); err != nil {
			return nil, err
		}
	}

	if rows, ok := p.pages[index]; ok {
		p.touch(index)
		p.position = index
		return rows, nil
	}
	if p.evicted[index] {
		return nil, dberr.Newf(dberr.KindPageEvicted, "",
			"page %d was evicted from the buffer", index)
	}
	// Past the end of the result.
	p.position = index
	return []exec.Row{}, nil
}

// loadNext pulls one page worth of rows from the handle.
func (p *Pager) loadNext(ctx context.Context) error {
	var rows []exec.Row
	for len(rows) < p.pageSize {
		batch, eof, err := p.handle.Fetch(ctx, p.pageSize-len(rows))
		rows = append(rows, batch...)
		if err != nil {
			return err
		}
		if eof {
			p.eof = true
			break
		}
	}
	if len(rows) == 0 && p.eof {
		// The stream ended exactly on a page boundary.
		return nil
	}

	index := p.loaded
	p.loaded++
	p.pages[index] = rows
	p.elems[index] = p.lru.PushFront(index)
	p.lastLen = len(rows)
	p.evictOverflow()
	return nil
}

func (p *Pager) touch(index int) {
	if el, ok := p.elems[index]; ok {
		p.lru.MoveToFront(el)
	}
}

func (p *Pager) evictOverflow() {
	for p.lru.Len() > p.maxPages {
		back := p.lru.Back()
		if back == nil {
			return
		}
		index := back.Value.(int)
		p.lru.Remove(back)
		delete(p.elems, index)
		delete(p.pages, index)
		p.evicted[index] = true
	}
}
