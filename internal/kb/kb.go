// Package kb is the alert-code knowledge base: an ordered table of
// (code, description, compressed hint) rows and the lookup that turns a
// code into an expanded, caller-owned Result.
package kb

import (
	"sync"
	"sync/atomic"

	"github.com/amigazen/insight/internal/alert"
	"github.com/amigazen/insight/internal/errors"
	"github.com/amigazen/insight/internal/token"
)

// Entry is one knowledge base row. Rows are never modified once loaded.
type Entry struct {
	Code        alert.Code
	Description string
	Hint        string // may contain TOK_<name> references
	Group       string // section the row was declared under
}

// Sentinel terminates every table and never matches a lookup.
var Sentinel = Entry{
	Code:        alert.NoAlert,
	Description: "End of table",
	Hint:        "End marker for error table.",
}

// Options tunes a Base. The zero value is usable.
type Options struct {
	// Tokens expands hints. nil means token.DefaultTable().
	Tokens *token.Table

	// BufferSize is the per-lookup expansion capacity, terminator included.
	// 0 means token.DefaultBufferSize.
	BufferSize int

	// MaxLiveResults caps results handed out and not yet released. 0 = no cap.
	MaxLiveResults int64

	// MaxLiveHintBytes caps the expanded hint bytes held by live results. 0 = no cap.
	MaxLiveHintBytes int64
}

// Base is a loaded knowledge base. It is safe for concurrent use.
type Base struct {
	entries   []Entry // last row is always Sentinel
	tokens    *token.Table
	expanders sync.Pool
	results   budget
	hintBytes budget
}

// New builds a Base over a copy of entries. The sentinel row is appended
// unless entries already ends with it.
func New(entries []Entry, opts Options) *Base {
	rows := make([]Entry, 0, len(entries)+1)
	rows = append(rows, entries...)
	if len(rows) == 0 || rows[len(rows)-1].Code != Sentinel.Code {
		rows = append(rows, Sentinel)
	}

	tokens := opts.Tokens
	if tokens == nil {
		tokens = token.DefaultTable()
	}
	size := opts.BufferSize
	if size <= 1 {
		size = token.DefaultBufferSize
	}

	b := &Base{
		entries:   rows,
		tokens:    tokens,
		results:   budget{limit: opts.MaxLiveResults},
		hintBytes: budget{limit: opts.MaxLiveHintBytes},
	}
	b.expanders.New = func() any {
		return token.NewExpander(tokens, size)
	}
	return b
}

// Lookup returns the first row whose code equals code, with its hint
// expanded into storage owned by the returned Result.
//
// An absent code yields a NOT_FOUND error. When the allocation budget is
// exhausted the error is ALLOCATION_FAILURE and nothing stays reserved.
// Every Result must be handed back with Release.
func (b *Base) Lookup(code alert.Code) (*Result, error) {
	entry := b.find(code)
	if entry == nil {
		return nil, errors.NewNotFound(uint32(code))
	}

	if !b.results.reserve(1) {
		return nil, errors.NewAllocationFailure("lookup result", b.results.limit)
	}

	e := b.expanders.Get().(*token.Expander)
	defer b.expanders.Put(e)

	expanded := e.Expand(entry.Hint)
	size := int64(len(expanded))
	if !b.hintBytes.reserve(size) {
		b.results.release(1)
		return nil, errors.NewAllocationFailure("hint", b.hintBytes.limit)
	}

	return &Result{
		Code:  entry.Code,
		entry: entry,
		hint:  string(expanded),
		size:  size,
		owner: b,
	}, nil
}

// find scans rows in declaration order, skipping the sentinel.
func (b *Base) find(code alert.Code) *Entry {
	rows := b.entries[:len(b.entries)-1]
	for i := range rows {
		if rows[i].Code == code {
			return &rows[i]
		}
	}
	return nil
}

// Release returns r's reservations. nil and already released results are ignored.
func (b *Base) Release(r *Result) {
	r.Release()
}

// Count returns the number of rows, excluding the sentinel.
func (b *Base) Count() int {
	return len(b.entries) - 1
}

// EntryAt returns row i (0 <= i < Count()).
func (b *Base) EntryAt(i int) Entry {
	return b.entries[i]
}

// Entries returns a copy of all rows in declaration order, without the sentinel.
func (b *Base) Entries() []Entry {
	out := make([]Entry, b.Count())
	copy(out, b.entries)
	return out
}

// Groups returns the distinct group names in first-seen order.
func (b *Base) Groups() []string {
	seen := make(map[string]bool)
	var groups []string
	for _, e := range b.entries[:b.Count()] {
		if e.Group != "" && !seen[e.Group] {
			seen[e.Group] = true
			groups = append(groups, e.Group)
		}
	}
	return groups
}

// Tokens returns the table hints are expanded with.
func (b *Base) Tokens() *token.Table {
	return b.tokens
}

// Expand expands an arbitrary hint with this Base's tokens and buffer size.
func (b *Base) Expand(hint string) string {
	e := b.expanders.Get().(*token.Expander)
	defer b.expanders.Put(e)
	return string(e.Expand(hint))
}

// Live returns the number of results not yet released.
func (b *Base) Live() int64 {
	return b.results.used.Load()
}

// LiveHintBytes returns the expanded hint bytes held by unreleased results.
func (b *Base) LiveHintBytes() int64 {
	return b.hintBytes.used.Load()
}

// budget is a lock-free counter with an optional ceiling.
type budget struct {
	limit int64
	used  atomic.Int64
}

func (b *budget) reserve(n int64) bool {
	if b.limit <= 0 {
		b.used.Add(n)
		return true
	}
	for {
		cur := b.used.Load()
		if cur+n > b.limit {
			return false
		}
		if b.used.CompareAndSwap(cur, cur+n) {
			return true
		}
	}
}

func (b *budget) release(n int64) {
	b.used.Add(-n)
}
