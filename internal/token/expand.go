package token

import "strings"

const (
	// Prefix introduces a token reference.
	Prefix = "TOK_"

	// MaxNameLen is the longest name scanned after Prefix.
	MaxNameLen = 7

	// DefaultBufferSize is the expansion capacity, terminator included.
	DefaultBufferSize = 2048
)

// Expand writes the expansion of hint into dst and returns the number of
// bytes written.
//
// At most len(dst)-1 bytes are written and dst[n] is set to 0, so a buffer
// handed to C-style consumers stays terminated. Output that does not fit is
// cut at the last byte that fits and expansion stops; this is not an error.
// Unknown or empty token names are copied through literally.
func (t *Table) Expand(dst []byte, hint string) int {
	if len(dst) == 0 {
		return 0
	}
	w := boundedWriter{buf: dst, limit: len(dst) - 1}

	for i := 0; i < len(hint) && !w.full; {
		if !strings.HasPrefix(hint[i:], Prefix) {
			w.writeByte(hint[i])
			i++
			continue
		}

		nameStart := i + len(Prefix)
		end := nameStart + scanName(hint[nameStart:])
		if end > nameStart {
			if text, ok := t.Lookup(hint[nameStart:end]); ok {
				w.write(text)
				i = end
				continue
			}
		}
		// "TOK_" alone or "TOK_<unknown>": pass through. With an empty name
		// the byte after "TOK_" is handled by the next iteration.
		w.write(hint[i:end])
		i = end
	}

	dst[w.n] = 0
	return w.n
}

// ExpandString expands hint into a fresh DefaultBufferSize buffer.
func (t *Table) ExpandString(hint string) string {
	buf := make([]byte, DefaultBufferSize)
	n := t.Expand(buf, hint)
	return string(buf[:n])
}

// ExpandedLen returns the length hint expands to when no buffer limit applies.
func (t *Table) ExpandedLen(hint string) int {
	n := 0
	for i := 0; i < len(hint); {
		if !strings.HasPrefix(hint[i:], Prefix) {
			n++
			i++
			continue
		}
		nameStart := i + len(Prefix)
		end := nameStart + scanName(hint[nameStart:])
		if end > nameStart {
			if text, ok := t.Lookup(hint[nameStart:end]); ok {
				n += len(text)
				i = end
				continue
			}
		}
		n += end - i
		i = end
	}
	return n
}

// Refs returns the names of every TOK_<name> reference in hint, known or
// not, in order of appearance. A bare "TOK_" is not a reference.
func Refs(hint string) []string {
	var names []string
	for i := 0; i < len(hint); {
		idx := strings.Index(hint[i:], Prefix)
		if idx < 0 {
			break
		}
		nameStart := i + idx + len(Prefix)
		end := nameStart + scanName(hint[nameStart:])
		if end > nameStart {
			names = append(names, hint[nameStart:end])
		}
		i = end
	}
	return names
}

// scanName returns the length of the token name at the start of s.
func scanName(s string) int {
	n := 0
	for n < MaxNameLen && n < len(s) && isNameByte(s[n]) {
		n++
	}
	return n
}

func isNameByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '_'
}

// boundedWriter copies into buf without ever passing limit.
type boundedWriter struct {
	buf   []byte
	n     int
	limit int
	full  bool
}

func (w *boundedWriter) write(s string) {
	room := w.limit - w.n
	if len(s) > room {
		s = s[:room]
		w.full = true
	}
	w.n += copy(w.buf[w.n:], s)
}

func (w *boundedWriter) writeByte(c byte) {
	if w.n >= w.limit {
		w.full = true
		return
	}
	w.buf[w.n] = c
	w.n++
}

// Expander owns a scratch buffer and expands hints into it. An Expander is
// not safe for concurrent use; give each goroutine its own (kb pools them).
type Expander struct {
	table *Table
	buf   []byte
}

// NewExpander returns an Expander over table with a size-byte buffer.
// A nil table means DefaultTable; size <= 1 means DefaultBufferSize.
func NewExpander(table *Table, size int) *Expander {
	if table == nil {
		table = DefaultTable()
	}
	if size <= 1 {
		size = DefaultBufferSize
	}
	return &Expander{table: table, buf: make([]byte, size)}
}

// Expand expands hint into the Expander's buffer. The returned slice aliases
// that buffer and is only valid until the next call.
func (e *Expander) Expand(hint string) []byte {
	n := e.table.Expand(e.buf, hint)
	return e.buf[:n]
}

// Capacity returns the maximum number of bytes a single expansion can produce.
func (e *Expander) Capacity() int {
	return len(e.buf) - 1
}
