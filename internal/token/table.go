// Package token expands the TOK_<name> placeholders used to compress hint
// text in the alert knowledge base.
package token

// Version identifies the token table layout. Bump it whenever a phrase is
// added, removed or reworded so stored hints can be checked against it.
const Version = 1

// Token maps a short name to the phrase it stands for.
type Token struct {
	Name string `json:"name" yaml:"name"`
	Text string `json:"text" yaml:"text"`
}

// Table is an immutable, ordered token table.
type Table struct {
	version int
	tokens  []Token
	byName  map[string]string
}

// defaultTokens are the phrases produced by the hint compressor.
var defaultTokens = []Token{
	{"01", "Check for memory leaks"},
	{"02", "Check for memory leaks in"},
	{"03", "memory allocation failure"},
	{"04", "is the likely cause. A"},
	{"05", "debugger to trace the"},
	{"06", "Use a debugger to trace"},
	{"07", "a debugger to trace the"},
	{"08", "Use a debugger to trace the"},
	{"09", "debugger to trace the cause."},
	{"10", "a debugger to trace the cause."},
	{"11", "Use a debugger to trace the cause."},
	{"12", "A resource conflict or"},
	{"13", "for missing interrupt"},
	{"14", "trace the cause. Check"},
	{"15", "to trace the cause. Check"},
	{"16", "memory leak or a large"},
	{"17", "debugger to trace the cause. Check"},
	{"18", "a debugger to trace the cause. Check"},
	{"19", "Use a debugger to trace the cause. Check"},
	{"20", "interrupt vector table"},
	{"21", "defect in the driver's"},
	{"22", "in the driver's code."},
	{"23", "A memory allocation failure"},
	{"24", "caused a memory shortage."},
	{"25", "Look for missing interrupt"},
}

var defaultTable = NewTable(Version, defaultTokens)

// DefaultTable returns the built-in token table.
func DefaultTable() *Table {
	return defaultTable
}

// NewTable builds a table from tokens. The slice is copied. When a name
// appears more than once the first phrase wins.
func NewTable(version int, tokens []Token) *Table {
	t := &Table{
		version: version,
		tokens:  make([]Token, len(tokens)),
		byName:  make(map[string]string, len(tokens)),
	}
	copy(t.tokens, tokens)
	for _, tok := range tokens {
		if _, dup := t.byName[tok.Name]; !dup {
			t.byName[tok.Name] = tok.Text
		}
	}
	return t
}

// Lookup returns the phrase for name. Matching is exact and case-sensitive.
func (t *Table) Lookup(name string) (string, bool) {
	text, ok := t.byName[name]
	return text, ok
}

// Len returns the number of tokens.
func (t *Table) Len() int {
	return len(t.tokens)
}

// Version returns the table version.
func (t *Table) Version() int {
	return t.version
}

// Tokens returns a copy of the tokens in declaration order.
func (t *Table) Tokens() []Token {
	out := make([]Token, len(t.tokens))
	copy(out, t.tokens)
	return out
}
