package kb

import (
	"github.com/amigazen/insight/internal/alert"
	"github.com/amigazen/insight/internal/token"
)

// LintResult is a data-quality report for a Base.
//
// Valid only reflects defects that change what a lookup returns: unresolved
// tokens, empty fields and hints longer than the expansion buffer. Duplicate
// codes are reported but do not fail the lint. The first row wins and later
// rows are unreachable, which may be intentional grouping.
type LintResult struct {
	Valid             bool         `json:"valid"`
	Entries           int          `json:"entries"`
	Recoverable       int          `json:"recoverable"`
	Fatal             int          `json:"fatal"`
	TokenTableVersion int          `json:"token_table_version"`
	Duplicates        []Duplicate  `json:"duplicates"`
	UnresolvedTokens  []TokenRef   `json:"unresolved_tokens"`
	EmptyFields       []EmptyField `json:"empty_fields"`
	Truncated         []alert.Code `json:"truncated"`

	// Orphans are fatal codes with no recoverable twin in the table.
	// Informational: many dead-end alerts have no recoverable form.
	Orphans []alert.Code `json:"orphans"`
}

// Duplicate lists every row sharing a code. Rows[0] is the one lookups return.
type Duplicate struct {
	Code      alert.Code `json:"code"`
	Rows      []int      `json:"rows"`
	Identical bool       `json:"identical"`
}

// TokenRef is a TOK_<name> reference with no entry in the token table.
type TokenRef struct {
	Code alert.Code `json:"code"`
	Row  int        `json:"row"`
	Name string     `json:"name"`
}

// EmptyField is a row with a blank description or hint.
type EmptyField struct {
	Code  alert.Code `json:"code"`
	Row   int        `json:"row"`
	Field string     `json:"field"`
}

// Lint checks every row of b.
func Lint(b *Base) *LintResult {
	rows := b.Entries()
	result := &LintResult{
		Entries:           len(rows),
		TokenTableVersion: b.tokens.Version(),
		Duplicates:        []Duplicate{},
		UnresolvedTokens:  []TokenRef{},
		EmptyFields:       []EmptyField{},
		Truncated:         []alert.Code{},
		Orphans:           []alert.Code{},
	}

	firstRow := make(map[alert.Code]int, len(rows))
	dupIndex := make(map[alert.Code]int)
	capacity := b.expansionCapacity()

	for i, e := range rows {
		if e.Code.IsFatal() {
			result.Fatal++
		} else {
			result.Recoverable++
		}

		if first, seen := firstRow[e.Code]; seen {
			idx, tracked := dupIndex[e.Code]
			if !tracked {
				idx = len(result.Duplicates)
				dupIndex[e.Code] = idx
				result.Duplicates = append(result.Duplicates, Duplicate{
					Code:      e.Code,
					Rows:      []int{first},
					Identical: true,
				})
			}
			d := &result.Duplicates[idx]
			d.Rows = append(d.Rows, i)
			if rows[first].Description != e.Description || rows[first].Hint != e.Hint {
				d.Identical = false
			}
		} else {
			firstRow[e.Code] = i
		}

		for _, name := range token.Refs(e.Hint) {
			if _, ok := b.tokens.Lookup(name); !ok {
				result.UnresolvedTokens = append(result.UnresolvedTokens, TokenRef{Code: e.Code, Row: i, Name: name})
			}
		}

		if e.Description == "" {
			result.EmptyFields = append(result.EmptyFields, EmptyField{Code: e.Code, Row: i, Field: "description"})
		}
		if e.Hint == "" {
			result.EmptyFields = append(result.EmptyFields, EmptyField{Code: e.Code, Row: i, Field: "hint"})
		}

		if b.tokens.ExpandedLen(e.Hint) > capacity {
			result.Truncated = append(result.Truncated, e.Code)
		}
	}

	orphaned := make(map[alert.Code]bool)
	for _, e := range rows {
		if !e.Code.IsFatal() || orphaned[e.Code] {
			continue
		}
		if _, ok := firstRow[e.Code.Recoverable()]; !ok {
			orphaned[e.Code] = true
			result.Orphans = append(result.Orphans, e.Code)
		}
	}

	result.Valid = len(result.UnresolvedTokens) == 0 &&
		len(result.EmptyFields) == 0 &&
		len(result.Truncated) == 0
	return result
}

// expansionCapacity is the longest hint a lookup can return untruncated.
func (b *Base) expansionCapacity() int {
	e := b.expanders.Get().(*token.Expander)
	defer b.expanders.Put(e)
	return e.Capacity()
}
