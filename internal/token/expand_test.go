package token

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestExpand(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name string
		hint string
		want string
	}{
		{
			name: "no tokens",
			hint: "No error condition detected.",
			want: "No error condition detected.",
		},
		{
			name: "leading token",
			hint: "TOK_01 memory.",
			want: "Check for memory leaks memory.",
		},
		{
			name: "token mid sentence",
			hint: "A fault occurred. TOK_11",
			want: "A fault occurred. Use a debugger to trace the cause.",
		},
		{
			name: "adjacent tokens",
			hint: "TOK_23TOK_24",
			want: "A memory allocation failurecaused a memory shortage.",
		},
		{
			name: "empty name passes TOK_ and keeps next byte",
			hint: "TOK_X",
			want: "TOK_X",
		},
		{
			name: "bare prefix at end",
			hint: "ends with TOK_",
			want: "ends with TOK_",
		},
		{
			name: "unknown name passes through",
			hint: "see TOK_99 here",
			want: "see TOK_99 here",
		},
		{
			name: "underscore makes name unknown",
			hint: "TOK_01_ tail",
			want: "TOK_01_ tail",
		},
		{
			name: "name capped at seven bytes",
			hint: "TOK_12345678",
			want: "TOK_12345678",
		},
		{
			name: "lowercase prefix is not a token",
			hint: "tok_01",
			want: "tok_01",
		},
		{
			name: "partial prefix",
			hint: "TOK TO TOK-01",
			want: "TOK TO TOK-01",
		},
		{
			name: "empty hint",
			hint: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.ExpandString(tt.hint)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExpandString(%q) mismatch (-want +got):\n%s", tt.hint, diff)
			}
		})
	}
}

func TestExpand_RoundTripEveryToken(t *testing.T) {
	table := DefaultTable()
	require.Equal(t, 25, table.Len())

	for _, tok := range table.Tokens() {
		t.Run(tok.Name, func(t *testing.T) {
			got := table.ExpandString(Prefix + tok.Name)
			require.Equal(t, tok.Text, got)
			require.NotContains(t, got, Prefix)
		})
	}
}

func TestExpand_Truncation(t *testing.T) {
	table := DefaultTable()

	t.Run("plain text cut at capacity", func(t *testing.T) {
		dst := make([]byte, 6)
		n := table.Expand(dst, "abcdefghij")
		require.Equal(t, 5, n)
		require.Equal(t, "abcde", string(dst[:n]))
		require.Equal(t, byte(0), dst[n])
	})

	t.Run("phrase cut at capacity", func(t *testing.T) {
		dst := make([]byte, 10)
		n := table.Expand(dst, "TOK_01 and more")
		require.Equal(t, 9, n)
		require.Equal(t, "Check for", string(dst[:n]))
		require.Equal(t, byte(0), dst[n])
	})

	t.Run("stops after truncated phrase", func(t *testing.T) {
		dst := make([]byte, 4)
		n := table.Expand(dst, "TOK_01x")
		require.Equal(t, "Che", string(dst[:n]))
	})

	t.Run("exact fit", func(t *testing.T) {
		dst := make([]byte, 4)
		n := table.Expand(dst, "abc")
		require.Equal(t, "abc", string(dst[:n]))
	})

	t.Run("single byte buffer holds only terminator", func(t *testing.T) {
		dst := []byte{'z'}
		n := table.Expand(dst, "abc")
		require.Equal(t, 0, n)
		require.Equal(t, byte(0), dst[0])
	})

	t.Run("empty buffer", func(t *testing.T) {
		require.Equal(t, 0, table.Expand(nil, "abc"))
	})

	t.Run("long hint truncated to default capacity", func(t *testing.T) {
		long := strings.Repeat("x", DefaultBufferSize*2)
		got := table.ExpandString(long)
		require.Len(t, got, DefaultBufferSize-1)
	})
}

func TestExpandedLen(t *testing.T) {
	table := DefaultTable()
	for _, hint := range []string{"", "plain", "TOK_01 memory.", "TOK_X TOK_99", "TOK_23TOK_24"} {
		require.Equal(t, len(table.ExpandString(hint)), table.ExpandedLen(hint), hint)
	}

	long := strings.Repeat("TOK_01", DefaultBufferSize)
	text, _ := table.Lookup("01")
	require.Equal(t, len(text)*DefaultBufferSize, table.ExpandedLen(long))
}

func TestRefs(t *testing.T) {
	tests := []struct {
		hint string
		want []string
	}{
		{"nothing here", nil},
		{"TOK_01 then TOK_25.", []string{"01", "25"}},
		{"TOK_X and TOK_", nil},
		{"TOK_99_ x", []string{"99_"}},
		{"TOK_01TOK_02", []string{"01", "02"}},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Refs(tt.hint)); diff != "" {
				t.Errorf("Refs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTable(t *testing.T) {
	table := NewTable(3, []Token{{"01", "first"}, {"01", "second"}, {"ab", "letters"}})

	text, ok := table.Lookup("01")
	require.True(t, ok)
	require.Equal(t, "first", text, "first declaration wins")

	_, ok = table.Lookup("AB")
	require.False(t, ok, "lookup is case-sensitive")

	require.Equal(t, 3, table.Version())
	require.Equal(t, 3, table.Len())

	toks := table.Tokens()
	toks[0].Text = "mutated"
	text, _ = table.Lookup("01")
	require.Equal(t, "first", text, "Tokens returns a copy")
}

func TestExpander_ReusesBuffer(t *testing.T) {
	e := NewExpander(nil, 0)
	require.Equal(t, DefaultBufferSize-1, e.Capacity())

	first := e.Expand("TOK_01")
	require.Equal(t, "Check for memory leaks", string(first))

	kept := string(first)
	second := e.Expand("short")
	require.Equal(t, "short", string(second))
	require.Equal(t, "Check for memory leaks", kept)
}

// Each goroutine owns its Expander; results must never bleed between them.
func TestExpander_ConcurrentCallersDoNotShareScratch(t *testing.T) {
	table := DefaultTable()
	tokens := table.Tokens()

	var wg sync.WaitGroup
	errs := make(chan error, len(tokens))
	for _, tok := range tokens {
		wg.Add(1)
		go func(tok Token) {
			defer wg.Done()
			e := NewExpander(table, 128)
			for i := 0; i < 500; i++ {
				got := string(e.Expand(fmt.Sprintf("[%s] TOK_%s", tok.Name, tok.Name)))
				want := fmt.Sprintf("[%s] %s", tok.Name, tok.Text)
				if got != want {
					errs <- fmt.Errorf("got %q, want %q", got, want)
					return
				}
			}
		}(tok)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
