package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/amigazen/insight/internal/config"
	"github.com/amigazen/insight/internal/db"
	"github.com/amigazen/insight/internal/kb"
	"github.com/amigazen/insight/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// database/sql keeps a connection opener goroutine per open *sql.DB.
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

// newTestEnv builds an Env over the shipped knowledge base with a fresh
// history database.
func newTestEnv(t *testing.T) *Env {
	t.Helper()
	base, err := kb.Default(kb.Options{})
	require.NoError(t, err)

	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return &Env{
		KB:      base,
		DB:      database,
		Config:  config.DefaultConfig(),
		Metrics: metrics.New(base, database, nil),
	}
}

func historyCount(t *testing.T, env *Env) int {
	t.Helper()
	n, err := db.CountLookups(context.Background(), env.DB, db.LookupFilter{})
	require.NoError(t, err)
	return n
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		name                  string
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{"defaults", 0, 0, DefaultListLimit, 0},
		{"negative offset", 10, -5, 10, 0},
		{"capped", MaxListLimit + 1, 3, MaxListLimit, 3},
		{"negative limit", -1, 0, DefaultListLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := clampPage(tt.limit, tt.offset, DefaultListLimit, MaxListLimit)
			require.Equal(t, tt.wantLimit, limit)
			require.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestGenerateULID(t *testing.T) {
	a, err := generateULID()
	require.NoError(t, err)
	b, err := generateULID()
	require.NoError(t, err)
	require.Len(t, a, 26)
	require.NotEqual(t, a, b)
}

func TestEnv_NilLoggerFallsBackToNop(t *testing.T) {
	base, err := kb.Default(kb.Options{})
	require.NoError(t, err)
	env := &Env{KB: base}

	require.NotNil(t, env.logger())
	out, err := Decode(context.Background(), env, DecodeInput{Code: "8000000B"})
	require.NoError(t, err)
	require.True(t, out.Found)
}
