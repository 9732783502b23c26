package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amigazen/insight/internal/db"
	"github.com/amigazen/insight/internal/kb"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecordLookup(t *testing.T) {
	m := New(nil, nil, nil)

	m.RecordLookup(OutcomeFound, "cli")
	m.RecordLookup(OutcomeFound, "cli")
	m.RecordLookup(OutcomeNotFound, "web")

	text := scrape(t, m)
	require.Contains(t, text, `insight_lookups_total{outcome="found",source="cli"} 2`)
	require.Contains(t, text, `insight_lookups_total{outcome="not_found",source="web"} 1`)
	require.NotContains(t, text, "insight_kb_entries")

	var nilMetrics *Metrics
	nilMetrics.RecordLookup(OutcomeFound, "cli")
}

func TestHandler_ExposesKnowledgeBaseGauges(t *testing.T) {
	base, err := kb.Default(kb.Options{})
	require.NoError(t, err)

	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, db.InsertLookup(context.Background(), database, &db.LookupRecord{
		ID: "01A", Code: 5, Found: true, Description: "Zero divide", Source: db.SourceCLI, CreatedAt: time.Now().Unix(),
	}))

	r, err := base.Lookup(0x00000005)
	require.NoError(t, err)
	defer r.Release()

	m := New(base, database, nil)
	m.RecordLookup(OutcomeFound, "web")

	text := scrape(t, m)

	require.Contains(t, text, "insight_live_results 1")
	require.Contains(t, text, "insight_kb_entries 539")
	require.Contains(t, text, `insight_lookups_total{outcome="found",source="web"} 1`)
	require.Contains(t, text, `insight_history_records{found="true"} 1`)
	require.Contains(t, text, `insight_history_records{found="false"} 0`)
}
