// Package ops is the use-case layer shared by the CLI, the MCP server and
// the web UI.
package ops

import (
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/amigazen/insight/internal/config"
	"github.com/amigazen/insight/internal/kb"
	"github.com/amigazen/insight/internal/logging"
	"github.com/amigazen/insight/internal/metrics"
)

// Pagination limits
const (
	DefaultListLimit    = 50
	MaxListLimit        = 500
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Env carries the shared dependencies of every operation. KB is required;
// the rest may be nil.
type Env struct {
	KB      *kb.Base
	DB      *sql.DB
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

func (e *Env) logger() *zap.Logger {
	if e.Logger == nil {
		return logging.Nop()
	}
	return e.Logger
}

func (e *Env) config() *config.Config {
	if e.Config == nil {
		return config.DefaultConfig()
	}
	return e.Config
}

// historyEnabled reports whether decodes should be recorded.
func (e *Env) historyEnabled() bool {
	return e.DB != nil && !e.config().HistoryDisabled
}

// clampPage applies limit defaults and bounds; offset is floored at zero.
func clampPage(limit, offset, def, maxLimit int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, max(offset, 0)
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
