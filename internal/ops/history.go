package ops

import (
	"context"
	"strings"
	"time"

	"github.com/amigazen/insight/internal/alert"
	"github.com/amigazen/insight/internal/db"
	"github.com/amigazen/insight/internal/errors"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Code      string // optional, 8 hex digits
	FoundOnly bool
	Source    string // optional: cli, mcp, web, random
	Limit     int    // default: 20, max: 100
	Offset    int
}

// HistoryItem is one recorded decode.
type HistoryItem struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Found       bool   `json:"found"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"`
	CreatedAt   int64  `json:"created_at"`
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []HistoryItem `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Sort       string        `json:"sort"`
}

// History lists recorded decodes, newest first.
func History(ctx context.Context, env *Env, input HistoryInput) (*HistoryOutput, error) {
	if env.DB == nil {
		return nil, errors.NewInvalidRequest("lookup history is not available")
	}
	limit, offset := clampPage(input.Limit, input.Offset, DefaultHistoryLimit, MaxHistoryLimit)

	filter := db.LookupFilter{FoundOnly: input.FoundOnly}
	if strings.TrimSpace(input.Code) != "" {
		code, err := alert.Parse(input.Code)
		if err != nil {
			return nil, err
		}
		filter.Code = &code
	}
	if src := strings.TrimSpace(input.Source); src != "" {
		if !validSource(src) {
			return nil, errors.NewInvalidRequest("source must be one of: cli, mcp, web, random")
		}
		filter.Source = src
	}

	total, err := db.CountLookups(ctx, env.DB, filter)
	if err != nil {
		return nil, err
	}
	records, err := db.ListLookups(ctx, env.DB, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, HistoryItem{
			ID:          r.ID,
			Code:        r.Code.String(),
			Found:       r.Found,
			Description: r.Description,
			Source:      r.Source,
			CreatedAt:   r.CreatedAt,
		})
	}

	return &HistoryOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}

func validSource(s string) bool {
	switch s {
	case db.SourceCLI, db.SourceMCP, db.SourceWeb, db.SourceRandom:
		return true
	}
	return false
}

// FormatTime renders a history timestamp for human output.
func FormatTime(unix int64) string {
	return time.Unix(unix, 0).Local().Format("2006-01-02 15:04:05")
}
