package ops

import (
	"fmt"
	"strings"

	"github.com/amigazen/insight/internal/alert"
	"github.com/amigazen/insight/internal/errors"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Group     string // exact group name
	Subsystem string // subsystem name, e.g. "exec.library"
	FatalOnly bool
	Query     string // case-insensitive substring of description or expanded hint
	Limit     int    // default: 50, max: 500
	Offset    int    // default: 0
}

// AlertSummary is one table row with its hint expanded.
type AlertSummary struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Hint        string `json:"hint"`
	Fatal       bool   `json:"fatal"`
	Subsystem   string `json:"subsystem"`
	Group       string `json:"group,omitempty"`
	Row         int    `json:"row"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []AlertSummary `json:"items"`
	Pagination Pagination     `json:"pagination"`
	Sort       string         `json:"sort"`
}

// List pages through the knowledge base in table order. Rows are listed
// as stored, so a duplicated code appears once per row.
func List(env *Env, input ListInput) (*ListOutput, error) {
	limit, offset := clampPage(input.Limit, input.Offset, DefaultListLimit, MaxListLimit)

	var (
		subsystem    alert.Subsystem
		hasSubsystem bool
	)
	if name := strings.TrimSpace(input.Subsystem); name != "" {
		s, ok := alert.ParseSubsystem(name)
		if !ok {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown subsystem %q", name))
		}
		subsystem, hasSubsystem = s, true
	}
	group := strings.TrimSpace(input.Group)
	query := strings.ToLower(strings.TrimSpace(input.Query))

	items := []AlertSummary{}
	total := 0
	for i, e := range env.KB.Entries() {
		if input.FatalOnly && !e.Code.IsFatal() {
			continue
		}
		if hasSubsystem && e.Code.Subsystem() != subsystem {
			continue
		}
		if group != "" && e.Group != group {
			continue
		}

		hint := env.KB.Expand(e.Hint)
		if query != "" &&
			!strings.Contains(strings.ToLower(e.Description), query) &&
			!strings.Contains(strings.ToLower(hint), query) {
			continue
		}

		total++
		if total <= offset || len(items) >= limit {
			continue
		}
		items = append(items, AlertSummary{
			Code:        e.Code.String(),
			Description: e.Description,
			Hint:        hint,
			Fatal:       e.Code.IsFatal(),
			Subsystem:   e.Code.Subsystem().Name(),
			Group:       e.Group,
			Row:         i,
		})
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "table_order",
	}, nil
}
