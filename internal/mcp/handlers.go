package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/amigazen/insight/internal/db"
	"github.com/amigazen/insight/internal/errors"
	"github.com/amigazen/insight/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// bindArgs copies the tool call arguments into a request struct. Absent
// arguments leave the zero value; a type mismatch is an error.
func bindArgs[T any](req mcp.CallToolRequest) (T, error) {
	var out T
	args := req.GetArguments()
	if len(args) == 0 {
		return out, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("invalid arguments: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("invalid arguments: %w", err)
	}
	return out, nil
}

// Request structs for MCP tool arguments.

type decodeRequest struct {
	Code string `json:"code"`
}

type listRequest struct {
	Group     string `json:"group"`
	Subsystem string `json:"subsystem"`
	FatalOnly bool   `json:"fatal_only"`
	Query     string `json:"query"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

type randomRequest struct {
	Seed *uint64 `json:"seed"`
}

type exportRequest struct {
	Path      string `json:"path"`
	FatalOnly bool   `json:"fatal_only"`
}

type historyRequest struct {
	Code      string `json:"code"`
	FoundOnly bool   `json:"found_only"`
	Source    string `json:"source"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

type purgeRequest struct {
	OlderThanDays *int `json:"older_than_days"`
}

// HandleDecode handles the alert_decode tool.
func (h *Handlers) HandleDecode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := bindArgs[decodeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(r.Code) == "" {
		return errorResult(errors.NewInvalidRequest("code is required")), nil
	}

	out, err := ops.Decode(ctx, h.env, ops.DecodeInput{Code: r.Code, Source: db.SourceMCP})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleList handles the alert_list tool.
func (h *Handlers) HandleList(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := bindArgs[listRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	out, err := ops.List(h.env, ops.ListInput{
		Group:     r.Group,
		Subsystem: r.Subsystem,
		FatalOnly: r.FatalOnly,
		Query:     r.Query,
		Limit:     r.Limit,
		Offset:    r.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleRandom handles the alert_random tool.
func (h *Handlers) HandleRandom(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := bindArgs[randomRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var rng *rand.Rand
	if r.Seed != nil {
		rng = rand.New(rand.NewPCG(*r.Seed, *r.Seed))
	}

	out, err := ops.Random(ctx, h.env, rng)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleLint handles the alert_lint tool.
func (h *Handlers) HandleLint(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.Lint(h.env))
}

// HandleExport handles the alert_export tool.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := bindArgs[exportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	out, err := ops.Export(ctx, h.env, ops.ExportInput{Path: r.Path, FatalOnly: r.FatalOnly})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleHistory handles the history_list tool.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := bindArgs[historyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	out, err := ops.History(ctx, h.env, ops.HistoryInput{
		Code:      r.Code,
		FoundOnly: r.FoundOnly,
		Source:    r.Source,
		Limit:     r.Limit,
		Offset:    r.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandlePurge handles the history_purge tool.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := bindArgs[purgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	out, err := ops.Purge(ctx, h.env, ops.PurgeInput{OlderThanDays: r.OlderThanDays})
	if err != nil {
		return errorResult(err), nil
	}
	if h.env.Logger != nil {
		h.env.Logger.Info("history purged", zap.Int("purged", out.Purged))
	}
	return successResult(out)
}

// errorResult converts an error to an MCP error result with structured JSON.
// Wrapped InsightErrors keep their code; the wrapping context is prefixed to
// the message. Anything else is reported as INTERNAL without its text.
func errorResult(err error) *mcp.CallToolResult {
	var iErr *errors.InsightError
	if !stderrors.As(err, &iErr) {
		iErr = errors.NewInternal(err)
	}

	message := iErr.Message
	if iErr.Code == errors.ErrInternal {
		message = "an internal error occurred"
	} else if err != error(iErr) {
		message = strings.TrimSuffix(err.Error(), iErr.Error()) + iErr.Message
	}

	errObj := map[string]any{
		"code":    string(iErr.Code),
		"message": message,
		"status":  iErr.Status,
	}
	if iErr.Code != errors.ErrInternal && len(iErr.Details) > 0 {
		errObj["details"] = iErr.Details
	}

	payload, _ := json.Marshal(map[string]any{"error": errObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(payload)}},
		IsError: true,
	}
}

// successResult wraps a value as an MCP success result with structured JSON.
func successResult(v any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(v)
}
