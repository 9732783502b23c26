package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/amigazen/insight/internal/config"
	"github.com/amigazen/insight/internal/db"
	"github.com/amigazen/insight/internal/errors"
	"github.com/amigazen/insight/internal/kb"
	"github.com/amigazen/insight/internal/ops"
)

// testSetup builds an Env over the shipped knowledge base with a temporary
// history database.
func testSetup(t *testing.T) *ops.Env {
	t.Helper()

	base, err := kb.Default(kb.Options{})
	if err != nil {
		t.Fatalf("failed to load knowledge base: %v", err)
	}

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true // Allow temp dirs in tests

	return &ops.Env{KB: base, DB: database, Config: cfg}
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestHandleDecode(t *testing.T) {
	env := testSetup(t)
	h := NewHandlers(env)
	ctx := context.Background()

	t.Run("known code", func(t *testing.T) {
		result, err := h.HandleDecode(ctx, makeRequest(map[string]any{"code": "0x8000000B"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := parseOutput(t, result)
		if output["code"] != "0x8000000B" {
			t.Errorf("code = %v, want 0x8000000B", output["code"])
		}
		if output["description"] != "Line 1111 Emulator" {
			t.Errorf("description = %v", output["description"])
		}
		if output["fatal"] != true {
			t.Errorf("fatal = %v, want true", output["fatal"])
		}
		if output["subsystem"] != "CPU" {
			t.Errorf("subsystem = %v, want CPU", output["subsystem"])
		}
	})

	t.Run("missing code", func(t *testing.T) {
		result, _ := h.HandleDecode(ctx, makeRequest(map[string]any{}))
		assertErrorCode(t, result, string(errors.ErrInvalidRequest))
	})

	t.Run("malformed code", func(t *testing.T) {
		result, _ := h.HandleDecode(ctx, makeRequest(map[string]any{"code": "8000000"}))
		assertErrorCode(t, result, string(errors.ErrInvalidCode))
	})

	t.Run("unknown code", func(t *testing.T) {
		result, _ := h.HandleDecode(ctx, makeRequest(map[string]any{"code": "DEADBEEF"}))
		assertErrorCode(t, result, string(errors.ErrNotFound))
		if msg := extractErrorMessage(result); !strings.Contains(msg, "0xDEADBEEF") {
			t.Errorf("error should name the code, got: %s", msg)
		}
	})

	t.Run("wrong argument type", func(t *testing.T) {
		result, _ := h.HandleDecode(ctx, makeRequest(map[string]any{"code": 42}))
		assertErrorCode(t, result, string(errors.ErrInvalidRequest))
	})

	t.Run("recorded with mcp source", func(t *testing.T) {
		result, err := h.HandleHistory(ctx, makeRequest(map[string]any{"source": db.SourceMCP}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := parseOutput(t, result)
		items := output["items"].([]any)
		// Known and unknown codes are recorded; rejected input is not.
		if len(items) != 2 {
			t.Fatalf("expected 2 history items, got %d", len(items))
		}
		newest := items[0].(map[string]any)
		if newest["code"] != "0xDEADBEEF" || newest["found"] != false {
			t.Errorf("newest item = %v", newest)
		}
	})
}

func TestHandleList(t *testing.T) {
	env := testSetup(t)
	h := NewHandlers(env)
	ctx := context.Background()

	t.Run("first page", func(t *testing.T) {
		result, _ := h.HandleList(ctx, makeRequest(map[string]any{"limit": 5}))
		output := parseOutput(t, result)

		items := output["items"].([]any)
		if len(items) != 5 {
			t.Fatalf("expected 5 items, got %d", len(items))
		}
		pagination := output["pagination"].(map[string]any)
		if pagination["total"] != float64(env.KB.Count()) {
			t.Errorf("total = %v, want %d", pagination["total"], env.KB.Count())
		}
		if pagination["has_more"] != true {
			t.Errorf("has_more = %v, want true", pagination["has_more"])
		}
		if output["sort"] != "table_order" {
			t.Errorf("sort = %v", output["sort"])
		}
	})

	t.Run("fatal only", func(t *testing.T) {
		result, _ := h.HandleList(ctx, makeRequest(map[string]any{"fatal_only": true, "limit": 500}))
		output := parseOutput(t, result)
		for _, it := range output["items"].([]any) {
			if it.(map[string]any)["fatal"] != true {
				t.Fatalf("non-fatal item in fatal_only listing: %v", it)
			}
		}
	})

	t.Run("unknown subsystem", func(t *testing.T) {
		result, _ := h.HandleList(ctx, makeRequest(map[string]any{"subsystem": "nope.library"}))
		assertErrorCode(t, result, string(errors.ErrInvalidRequest))
	})
}

func TestHandleRandom(t *testing.T) {
	env := testSetup(t)
	h := NewHandlers(env)
	ctx := context.Background()

	first := parseOutput(t, mustCall(t, h.HandleRandom, map[string]any{"seed": 7}))
	second := parseOutput(t, mustCall(t, h.HandleRandom, map[string]any{"seed": 7}))
	if first["code"] != second["code"] {
		t.Errorf("same seed picked %v then %v", first["code"], second["code"])
	}
	if first["found"] != true {
		t.Errorf("random pick should always decode, got %v", first)
	}

	result, _ := h.HandleRandom(ctx, makeRequest(map[string]any{"seed": "seven"}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))
}

func TestHandleLint(t *testing.T) {
	env := testSetup(t)
	h := NewHandlers(env)

	output := parseOutput(t, mustCall(t, h.HandleLint, nil))
	if output["valid"] != true {
		t.Errorf("valid = %v, want true", output["valid"])
	}
	if output["entries"] != float64(env.KB.Count()) {
		t.Errorf("entries = %v, want %d", output["entries"], env.KB.Count())
	}
	if dups := output["duplicates"].([]any); len(dups) != 1 {
		t.Errorf("expected 1 duplicate, got %d", len(dups))
	}
}

func TestHandleExport(t *testing.T) {
	env := testSetup(t)
	h := NewHandlers(env)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	output := parseOutput(t, mustCall(t, h.HandleExport, map[string]any{"path": path}))
	if output["count"] != float64(env.KB.Count()) {
		t.Errorf("count = %v, want %d", output["count"], env.KB.Count())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != env.KB.Count()+1 {
		t.Errorf("expected header plus %d rows, got %d lines", env.KB.Count(), len(lines))
	}

	result, _ := h.HandleExport(ctx, makeRequest(map[string]any{"path": filepath.Join(t.TempDir(), "alerts.txt")}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))
}

func TestHandleHistoryAndPurge(t *testing.T) {
	env := testSetup(t)
	h := NewHandlers(env)
	ctx := context.Background()

	for _, code := range []string{"00000005", "8000000B", "DEADBEEF"} {
		_, _ = h.HandleDecode(ctx, makeRequest(map[string]any{"code": code}))
	}

	output := parseOutput(t, mustCall(t, h.HandleHistory, map[string]any{"found_only": true}))
	if n := len(output["items"].([]any)); n != 2 {
		t.Errorf("found_only items = %d, want 2", n)
	}

	output = parseOutput(t, mustCall(t, h.HandleHistory, map[string]any{"code": "0x8000000B"}))
	if n := len(output["items"].([]any)); n != 1 {
		t.Errorf("code filter items = %d, want 1", n)
	}

	result, _ := h.HandleHistory(ctx, makeRequest(map[string]any{"source": "telnet"}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))

	result, _ = h.HandlePurge(ctx, makeRequest(map[string]any{"older_than_days": -1}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))

	output = parseOutput(t, mustCall(t, h.HandlePurge, map[string]any{"older_than_days": 30}))
	if output["purged"] != float64(0) {
		t.Errorf("purged = %v, want 0 for fresh records", output["purged"])
	}

	output = parseOutput(t, mustCall(t, h.HandlePurge, nil))
	if output["purged"] != float64(3) {
		t.Errorf("purged = %v, want 3", output["purged"])
	}
}

func TestHandleHistory_NoDatabase(t *testing.T) {
	env := testSetup(t)
	env.DB = nil
	h := NewHandlers(env)

	result, _ := h.HandleHistory(context.Background(), makeRequest(nil))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))

	// Decoding still works without history.
	parseOutput(t, mustCall(t, h.HandleDecode, map[string]any{"code": "00000005"}))
}

func TestServerRegistration(t *testing.T) {
	env := testSetup(t)
	s := NewServer(env, "test")

	tools := s.ListTools()
	if len(tools) != len(toolRegistry) {
		t.Errorf("expected %d tools, got %d", len(toolRegistry), len(tools))
	}
	for _, name := range AllToolNames() {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	env := testSetup(t)
	env.Config.DisabledTools = []string{"history_purge", "alert_export", "not_a_tool"}
	s := NewServer(env, "test")

	tools := s.ListTools()
	if len(tools) != len(toolRegistry)-2 {
		t.Errorf("expected %d tools, got %d", len(toolRegistry)-2, len(tools))
	}
	for _, name := range []string{"history_purge", "alert_export"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	env := testSetup(t)
	env.Config.DisabledTypes = []string{"history"}
	s := NewServer(env, "test")

	for name := range s.ListTools() {
		if GetTypeForTool(name) == "history" {
			t.Errorf("tool %q of disabled type should not be registered", name)
		}
	}
	if _, ok := s.ListTools()["alert_decode"]; !ok {
		t.Error("alert_decode should stay registered")
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	env := testSetup(t)
	env.Config.DisabledTypes = append([]string{}, KnownTypes...)
	s := NewServer(env, "test")

	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("expected 0 tools, got %d", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"all known", []string{"alert_decode", "history_purge"}, []string{}},
		{"one unknown", []string{"alert_decode", "note_store"}, []string{"note_store"}},
		{"empty", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateDisabledTools(tt.input)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("ValidateDisabledTools(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	if got := ValidateDisabledTypes([]string{"alert", "note"}); len(got) != 1 || got[0] != "note" {
		t.Errorf("ValidateDisabledTypes() = %v, want [note]", got)
	}
}

func TestExpandTypesToTools(t *testing.T) {
	got := ExpandTypesToTools([]string{"history"})
	sort.Strings(got)
	want := []string{"history_list", "history_purge"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("ExpandTypesToTools(history) = %v, want %v", got, want)
	}
	if got := ExpandTypesToTools(nil); got != nil {
		t.Errorf("ExpandTypesToTools(nil) = %v, want nil", got)
	}
	if GetTypeForTool("nounderscore") != "" {
		t.Error("GetTypeForTool should return empty for names without a type prefix")
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 7 {
		t.Fatalf("expected 7 tools, got %d: %v", len(names), names)
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("AllToolNames() not sorted: %v", names)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
	if strings.Contains(errObj["message"].(string), "secret.db") {
		t.Fatal("INTERNAL message leaked the underlying error")
	}
}

func TestErrorResult_PlainErrorIsInternal(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("boom")))
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if errObj["status"] != float64(500) {
		t.Errorf("status=%v, want 500", errObj["status"])
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrappedErr := fmt.Errorf("row 12: %w", errors.NewNotFound(0x8000000B))

	errObj := errorObject(t, errorResult(wrappedErr))
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}

	msg := errObj["message"].(string)
	if !strings.Contains(msg, "row 12") {
		t.Errorf("message should contain wrapper context 'row 12', got: %s", msg)
	}
	if !strings.Contains(msg, "0x8000000B") {
		t.Errorf("message should keep the original message, got: %s", msg)
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	errObj := errorObject(t, errorResult(errors.NewNotFound(0xDEADBEEF)))
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	details, ok := errObj["details"].(map[string]any)
	if !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
	if details["code"] != "0xDEADBEEF" {
		t.Errorf("details.code = %v", details["code"])
	}
}

// Helper functions

func mustCall(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := handler(context.Background(), makeRequest(args))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in payload: %v", payload)
	}
	return errObj
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if result == nil || !result.IsError {
		t.Errorf("expected error result with code %s", expectedCode)
		return
	}
	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}
	errObj := errorObject(t, result)
	if errObj["code"] != expectedCode {
		t.Errorf("expected error code %s, got %v (%v)", expectedCode, errObj["code"], errObj["message"])
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}

func TestBindArgs(t *testing.T) {
	r, err := bindArgs[listRequest](makeRequest(nil))
	if err != nil {
		t.Fatalf("nil args: %v", err)
	}
	if r != (listRequest{}) {
		t.Errorf("nil args should give the zero value, got %+v", r)
	}

	r, err = bindArgs[listRequest](makeRequest(map[string]any{"limit": 7, "fatal_only": true, "extra": "ignored"}))
	if err != nil {
		t.Fatalf("bindArgs: %v", err)
	}
	if r.Limit != 7 || !r.FatalOnly {
		t.Errorf("unexpected request %+v", r)
	}

	if _, err := bindArgs[listRequest](makeRequest(map[string]any{"limit": "seven"})); err == nil {
		t.Error("expected type mismatch error")
	}
}
