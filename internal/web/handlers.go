package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/amigazen/insight/internal/alert"
	"github.com/amigazen/insight/internal/db"
	"github.com/amigazen/insight/internal/errors"
	"github.com/amigazen/insight/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	env      *ops.Env
	renderer *Renderer
}

// HandleList handles GET /alerts: the knowledge base in table order.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := ops.ListInput{
		Group:     q.Get("group"),
		Subsystem: q.Get("subsystem"),
		FatalOnly: parseBoolParam(r, "fatal_only"),
		Query:     q.Get("q"),
		Limit:     parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:    parseIntParam(r, "offset", 0),
	}

	result, err := ops.List(h.env, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData:   h.renderer.page("Alerts", "alerts"),
		Items:      result.Items,
		Pagination: result.Pagination,
		Groups:     h.env.KB.Groups(),
		Group:      input.Group,
		Subsystem:  input.Subsystem,
		Query:      input.Query,
		FatalOnly:  input.FatalOnly,
	})
}

// HandleDetail handles GET /alerts/{code}: decode a single code. A
// well-formed code missing from the knowledge base renders as Unknown Error
// with status 404.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("code")
	if raw == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("alert code is required"))
		return
	}

	status := http.StatusOK
	out, err := ops.Decode(r.Context(), h.env, ops.DecodeInput{Code: raw, Source: db.SourceWeb})
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			h.renderer.renderError(w, r, err)
			return
		}
		// Decode only reports NOT_FOUND for codes that parsed.
		code, _ := alert.Parse(raw)
		out = ops.UnknownOutput(code)
		status = http.StatusNotFound
	}

	if wantsJSON(r) {
		renderJSON(w, status, out)
		return
	}

	h.renderer.renderPageStatus(w, status, "detail", DetailPageData{
		PageData:     h.renderer.page(out.CodeHex, "alerts"),
		Alert:        out,
		RenderedHint: renderMarkdown(out.Hint),
	})
}

// HandleDecode handles GET /decode?code=: normalizes the code and redirects
// to its detail page.
func (h *Handlers) HandleDecode(w http.ResponseWriter, r *http.Request) {
	code, err := alert.Parse(r.URL.Query().Get("code"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/alerts/"+code.String(), http.StatusFound)
}

// HandleHistory handles GET /history: recorded decodes, newest first.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := ops.HistoryInput{
		Code:      q.Get("code"),
		FoundOnly: parseBoolParam(r, "found_only"),
		Source:    q.Get("source"),
		Limit:     parseIntParam(r, "limit", ops.DefaultHistoryLimit),
		Offset:    parseIntParam(r, "offset", 0),
	}

	result, err := ops.History(r.Context(), h.env, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "history", HistoryPageData{
		PageData:   h.renderer.page("History", "history"),
		Items:      result.Items,
		Pagination: result.Pagination,
		Sources:    []string{db.SourceCLI, db.SourceMCP, db.SourceWeb, db.SourceRandom},
		Code:       input.Code,
		Source:     input.Source,
		FoundOnly:  input.FoundOnly,
	})
}

// HandlePurge handles POST /history/purge: permanently delete recorded decodes.
func (h *Handlers) HandlePurge(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	var input ops.PurgeInput
	if days := r.FormValue("older_than_days"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("older_than_days must be an integer"))
			return
		}
		input.OlderThanDays = &d
	}

	result, err := ops.Purge(r.Context(), h.env, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/history", http.StatusFound)
}

// HandleLint handles GET /lint: the knowledge base data-quality report.
func (h *Handlers) HandleLint(w http.ResponseWriter, r *http.Request) {
	report := ops.Lint(h.env)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, report)
		return
	}

	h.renderer.renderPage(w, "lint", LintPageData{
		PageData: h.renderer.page("Lint", "lint"),
		Report:   report,
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	return s == "true" || s == "1" || s == "on"
}
