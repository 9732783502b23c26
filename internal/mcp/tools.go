package mcp

import "github.com/mark3labs/mcp-go/mcp"

var decodeToolDef = mcp.NewTool("alert_decode",
	mcp.WithDescription("Decode a 32-bit Guru Meditation alert code into its description and a diagnostic hint. "+
		"Returns NOT_FOUND for codes missing from the knowledge base."),
	mcp.WithString("code",
		mcp.Required(),
		mcp.Description("Alert code as exactly 8 hex digits, optionally prefixed with 0x (e.g. 8000000B)"),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var listToolDef = mcp.NewTool("alert_list",
	mcp.WithDescription("List knowledge base rows in table order with expanded hints. Supports filtering and pagination."),
	mcp.WithString("group", mcp.Description("Exact group (section) name")),
	mcp.WithString("subsystem", mcp.Description("Subsystem name, e.g. exec.library, graphics.library, CPU")),
	mcp.WithBoolean("fatal_only", mcp.Description("Only dead-end (fatal) alerts")),
	mcp.WithString("query", mcp.Description("Case-insensitive text to find in description or hint")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 50, max 500)")),
	mcp.WithNumber("offset", mcp.Description("Rows to skip (default 0)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var randomToolDef = mcp.NewTool("alert_random",
	mcp.WithDescription("Self-test: decode a randomly chosen row of the knowledge base."),
	mcp.WithNumber("seed", mcp.Description("Optional seed for a reproducible pick")),
)

var lintToolDef = mcp.NewTool("alert_lint",
	mcp.WithDescription("Report knowledge base data-quality issues: duplicate codes, unresolved hint tokens, "+
		"empty fields, truncated hints and fatal codes without a recoverable twin."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("alert_export",
	mcp.WithDescription("Export the knowledge base with expanded hints to a JSONL file. "+
		"The file must be directly in ~/.insight/exports or a configured allowed path."),
	mcp.WithString("path", mcp.Description("Destination .jsonl path (default ~/.insight/exports/alerts-<timestamp>.jsonl)")),
	mcp.WithBoolean("fatal_only", mcp.Description("Only export dead-end (fatal) alerts")),
)

var historyListToolDef = mcp.NewTool("history_list",
	mcp.WithDescription("List recorded alert decodes, newest first."),
	mcp.WithString("code", mcp.Description("Only decodes of this code (8 hex digits)")),
	mcp.WithBoolean("found_only", mcp.Description("Only decodes that matched a knowledge base row")),
	mcp.WithString("source", mcp.Description("Only decodes from this surface: cli, mcp, web, random")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Records to skip (default 0)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var historyPurgeToolDef = mcp.NewTool("history_purge",
	mcp.WithDescription("Permanently delete recorded decodes."),
	mcp.WithNumber("older_than_days", mcp.Description("Only delete records older than this many days (default: all)")),
	mcp.WithDestructiveHintAnnotation(true),
)
