package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/amigazen/insight/internal/alert"
	"github.com/amigazen/insight/internal/config"
	"github.com/amigazen/insight/internal/db"
	"github.com/amigazen/insight/internal/kb"
	"github.com/amigazen/insight/internal/logging"
	"github.com/amigazen/insight/internal/mcp"
	"github.com/amigazen/insight/internal/metrics"
	"github.com/amigazen/insight/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"decode": true, "random": true, "guru": true,
	"list": true, "lint": true, "history": true, "purge": true,
	"export": true, "serve": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	arg := args[1]
	// Known subcommand or a bare alert code → CLI
	if cliCommands[arg] || alert.LooksLikeHex(arg) {
		return true
	}
	// Global flags → CLI
	return len(arg) > 1 && arg[0] == '-'
}

// normalizeArgs turns "insight 8000000B" into "insight decode 8000000B".
func normalizeArgs(args []string) []string {
	if len(args) < 2 || cliCommands[args[1]] || !alert.LooksLikeHex(args[1]) {
		return args
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0], "decode")
	return append(out, args[1:]...)
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner(w io.Writer) {
	fmt.Fprintln(w, `
   ___           _       _     _
  |_ _|_ __  ___(_) __ _| |__ | |_
   | || '_ \/ __| |/ _`+"`"+` | '_ \| __|
   | || | | \__ \ | (_| | | | | |_
  |___|_| |_|___/_|\__, |_| |_|\__|
                   |___/
  Guru Meditation alert decoder

  Usage: insight <code>
         insight <command> [options]
         insight --help

  MCP server mode requires piped input.`)
}

// openEnv loads configuration, the knowledge base and the history database.
// A history database that cannot be opened is logged and left out; decoding
// does not depend on it.
func openEnv(verbose bool) (*ops.Env, func(), error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, config.DirName)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = baseDir
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	opts := kb.Options{
		BufferSize:       cfg.ExpandBufferSize,
		MaxLiveResults:   cfg.MaxLiveResults,
		MaxLiveHintBytes: cfg.MaxLiveHintBytes,
	}
	var base *kb.Base
	if cfg.DataFile != "" {
		base, err = kb.LoadFile(cfg.DataFile, opts)
	} else {
		base, err = kb.Default(opts)
	}
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	logger.Debug("knowledge base loaded",
		zap.Int("entries", base.Count()),
		zap.String("data_file", cfg.DataFile),
		zap.Int("token_table_version", base.Tokens().Version()))

	env := &ops.Env{KB: base, Config: cfg, Logger: logger}
	if !cfg.HistoryDisabled {
		database, err := db.Init(baseDir)
		if err != nil {
			logger.Warn("lookup history unavailable", zap.Error(err))
		} else {
			db.ConfigurePool(database, cfg)
			env.DB = database
		}
	}
	env.Metrics = metrics.New(base, env.DB, logger)

	cleanup := func() {
		if env.DB != nil {
			env.DB.Close()
		}
		_ = logger.Sync()
	}
	return env, cleanup, nil
}

// exitStatus prints err, if it carries a message, and returns the process
// exit status for it.
func exitStatus(err error, w io.Writer) int {
	if err == nil {
		return 0
	}
	code := 1
	var exitErr cli.ExitCoder
	if stderrors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintf(w, "error: %s\n", msg)
	}
	return code
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner(os.Stdout)
		return
	}

	if isCLIMode(os.Args) {
		app := newCLIApp(openEnv, os.Stdout)
		os.Exit(exitStatus(app.Run(normalizeArgs(os.Args)), os.Stderr))
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'insight --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	env, cleanup, err := openEnv(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	err = mcp.Run(env, Version)
	cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
