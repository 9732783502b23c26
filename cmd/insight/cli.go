package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/amigazen/insight/internal/alert"
	"github.com/amigazen/insight/internal/db"
	"github.com/amigazen/insight/internal/errors"
	"github.com/amigazen/insight/internal/ops"
	"github.com/amigazen/insight/internal/web"
)

// envOpener builds the shared dependencies for a command run. The returned
// func releases them.
type envOpener func(verbose bool) (*ops.Env, func(), error)

// runner carries what commands need once the app's Before hook has run.
type runner struct {
	env *ops.Env
	out io.Writer
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Print JSON instead of text"}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(open envOpener, out io.Writer) *cli.App {
	r := &runner{out: out}
	var cleanup func()

	app := &cli.App{
		Name:      "insight",
		Usage:     "Decode Amiga Guru Meditation alert codes",
		UsageText: "insight <code> | insight <command> [options]",
		Version:   Version,
		Writer:    out,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Log at debug level to stderr"},
		},
		Before: func(c *cli.Context) error {
			env, closeEnv, err := open(c.Bool("verbose"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			r.env, cleanup = env, closeEnv
			return nil
		},
		After: func(_ *cli.Context) error {
			if cleanup != nil {
				cleanup()
			}
			return nil
		},
		Commands: []*cli.Command{
			r.decodeCmd(),
			r.randomCmd(),
			r.listCmd(),
			r.lintCmd(),
			r.historyCmd(),
			r.purgeCmd(),
			r.exportCmd(),
			r.serveCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// decodeCmd creates the decode command. "insight <code>" is rewritten to it.
func (r *runner) decodeCmd() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode an alert code (8 hex digits, optional 0x prefix)",
		ArgsUsage: "<code>",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.BoolFlag{Name: "breakdown", Aliases: []string{"b"}, Usage: "Also print severity, subsystem and error number"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("alert code is required"))
			}
			raw := c.Args().First()

			out, err := ops.Decode(c.Context, r.env, ops.DecodeInput{Code: raw, Source: db.SourceCLI})
			if err != nil {
				return r.decodeFailure(raw, err, c.Bool("json"))
			}
			if c.Bool("json") {
				return outputJSON(r.out, out)
			}
			printAlert(r.out, out, c.Bool("breakdown"))
			return nil
		},
	}
}

// decodeFailure reports unknown and malformed codes on stdout, the way a
// lookup result is reported, and exits non-zero.
func (r *runner) decodeFailure(raw string, err error, asJSON bool) error {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		code, _ := alert.Parse(raw)
		if asJSON {
			if jerr := outputJSON(r.out, ops.UnknownOutput(code)); jerr != nil {
				return jerr
			}
		} else {
			fmt.Fprintf(r.out, "Unknown error code: %s\n", code)
		}
		return cli.Exit("", 1)
	case errors.Is(err, errors.ErrInvalidCode) && !asJSON:
		fmt.Fprintln(r.out, "Error: Invalid error code format. Error code must be exactly 8 hexadecimal digits.")
		fmt.Fprintln(r.out, "Example: 8000000B or 0x8000000B")
		return cli.Exit("", 1)
	default:
		return outputError(err)
	}
}

// randomCmd creates the random command, the knowledge base self-test.
func (r *runner) randomCmd() *cli.Command {
	return &cli.Command{
		Name:    "random",
		Aliases: []string{"guru"},
		Usage:   "Decode a randomly chosen alert from the knowledge base",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.Uint64Flag{Name: "seed", Usage: "Seed for a reproducible pick"},
		},
		Action: func(c *cli.Context) error {
			var rng *rand.Rand
			if c.IsSet("seed") {
				seed := c.Uint64("seed")
				rng = rand.New(rand.NewPCG(seed, seed))
			}

			out, err := ops.Random(c.Context, r.env, rng)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(r.out, out)
			}
			printAlert(r.out, out, false)
			return nil
		},
	}
}

// listCmd creates the list command.
func (r *runner) listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List knowledge base rows in table order",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Usage: "Exact group name"},
			&cli.StringFlag{Name: "subsystem", Aliases: []string{"s"}, Usage: "Subsystem name, e.g. exec.library"},
			&cli.BoolFlag{Name: "fatal-only", Usage: "Only dead-end alerts"},
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Text to find in description or hint"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum rows to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Rows to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(r.env, ops.ListInput{
				Group:     c.String("group"),
				Subsystem: c.String("subsystem"),
				FatalOnly: c.Bool("fatal-only"),
				Query:     c.String("query"),
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(r.out, output)
		},
	}
}

// lintCmd creates the lint command. It exits non-zero when the report is
// not valid.
func (r *runner) lintCmd() *cli.Command {
	return &cli.Command{
		Name:  "lint",
		Usage: "Check the knowledge base for data-quality issues",
		Action: func(_ *cli.Context) error {
			report := ops.Lint(r.env)
			if err := outputJSON(r.out, report); err != nil {
				return err
			}
			if !report.Valid {
				return cli.Exit("knowledge base failed lint", 1)
			}
			return nil
		},
	}
}

// historyCmd creates the history command.
func (r *runner) historyCmd() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded decodes, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "code", Aliases: []string{"c"}, Usage: "Only decodes of this code"},
			&cli.BoolFlag{Name: "found-only", Usage: "Only decodes that matched a row"},
			&cli.StringFlag{Name: "source", Usage: "Only decodes from: cli, mcp, web, random"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Maximum records to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Records to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(c.Context, r.env, ops.HistoryInput{
				Code:      c.String("code"),
				FoundOnly: c.Bool("found-only"),
				Source:    c.String("source"),
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(r.out, output)
		},
	}
}

// purgeCmd creates the purge command.
func (r *runner) purgeCmd() *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete recorded decodes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Usage: "Only purge records older than N days (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{}
			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.Purge(c.Context, r.env, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(r.out, output)
		},
	}
}

// exportCmd creates the export command.
func (r *runner) exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the knowledge base with expanded hints to JSONL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file path (default: ~/.insight/exports/alerts-<timestamp>.jsonl)"},
			&cli.BoolFlag{Name: "fatal-only", Usage: "Only dead-end alerts"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, r.env, ops.ExportInput{
				Path:      c.String("path"),
				FatalOnly: c.Bool("fatal-only"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(r.out, output)
		},
	}
}

// serveCmd creates the serve command.
func (r *runner) serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web UI and /metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			port := c.Int("port")
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("port must be between 1 and 65535, got %d", port)))
			}
			srv, err := web.NewServer(r.env, Version, c.String("bind"), port)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(srv, r.env.Logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// printAlert writes a decoded alert in the classic console layout.
func printAlert(w io.Writer, out *ops.DecodeOutput, breakdown bool) {
	fmt.Fprintf(w, "Error Code: %s\nError: %s\n%s\n", out.CodeHex, out.Description, out.Hint)
	if !breakdown {
		return
	}
	fmt.Fprintf(w, "\nSeverity: %s\nSubsystem: %s\n", out.Severity, out.Subsystem)
	if out.General != "" {
		fmt.Fprintf(w, "General: %s\n", out.General)
	}
	fmt.Fprintf(w, "Specific: %s\n", out.Specific)
	if out.Group != "" {
		fmt.Fprintf(w, "Group: %s\n", out.Group)
	}
}

// outputJSON marshals result to w as JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if iErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", iErr.Code, iErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
