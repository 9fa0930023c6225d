// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// kale is an interactive terminal explorer for Kubernetes audit logs.
//
// Audit events are read from standard input (or a file) as a stream of
// JSON values, one event each, the way the API server's log backend
// writes them. Compressed input is detected and decompressed. Events
// are kept in request-time order and shown in a scrolling table with
// the selected event's request details and bodies below it. New events
// keep arriving while the operator browses.
//
// Because standard input carries the records, key presses are read
// from the controlling terminal directly.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/kale/lib/auditsource"
	"github.com/bureau-foundation/kale/lib/auditui"
	"github.com/bureau-foundation/kale/lib/cli"
	"github.com/bureau-foundation/kale/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	rows        int
	format      auditsource.Format
	logOutput   string
	inputPath   string
	showHelp    bool
	showVersion bool
}

// parseArgs parses the command line. The returned flag set is used
// for help output.
func parseArgs(args []string) (options, *pflag.FlagSet, error) {
	var parsed options
	var formatName string

	flagSet := pflag.NewFlagSet("kale", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.IntVar(&parsed.rows, "rows", auditui.DefaultRows, "number of records visible in the table")
	flagSet.StringVar(&formatName, "format", string(auditsource.FormatJSON), "input encoding: json or cbor")
	flagSet.StringVar(&parsed.logOutput, "log-output", "", "write JSON log records to this file (in addition to the info bar)")
	flagSet.BoolVar(&parsed.showVersion, "version", false, "print version information and exit")
	flagSet.BoolVarP(&parsed.showHelp, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			parsed.showHelp = true
			return parsed, flagSet, nil
		}
		return parsed, flagSet, cli.Validation("%w", err).WithHint("Run 'kale --help' for usage.")
	}
	if parsed.showHelp || parsed.showVersion {
		return parsed, flagSet, nil
	}

	format, err := auditsource.ParseFormat(formatName)
	if err != nil {
		return parsed, flagSet, cli.Validation("--format: %w", err)
	}
	parsed.format = format

	if parsed.rows < 1 {
		return parsed, flagSet, cli.Validation("--rows must be at least 1, got %d", parsed.rows)
	}

	switch positional := flagSet.Args(); len(positional) {
	case 0:
	case 1:
		parsed.inputPath = positional[0]
	default:
		return parsed, flagSet, cli.Validation("unexpected argument: %s", positional[1]).
			WithHint("kale reads a single input; concatenate files and pipe them in instead.")
	}
	return parsed, flagSet, nil
}

func run(args []string) error {
	parsed, flagSet, err := parseArgs(args)
	if err != nil {
		return err
	}
	if parsed.showHelp {
		printHelp(flagSet)
		return nil
	}
	if parsed.showVersion {
		version.Print(os.Stdout, "kale")
		return nil
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return cli.Setup("standard output is not a terminal").
			WithHint("kale is interactive. Run it in a terminal and pipe audit records into it.")
	}

	input, closeInput, err := openInput(parsed.inputPath)
	if err != nil {
		return err
	}
	defer closeInput()

	// Nothing may write to stderr while the program owns the terminal,
	// so warnings go to the info bar and, optionally, a file.
	tuiHandler := auditui.NewTUILogHandler(slog.LevelWarn)
	var logger *slog.Logger
	if parsed.logOutput != "" {
		fileHandler, fileCloser, fileErr := openFileLogHandler(parsed.logOutput)
		if fileErr != nil {
			return cli.Validation("cannot open log file %s: %w", parsed.logOutput, fileErr)
		}
		defer fileCloser()
		logger = slog.New(fanoutHandler{tuiHandler, fileHandler})
	} else {
		logger = slog.New(tuiHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := auditsource.Start(ctx, input, auditsource.Options{
		Format: parsed.format,
		Logger: logger,
	})
	defer stream.Close()

	model := auditui.NewModel(stream, auditui.Options{Rows: parsed.rows})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithInputTTY())
	tuiHandler.SetProgram(program)

	if _, err := program.Run(); err != nil {
		return cli.Setup("cannot run the terminal interface: %w", err).
			WithHint("kale reads keys from /dev/tty. Check that the session has a controlling terminal.")
	}
	logger.Info("explorer closed", "records", stream.Stats().Accepted, "filtered", stream.Stats().Filtered)
	return nil
}

// openInput opens the record input: the named file, or standard input
// when path is empty or "-". Standard input must not be a terminal,
// since the records would have to be typed.
func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, nil, cli.Validation("no audit records on standard input").
				WithHint("Pipe audit events in, for example:\n  kubectl logs -n kube-system kube-apiserver-node1 | kale\nor pass a log file: kale /var/log/kubernetes/audit.log")
		}
		return os.Stdin, func() {}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, cli.NotFound("audit log %s does not exist", path)
		}
		return nil, nil, cli.Validation("cannot open audit log %s: %w", path, err)
	}
	return file, func() { file.Close() }, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `kale (Kubernetes Audit Log Explorer)

Reads audit.k8s.io/v1 events from FILE, or from standard input when no
FILE is given, and shows them in request-time order while more arrive.
gzip, zstd and LZ4 compressed input is detected automatically. Only
resource requests (/api/ and /apis/) are shown.

Usage:
  kale [flags] [FILE]

Examples:
  # Follow the API server's audit log
  tail -F /var/log/kubernetes/audit.log | kale

  # Browse a rotated, compressed log
  kale audit-2026-10-01.log.gz

Keys:
  ↑/↓ PgUp/PgDn  move the selection
  j/k            scroll the request and response bodies
  q, Esc, Ctrl+C quit

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

// openFileLogHandler creates a slog.JSONHandler that writes to the
// given file path. The file is created or truncated.
func openFileLogHandler(path string) (slog.Handler, func(), error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return handler, func() { file.Close() }, nil
}

// fanoutHandler is a slog.Handler that sends each record to multiple
// underlying handlers. A record is enabled if any sub-handler is
// enabled for that level.
type fanoutHandler []slog.Handler

func (handlers fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handlers fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (handlers fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (handlers fanoutHandler) WithGroup(name string) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}
