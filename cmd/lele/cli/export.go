package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/manajemen-lele/lele/internal/ledger"
	"github.com/manajemen-lele/lele/internal/reconcile"
	"github.com/manajemen-lele/lele/internal/reconcile/export"
)

// ExitIncomplete is returned when the file was written from a partial report.
const ExitIncomplete = 10

// ReportLoader loads a reconciled report.
type ReportLoader interface {
	Load(ctx context.Context, filter ledger.DateFilter) (*reconcile.Report, error)
}

// ExportCLI renders reports offline, bypassing the HTTP server and the cache.
type ExportCLI struct {
	reports ReportLoader
	exports *export.Set
}

// NewExportCLI constructs the helper.
func NewExportCLI(reports ReportLoader, exports *export.Set) *ExportCLI {
	return &ExportCLI{reports: reports, exports: exports}
}

// ExportOptions configures ExportCommand.
type ExportOptions struct {
	From       string
	To         string
	Format     string
	Output     string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ParseExportArgs reads the export flags. Usage errors are reported on stderr.
func ParseExportArgs(args []string, stdout, stderr io.Writer) (ExportOptions, error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := ExportOptions{Stdout: stdout, Stderr: stderr}
	fs.StringVar(&opts.Format, "format", "pdf", "output format: pdf, xlsx or csv")
	fs.StringVar(&opts.From, "from", "", "first date, YYYY-MM-DD")
	fs.StringVar(&opts.To, "to", "", "last date, YYYY-MM-DD")
	fs.StringVar(&opts.Output, "out", "", "output file or directory")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print a JSON summary")
	if err := fs.Parse(args); err != nil {
		return ExportOptions{}, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected argument %q", fs.Arg(0))
		fmt.Fprintln(stderr, err)
		return ExportOptions{}, err
	}
	return opts, nil
}

// UsageExit maps a ParseExportArgs error to an exit code: 0 after -h, 1 otherwise.
func UsageExit(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return 1
}

// ExportSummary is printed with JSONOutput.
type ExportSummary struct {
	Path    string              `json:"path"`
	Bytes   int                 `json:"bytes"`
	Caption string              `json:"caption"`
	Failed  []ledger.Kind       `json:"failed,omitempty"`
	Totals  reconcile.Totals    `json:"totals"`
	Counts  map[ledger.Kind]int `json:"counts"`
}

// ExportCommand writes one report file. It exits with ExitIncomplete when a
// kind failed to load but the file was still written.
func (c *ExportCLI) ExportCommand(ctx context.Context, opts ExportOptions) int {
	format, err := export.ParseFormat(opts.Format)
	if err != nil {
		fmt.Fprintln(opts.Stderr, err)
		return 1
	}
	filter := ledger.NewDateFilter(opts.From, opts.To)
	if err := filter.Validate(); err != nil {
		fmt.Fprintf(opts.Stderr, "invalid date window: %v\n", err)
		return 1
	}

	report, err := c.reports.Load(ctx, filter)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "load report: %v\n", err)
		return 2
	}
	artifact, err := c.exports.Render(ctx, format, report)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "render %s: %v\n", format, err)
		return 2
	}

	path := opts.Output
	if path == "" {
		path = artifact.Filename
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, artifact.Filename)
	}
	if err := os.WriteFile(path, artifact.Body, 0o644); err != nil {
		fmt.Fprintf(opts.Stderr, "write %s: %v\n", path, err)
		return 2
	}

	failed := report.Failed()
	if opts.JSONOutput {
		summary := ExportSummary{
			Path:    path,
			Bytes:   len(artifact.Body),
			Caption: report.Filter.Caption(),
			Failed:  failed,
			Totals:  report.Totals,
			Counts:  make(map[ledger.Kind]int, len(reconcile.Kinds)),
		}
		for _, kind := range reconcile.Kinds {
			summary.Counts[kind] = report.Status[kind].Count
		}
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(summary)
	} else {
		fmt.Fprintf(opts.Stdout, "%s (%s, %d bytes)\n", path, report.Filter.Caption(), len(artifact.Body))
		for _, kind := range failed {
			fmt.Fprintf(opts.Stdout, "  gagal memuat %s: %s\n", ledger.MustLookup(kind).Category, report.Status[kind].Err)
		}
	}
	if len(failed) > 0 {
		return ExitIncomplete
	}
	return 0
}
