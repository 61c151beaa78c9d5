// Package cliutil holds the small pieces of ceremony shared by the
// carve-merge/carve-extract/carve-size/carve-mount commands: opening and
// parsing report files while printing the same one-line-per-file progress
// the original tools did.
package cliutil

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gaby/carvemerge/internal/report"
	"golang.org/x/sync/errgroup"
)

// LoadedReport pairs a report with the path it came from, for diagnostics.
type LoadedReport struct {
	Path   string
	Report *report.Report
}

// LoadReports parses every path in order, logging progress and failing
// fast on the first unreadable or malformed report file — matching the
// original CLIs' "parse everything up front, then act" structure.
func LoadReports(paths []string) ([]LoadedReport, error) {
	out := make([]LoadedReport, 0, len(paths))
	for _, p := range paths {
		log.Printf("parsing file %s", p)
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		rep, err := report.Parse(f)
		closeErr := f.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("close %s: %w", p, closeErr)
		}
		out = append(out, LoadedReport{Path: p, Report: rep})
	}
	return out, nil
}

// LoadReportsConcurrent parses every path concurrently — report parsing is
// pure, independent per-file I/O, unlike the strictly sequential add loop
// that must follow it — and returns the results in the same order as
// paths. Cancelling ctx (e.g. on SIGINT) makes parses that have not yet
// started return ctx.Err(); a parse already under way runs to completion.
func LoadReportsConcurrent(ctx context.Context, paths []string) ([]LoadedReport, error) {
	out := make([]LoadedReport, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			log.Printf("parsing file %s", p)
			f, err := os.Open(p)
			if err != nil {
				return fmt.Errorf("open %s: %w", p, err)
			}
			defer f.Close()
			rep, err := report.Parse(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", p, err)
			}
			out[i] = LoadedReport{Path: p, Report: rep}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// MatchesExt reports whether name should be processed, given an extension
// filter. An empty filter matches everything.
func MatchesExt(name, ext string) bool {
	if ext == "" {
		return true
	}
	if len(name) < len(ext) {
		return false
	}
	return name[len(name)-len(ext):] == ext
}
