// Package sizereport implements the carve-size workflow: print, per
// report, how many matching entries it describes and their total
// reconstructed size.
package sizereport

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gaby/carvemerge/internal/cliutil"
	"github.com/gaby/carvemerge/internal/filedesc"
	"github.com/gaby/carvemerge/internal/report"
)

// Summary is one report's matching-entry count and total size.
type Summary struct {
	Path  string
	Count int
	Bytes uint64
}

// Run is RunExt with no extension filter: every entry is summarized.
func Run(paths []string) ([]Summary, error) {
	return RunExt(paths, "")
}

// RunExt parses every report in paths and summarizes the entries whose
// name matches ext (or every entry, if ext is empty). An entry whose
// byte-description failed to parse because it had zero byte-runs is
// silently skipped, matching the original tool's stance that an empty
// file description is a normal, zero-size recovered file; any other
// byte-description failure on a matching entry is treated as fatal, since
// the original tool had no way to recover from it either. Entries that
// fail before their name is known (a missing field, malformed text or
// attribute, a bad child name) cannot be matched against ext and are
// skipped.
func RunExt(paths []string, ext string) ([]Summary, error) {
	loaded, err := cliutil.LoadReports(paths)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(loaded))
	for _, lr := range loaded {
		var s Summary
		s.Path = lr.Path
		for _, res := range lr.Report.All() {
			name, ok := matchName(res, ext)
			if !ok {
				continue
			}
			if res.Err != nil {
				var bfd *report.BadFileDescriptionError
				if errors.As(res.Err, &bfd) && errors.Is(bfd.Source, filedesc.ErrEmpty) {
					continue
				}
				return nil, fmt.Errorf("sizereport: unexpected error for matching entry %q in %s: %w", name, lr.Path, res.Err)
			}
			s.Count++
			s.Bytes += res.Entry.Desc.Size()
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// matchName reports whether res concerns an entry matching ext, and the
// best name available for diagnostics — the successfully-parsed entry's
// name, or a BadFileDescriptionError's captured file name, since other
// error variants never learn a name before failing.
func matchName(res report.IterResult, ext string) (string, bool) {
	if res.Err == nil {
		return res.Entry.Name, cliutil.MatchesExt(res.Entry.Name, ext)
	}
	var bfd *report.BadFileDescriptionError
	if errors.As(res.Err, &bfd) {
		return bfd.FileName, cliutil.MatchesExt(bfd.FileName, ext)
	}
	return "", false
}

// String renders a summary the way the original tool printed it.
func (s Summary) String() string {
	return fmt.Sprintf("%s: %d entries, %s bytes", s.Path, s.Count, humanize.Comma(int64(s.Bytes)))
}
