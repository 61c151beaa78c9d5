// Package extract implements the carve-extract workflow: for every
// report, create an output subdirectory named after the report file and
// stream out every matching recovered file from the disk image into it.
package extract

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaby/carvemerge/internal/cliutil"
	"github.com/gaby/carvemerge/internal/diskstream"
	"github.com/gaby/carvemerge/internal/report"
)

const copyBufSize = 1024 * 1024

// Run reads every report in paths, and for each one creates
// outputDir/<report-file-stem>/ and writes every entry whose name matches
// ext (or every entry, if ext is empty) into it by streaming bytes out of
// volume.
func Run(paths []string, outputDir string, volume io.ReaderAt, ext string) error {
	loaded, err := cliutil.LoadReports(paths)
	if err != nil {
		return err
	}

	for _, lr := range loaded {
		stem := strings.TrimSuffix(filepath.Base(lr.Path), filepath.Ext(lr.Path))
		subDir := filepath.Join(outputDir, stem)
		log.Printf("creating dir %s", subDir)
		if err := os.Mkdir(subDir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", subDir, err)
		}

		for _, res := range lr.Report.All() {
			if res.Err != nil {
				log.Printf("at %s: %v", lr.Path, res.Err)
				continue
			}
			if !cliutil.MatchesExt(res.Entry.Name, ext) {
				continue
			}
			outPath := filepath.Join(subDir, filepath.Base(res.Entry.Name))
			if err := extractOne(volume, outPath, res.Entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// extractOne streams entry's recovered bytes out of volume into a
// freshly-created file at outPath, refusing to overwrite an existing file.
func extractOne(volume io.ReaderAt, outPath string, entry report.Entry) error {
	log.Printf("writing file %s", outPath)
	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	r := diskstream.New(volume, entry.Desc.At(0))
	buf := make([]byte, copyBufSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write %s: %w", outPath, werr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read entry %s: %w", entry.Name, err)
		}
		if n == 0 {
			return nil
		}
	}
}
