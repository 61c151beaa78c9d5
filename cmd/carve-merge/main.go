// Command carve-merge loads one or more carve reports referring to the
// same disk image, partitions their recovered file descriptions into
// maximal non-conflicting groups, and writes one merged report per group.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gaby/carvemerge/internal/merge"
	"github.com/gaby/carvemerge/internal/report"
)

func main() {
	var ext string
	flag.StringVar(&ext, "ext", "", "only merge entries whose name ends in this suffix (default: all)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: carve-merge [-ext .jpg] <output-dir> <report.xml>...")
		os.Exit(2)
	}
	outputDir, reportPaths := args[0], args[1:]

	groups, tags, err := merge.Run(context.Background(), reportPaths, ext)
	if err != nil {
		log.Fatalf("carve-merge: %v", err)
	}

	for num, entries := range groups {
		outPath := filepath.Join(outputDir, fmt.Sprintf("report%d-%s.xml", num, tags[num][:8]))
		if err := writeReport(outPath, entries); err != nil {
			log.Fatalf("carve-merge: %v", err)
		}
	}
	os.Exit(0)
}

func writeReport(path string, entries []report.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	rep := report.FromDescriptions(entries)
	if _, err := rep.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
