// Command carve-extract reads one or more carve reports and writes every
// recovered file's bytes under <outdir>/<report-stem>/<filename> by
// reading scattered byte-runs out of a disk image.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gaby/carvemerge/internal/extract"
)

func main() {
	var ext string
	flag.StringVar(&ext, "ext", "", "only extract entries whose name ends in this suffix (default: all)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: carve-extract [-ext .jpg] <output-dir> <disk-image> <report.xml>...")
		os.Exit(2)
	}
	outputDir, imagePath, reportPaths := args[0], args[1], args[2:]

	volume, err := os.Open(imagePath)
	if err != nil {
		log.Fatalf("carve-extract: open %s: %v", imagePath, err)
	}
	defer volume.Close()

	if err := extract.Run(reportPaths, outputDir, volume, ext); err != nil {
		log.Fatalf("carve-extract: %v", err)
	}
}
