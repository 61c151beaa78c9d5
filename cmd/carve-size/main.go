// Command carve-size prints, per carve report, how many matching entries
// it describes and their total reconstructed size.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gaby/carvemerge/internal/sizereport"
)

func main() {
	var ext string
	flag.StringVar(&ext, "ext", "", "only count entries whose name ends in this suffix (default: all)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: carve-size [-ext .jpg] <report.xml>...")
		os.Exit(2)
	}

	summaries, err := sizereport.RunExt(args, ext)
	if err != nil {
		log.Fatalf("carve-size: %v", err)
	}
	for _, s := range summaries {
		fmt.Println(s.String())
	}
}
