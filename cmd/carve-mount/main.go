// Command carve-mount exposes recovered files from one or more carve
// reports as a read-only FUSE filesystem backed by a disk image, until
// interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gaby/carvemerge/internal/cliutil"
	"github.com/gaby/carvemerge/internal/mountfs"
	"github.com/gaby/carvemerge/internal/report"
)

func main() {
	var allowOther bool
	flag.BoolVar(&allowOther, "allow-other", false, "allow other users to access the mount (requires allow_other in /etc/fuse.conf)")
	flag.Parse()
	args := flag.Args()
	if len(args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: carve-mount [-allow-other] <mount-point> <disk-image> <report.xml>...")
		os.Exit(2)
	}
	mountpoint, imagePath, reportPaths := args[0], args[1], args[2:]

	volume, err := os.Open(imagePath)
	if err != nil {
		log.Fatalf("carve-mount: open %s: %v", imagePath, err)
	}
	defer volume.Close()

	loaded, err := cliutil.LoadReports(reportPaths)
	if err != nil {
		log.Fatalf("carve-mount: %v", err)
	}
	entries := collectEntries(loaded)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fsys := mountfs.New(volume, entries)
	conn, err := mountfs.MountWithOptions(ctx, mountfs.MountOptions{Mountpoint: mountpoint, AllowOther: allowOther}, fsys)
	if err != nil {
		log.Fatalf("carve-mount: %v", err)
	}
	defer conn.Close()

	log.Printf("carve-mount: serving %d recovered files at %s", len(entries), mountpoint)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
	log.Printf("carve-mount: unmounting %s", mountpoint)
}

// collectEntries flattens every valid entry across every loaded report,
// logging (and skipping) the ones that failed to parse.
func collectEntries(loaded []cliutil.LoadedReport) []report.Entry {
	var out []report.Entry
	for _, lr := range loaded {
		for _, res := range lr.Report.All() {
			if res.Err != nil {
				log.Printf("at %s: %v", lr.Path, res.Err)
				continue
			}
			out = append(out, res.Entry)
		}
	}
	return out
}
