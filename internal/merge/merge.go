// Package merge implements the carve-merge workflow: route every
// recovered file description from a set of reports through a list of
// segment-array trees, opening a new tree whenever the current one
// rejects a description, and emit one output report per resulting tree.
package merge

import (
	"context"
	"fmt"
	"log"

	"github.com/gaby/carvemerge/internal/cartree"
	"github.com/gaby/carvemerge/internal/cliutil"
	"github.com/gaby/carvemerge/internal/filedesc"
	"github.com/gaby/carvemerge/internal/report"
	"github.com/gaby/carvemerge/internal/segmap"
	"github.com/google/uuid"
)

// describedFile wraps a FileDescription with diagnostic context (which
// report it came from and what it was named there), grounded directly on
// the original CLI's FileDescriptionWithContext.
type describedFile struct {
	desc     *filedesc.FileDescription
	xmlName  string
	descName string
}

func (d describedFile) Len() int                     { return len(d.desc.Runs()) }
func (d describedFile) Segment(i int) segmap.Segment {
	r := d.desc.Runs()[i]
	return segmap.Segment{Start: r.DiskPos, End: r.DiskEnd()}
}
func (d describedFile) Elem(i int) any { return d.desc.Runs()[i] }

func (d describedFile) String() string { return fmt.Sprintf("%s:%s", d.xmlName, d.descName) }

var _ cartree.Description = describedFile{}

// Run loads every report in paths, merges their entries (restricted to
// names ending in ext when ext is non-empty) into a growing list of
// segment-array trees, and returns one report.Entry slice per resulting
// tree, in tree order. A per-tree UUID-derived tag is returned alongside
// each, for callers that want collision-resistant output filenames.
func Run(ctx context.Context, paths []string, ext string) ([][]report.Entry, []string, error) {
	loaded, err := cliutil.LoadReportsConcurrent(ctx, paths)
	if err != nil {
		return nil, nil, err
	}

	trees := []*cartree.SegmentArrayTree{cartree.New()}

	for _, lr := range loaded {
		log.Printf("")
		log.Printf("adding file %s", lr.Path)
		for _, res := range lr.Report.All() {
			if res.Err != nil {
				log.Printf("at %s: %v", lr.Path, res.Err)
				continue
			}
			if !cliutil.MatchesExt(res.Entry.Name, ext) {
				continue
			}
			addOne(&trees, describedFile{desc: res.Entry.Desc, xmlName: lr.Path, descName: res.Entry.Name})
		}
	}

	outEntries := make([][]report.Entry, len(trees))
	tags := make([]string, len(trees))
	for i, t := range trees {
		entries := make([]report.Entry, 0, t.Len())
		for _, d := range t.All() {
			df := d.(describedFile)
			entries = append(entries, report.Entry{Name: df.descName, Desc: df.desc})
		}
		outEntries[i] = entries
		tags[i] = uuid.NewString()
	}
	return outEntries, tags, nil
}

// addOne pushes d through *trees in order, stopping at the first tree that
// accepts it, and grows *trees with a fresh (empty) tree when the last one
// rejects it — exactly the original merge binary's loop.
func addOne(trees *[]*cartree.SegmentArrayTree, d describedFile) {
	last := len(*trees) - 1
	addNewTree := false
	for num, t := range *trees {
		if num == last {
			addNewTree = true
		}
		res, err := t.Add(d)
		if err != nil {
			describeError(num, t, err)
			continue
		}
		if res.Status == cartree.Replaced {
			log.Printf("on tree %d, replaced file description at %s", num, res.Payload.(describedFile))
		}
		addNewTree = false
		break
	}
	if addNewTree {
		*trees = append(*trees, cartree.New())
	}
}

func describeError(num int, t *cartree.SegmentArrayTree, err error) {
	switch e := err.(type) {
	case *cartree.IntersectingSegmentError:
		log.Printf("on tree %d, got error %v, with relevant file description at %s", num, e, t.GetByIndex(e.Owner))
	case *cartree.OverlappingSegmentArraysError:
		log.Printf("on tree %d, got error %v, with relevant file descriptions at %s, %s", num, e, t.GetByIndex(e.Index1), t.GetByIndex(e.Index2))
	case *cartree.IncompatibleSegmentArraysError:
		log.Printf("on tree %d, got error %v, with relevant file description at %s", num, e, t.GetByIndex(e.Index))
	default:
		log.Printf("on tree %d, got error %v", num, e)
	}
}
