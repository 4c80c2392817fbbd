// Package layout assigns vertical lanes to parsed comments so that
// comments visible at the same time never overlap on screen.
//
// The canvas is a fixed 1920x1080 reference resolution of which only the
// top display-area fraction is used for lanes. Lane candidates start at
// every 8th pixel row; a comment claims the lowest row whose lane is free
// under the availability rule for its motion class, and comments that fit
// nowhere are dropped. Dropping is a capacity policy, not an error: once
// the configured area is saturated, additional simultaneous comments would
// have to overlap, so they are omitted instead.
package layout

import (
	"sort"

	"github.com/danmuget/danmuget/pkg/danmaku"
)

// Canvas reference resolution shared with the renderer.
const (
	ScreenWidth  = 1920
	ScreenHeight = 1080
)

// laneStride is the vertical scan step in pixel rows. Scanning every row
// would be quadratic in dense feeds for no visual benefit.
const laneStride = 8

// Options configures a single allocation pass.
type Options struct {
	// DisplayArea is the fraction (0.1-1.0) of the canvas height that
	// comments may occupy, measured from the top.
	DisplayArea float64

	// ScrollSeconds is the time a scrolling comment takes to cross the
	// canvas plus its own width.
	ScrollSeconds float64

	// DwellSeconds is the time a fixed comment stays on screen.
	DwellSeconds float64
}

// Placed is a comment with its allocated lane row.
type Placed struct {
	Row     int
	Comment danmaku.Comment
}

// scrollCell records the occupant of a scroll lane row.
type scrollCell struct {
	start float64
	width float64
}

// allocator holds the per-pass lane tables. Tables are rebuilt for every
// Allocate call and never shared.
type allocator struct {
	opts     Options
	displayH int
	scroll   []*scrollCell
	fixed    map[danmaku.Class][]*float64 // release time per row, top and bottom kept apart
}

// Allocate places comments into lanes in ascending start-time order and
// returns them in that order. Ties keep feed order (the sort is stable),
// which makes allocation deterministic for identical input. Comments that
// fit in no lane are omitted from the result.
func Allocate(comments []danmaku.Comment, opts Options) []Placed {
	displayH := int(ScreenHeight * opts.DisplayArea)
	a := &allocator{
		opts:     opts,
		displayH: displayH,
		scroll:   make([]*scrollCell, displayH+1),
		fixed: map[danmaku.Class][]*float64{
			danmaku.ClassTop:    make([]*float64, displayH+1),
			danmaku.ClassBottom: make([]*float64, displayH+1),
		},
	}

	ordered := make([]danmaku.Comment, len(comments))
	copy(ordered, comments)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	placed := make([]Placed, 0, len(ordered))
	for _, c := range ordered {
		var (
			row int
			ok  bool
		)
		switch c.Class {
		case danmaku.ClassScroll:
			row, ok = a.scrollLane(c)
		case danmaku.ClassTop, danmaku.ClassBottom:
			row, ok = a.fixedLane(c)
		}
		if ok {
			placed = append(placed, Placed{Row: row, Comment: c})
		}
	}
	return placed
}

// scrollLane finds the lowest free scroll row for c and claims it.
//
// A lane occupied by a prior comment is reusable only when the occupant
// has fully exited the screen before c starts AND the occupant started
// before a threshold derived from c's own speed. The second condition
// keeps a narrow (hence faster) newcomer from overtaking a wide occupant
// still traveling in the same lane: effective speed is
// (width+screen)/scrollSeconds, so equal-arrival at the left edge reduces
// to the start-time threshold below.
func (a *allocator) scrollLane(c danmaku.Comment) (int, bool) {
	threshold := c.Start - a.opts.ScrollSeconds*(1-ScreenWidth/(c.Width+ScreenWidth))
	for r := 0; r < a.displayH-c.Height; r += laneStride {
		prev := a.scroll[r]
		if prev != nil {
			exit := prev.start + a.opts.ScrollSeconds*(prev.width/(prev.width+ScreenWidth))
			if exit >= c.Start || prev.start >= threshold {
				continue
			}
		}
		for i := r; i < min(r+c.Height, a.displayH); i++ {
			a.scroll[i] = &scrollCell{start: c.Start, width: c.Width}
		}
		return r, true
	}
	return 0, false
}

// fixedLane finds the lowest free fixed row for c and claims it until
// c.Start plus the dwell duration. Top and bottom comments draw from
// independent tables since they anchor to opposite edges.
func (a *allocator) fixedLane(c danmaku.Comment) (int, bool) {
	table := a.fixed[c.Class]
	for r := 0; r < a.displayH-c.Height; r += laneStride {
		if release := table[r]; release != nil && *release >= c.Start {
			continue
		}
		release := c.Start + a.opts.DwellSeconds
		for i := r; i < min(r+c.Height, a.displayH); i++ {
			rel := release
			table[i] = &rel
		}
		return r, true
	}
	return 0, false
}
