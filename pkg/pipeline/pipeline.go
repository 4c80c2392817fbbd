// Package pipeline wires the conversion stages for one comment feed.
//
// The pipeline consists of three stages:
//
//  1. Parse: decode the raw XML feed into validated comments
//  2. Layout: allocate a non-overlapping vertical lane per comment
//  3. Render: serialize the placed comments into an ASS document
//
// Each stage lives in its own package; this package centralizes the
// configuration surface and the stage plumbing so the CLI and the batch
// orchestrator behave identically.
//
// # Usage
//
//	opts := pipeline.Options{FontSize: 50, Opacity: 0.8}
//	if err := opts.ValidateAndSetDefaults(); err != nil {
//		log.Fatal(err)
//	}
//	doc, err := pipeline.Convert(raw, opts)
package pipeline

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// Default values applied by ValidateAndSetDefaults.
const (
	// DefaultFont is the style font name; players substitute when the
	// font is not installed.
	DefaultFont = "Microsoft YaHei"

	// DefaultFontSize is the base font size in pixels at the 1920x1080
	// reference resolution.
	DefaultFontSize = 50

	// DefaultScrollSeconds is the time a scrolling comment takes to
	// cross the canvas; larger values scroll slower.
	DefaultScrollSeconds = 25

	// DefaultDwellSeconds is how long fixed comments stay on screen.
	DefaultDwellSeconds = 5

	// DefaultDisplayArea is the fraction of the canvas height that
	// comments may occupy.
	DefaultDisplayArea = 0.2

	// DefaultOpacity is the comment opacity.
	DefaultOpacity = 0.8

	// DefaultOutline is the outline width in pixels.
	DefaultOutline = 1
)

// Options contains all configuration for a conversion.
type Options struct {
	Font          string
	FontSize      int
	Bold          bool
	Outline       int
	Opacity       float64
	ScrollSeconds float64
	DwellSeconds  float64
	DisplayArea   float64

	// Logger receives per-stage progress; defaults to a discarding
	// logger.
	Logger *log.Logger

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults fills zero-valued fields with defaults and
// bounds-checks the result. It is idempotent.
//
// A DwellSeconds of zero is valid: fixed comments then degrade to
// scrolling ones at parse time.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Font == "" {
		o.Font = DefaultFont
	}
	if o.FontSize == 0 {
		o.FontSize = DefaultFontSize
	}
	if o.Outline == 0 {
		o.Outline = DefaultOutline
	}
	if o.Opacity == 0 {
		o.Opacity = DefaultOpacity
	}
	if o.ScrollSeconds == 0 {
		o.ScrollSeconds = DefaultScrollSeconds
	}
	if o.DisplayArea == 0 {
		o.DisplayArea = DefaultDisplayArea
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	switch {
	case o.FontSize < 10 || o.FontSize > 100:
		return fmt.Errorf("font size %d out of range [10,100]", o.FontSize)
	case o.Outline < 0 || o.Outline > 5:
		return fmt.Errorf("outline width %d out of range [0,5]", o.Outline)
	case o.Opacity < 0 || o.Opacity > 1:
		return fmt.Errorf("opacity %v out of range [0,1]", o.Opacity)
	case o.ScrollSeconds < 5 || o.ScrollSeconds > 60:
		return fmt.Errorf("scroll duration %v out of range [5,60]", o.ScrollSeconds)
	case o.DwellSeconds < 0 || o.DwellSeconds > 20:
		return fmt.Errorf("dwell duration %v out of range [0,20]", o.DwellSeconds)
	case o.DisplayArea < 0.1 || o.DisplayArea > 1.0:
		return fmt.Errorf("display area %v out of range [0.1,1.0]", o.DisplayArea)
	}
	o.validated = true
	return nil
}
