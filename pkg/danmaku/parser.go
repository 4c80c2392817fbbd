package danmaku

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse is returned when a feed document is structurally malformed.
// Callers get no partial result: a document either parses completely or
// yields this error.
var ErrParse = errors.New("malformed danmaku feed")

// Options controls how raw records are turned into comments.
type Options struct {
	// FontSize is the base font size in pixels, used to derive the
	// display width and height of each comment.
	FontSize int

	// DwellSeconds is how long fixed comments stay on screen. When it is
	// zero or negative, fixed modes (4 and 5) are remapped to scrolling
	// since a zero-dwell fixed comment would never be visible.
	DwellSeconds float64
}

type feed struct {
	Records []record `xml:"d"`
}

type record struct {
	Attrs string `xml:"p,attr"`
	Text  string `xml:",chardata"`
}

// Parse decodes a raw feed into comments.
//
// ASCII control characters outside the printable/whitespace set are
// stripped before decoding since real-world feeds occasionally embed them
// and they are invalid in XML 1.0. Records with fewer than four positional
// fields are skipped silently; records with modes outside 1-5 never render
// and are skipped as well. A record whose start time or mode field is not
// numeric makes the whole document fail with [ErrParse].
//
// The returned slice is in feed order; sorting by start time is the lane
// allocator's job.
func Parse(data []byte, opts Options) ([]Comment, error) {
	var doc feed
	if err := xml.Unmarshal(stripControl(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	comments := make([]Comment, 0, len(doc.Records))
	for i, rec := range doc.Records {
		fields := strings.Split(rec.Attrs, ",")
		if len(fields) < 4 {
			continue
		}
		start, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: bad start time %q", ErrParse, i, fields[0])
		}
		if start < 0 {
			start = 0
		}
		mode, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: bad mode %q", ErrParse, i, fields[1])
		}
		if opts.DwellSeconds <= 0 && (mode == 4 || mode == 5) {
			mode = 1
		}

		var class Class
		switch mode {
		case 1, 2, 3:
			class = ClassScroll
		case 5:
			class = ClassTop
		case 4:
			class = ClassBottom
		default:
			continue
		}

		comments = append(comments, Comment{
			Start:  start,
			Mode:   mode,
			Class:  class,
			Color:  fields[3],
			Text:   rec.Text,
			Width:  displayWidth(rec.Text, opts.FontSize),
			Height: int(float64(opts.FontSize) * 1.2),
		})
	}
	return comments, nil
}

// displayWidth estimates the rendered width of text in pixels: ASCII runes
// count 1.0 display units, everything else 2.0, scaled by half the font
// size. This matches the width model players historically apply to danmaku
// text, which is why a cell-width library would give the wrong answer here.
func displayWidth(text string, fontSize int) float64 {
	var units float64
	for _, r := range text {
		if r > 127 {
			units += 2.0
		} else {
			units += 1.0
		}
	}
	return units * float64(fontSize) / 2
}

// stripControl removes ASCII control characters that break XML parsing
// while keeping tab, newline and carriage return.
func stripControl(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			continue
		}
		out = append(out, b)
	}
	return out
}
