// Package danmaku parses timestamped overlay comments ("danmaku") from the
// XML feed format served by the comment API.
//
// A feed is an XML document whose root element contains one <d> element per
// comment. Each <d> carries a comma-separated positional attribute string
// in its "p" attribute and the comment text as its character data:
//
//	<i>
//	  <d p="12.5,1,25,16711680,...">first comment</d>
//	  <d p="30.0,5,25,16777215,...">pinned comment</d>
//	</i>
//
// The positional fields used here are start time (seconds), motion mode
// (1-3 scroll right-to-left, 4 bottom-fixed, 5 top-fixed) and the packed
// decimal RGB color in the fourth position. Records with fewer than four
// fields are dropped; a document that cannot be parsed at all yields
// [ErrParse].
package danmaku

// Class describes how a comment moves across the canvas.
type Class int

const (
	// ClassScroll comments travel right to left across the full canvas.
	ClassScroll Class = iota
	// ClassTop comments hold a fixed position at the top of the canvas.
	ClassTop
	// ClassBottom comments hold a fixed position at the bottom of the canvas.
	ClassBottom
)

// String returns a short human-readable name for the class.
func (c Class) String() string {
	switch c {
	case ClassScroll:
		return "scroll"
	case ClassTop:
		return "top"
	case ClassBottom:
		return "bottom"
	}
	return "unknown"
}

// Comment is a single validated feed record.
//
// Width and Height are display metrics derived at parse time from the
// configured font size: width counts 1.0 units per ASCII rune and 2.0 per
// non-ASCII rune, scaled by half the font size; height is
// floor(fontSize * 1.2).
type Comment struct {
	Start  float64 // start time in seconds, clamped to >= 0
	Mode   int     // raw source mode, kept for diagnostics
	Class  Class
	Color  string // raw decimal RGB field; decoded by the renderer
	Text   string
	Width  float64
	Height int
}
