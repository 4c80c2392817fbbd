// Package ass serializes lane-placed comments into an Advanced SubStation
// Alpha (ASS) subtitle document that media players render as an overlay.
//
// The document has a fixed-shape header carrying the 1920x1080 reference
// resolution and a single style built from [Config], followed by one
// Dialogue event per comment: scrolling comments get a \move directive
// from just past the right edge to just past the left edge, fixed comments
// get an alignment tag plus a centered \pos directive.
package ass

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/danmuget/danmuget/pkg/danmaku"
	"github.com/danmuget/danmuget/pkg/layout"
)

// Config carries the style and timing knobs for one rendered document.
type Config struct {
	Font          string
	FontSize      int
	Bold          bool
	Outline       int
	Opacity       float64 // 0.0 transparent .. 1.0 opaque
	ScrollSeconds float64
	DwellSeconds  float64
}

// edgeMargin is how far off-screen scrolling text starts and ends, so the
// glyphs are fully hidden at both ends of the motion.
const edgeMargin = 50

// Render serializes placed comments into a complete ASS document. Events
// appear in the order given, which the lane allocator guarantees to be
// ascending start time.
func Render(placed []layout.Placed, cfg Config) []byte {
	lines := header(cfg)
	for _, p := range placed {
		lines = append(lines, event(p, cfg))
	}
	return []byte(strings.Join(lines, "\n"))
}

func header(cfg Config) []string {
	bold := 0
	if cfg.Bold {
		bold = 1
	}
	return []string{
		"[Script Info]",
		"ScriptType: v4.00+",
		fmt.Sprintf("PlayResX: %d", layout.ScreenWidth),
		fmt.Sprintf("PlayResY: %d", layout.ScreenHeight),
		"",
		"[V4+ Styles]",
		"Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding",
		fmt.Sprintf("Style: Default,%s,%d,&H%sFFFFFF,&H00FFFFFF,&H00000000,&H00000000,%d,0,0,0,100,100,0,0,1,%d,0,7,10,10,10,1",
			cfg.Font, cfg.FontSize, AlphaHex(cfg.Opacity), bold, cfg.Outline),
		"",
		"[Events]",
		"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text",
	}
}

func event(p layout.Placed, cfg Config) string {
	c := p.Comment
	color := Color(c.Color, cfg.Opacity)
	y := p.Row + cfg.FontSize

	switch c.Class {
	case danmaku.ClassScroll:
		move := fmt.Sprintf(`\move(%d,%d,%s,%d)`,
			layout.ScreenWidth+edgeMargin, y, ftoa(-c.Width-edgeMargin), y)
		return fmt.Sprintf("Dialogue: 0,%s,%s,Default,,0,0,0,,{%s\\c%s}%s",
			FormatTime(c.Start), FormatTime(c.Start+cfg.ScrollSeconds), move, color, c.Text)
	default:
		align := `\an2`
		posY := layout.ScreenHeight - p.Row - 10
		if c.Class == danmaku.ClassTop {
			align = `\an8`
			posY = y
		}
		pos := fmt.Sprintf(`%s\pos(%d,%d)`, align, layout.ScreenWidth/2, posY)
		return fmt.Sprintf("Dialogue: 1,%s,%s,Default,,0,0,0,,{%s\\c%s}%s",
			FormatTime(c.Start), FormatTime(c.Start+cfg.DwellSeconds), pos, color, c.Text)
	}
}

// FormatTime renders seconds as H:MM:SS.ss with unrestricted hour width.
// Negative input clamps to zero.
func FormatTime(t float64) string {
	if t < 0 {
		t = 0
	}
	whole := int(t)
	return fmt.Sprintf("%d:%02d:%05.2f", whole/3600, (whole%3600)/60, math.Mod(t, 60))
}

// AlphaHex converts opacity into the two-digit ASS alpha byte, where 00 is
// fully opaque and FF fully transparent. Opacity is clamped to [0,1].
func AlphaHex(opacity float64) string {
	opacity = math.Max(0, math.Min(1, opacity))
	return fmt.Sprintf("%02X", int(math.Round(255*(1-opacity))))
}

// Color converts a decimal-packed RGB field into an ASS &HAABBGGRR color
// override. A malformed or non-numeric field falls back to white at the
// configured alpha rather than failing the document.
func Color(field string, opacity float64) string {
	alpha := AlphaHex(opacity)
	n, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil || n < 0 {
		return "&H" + alpha + "FFFFFF"
	}
	rgb := fmt.Sprintf("%06X", n&0xFFFFFF)
	return "&H" + alpha + rgb[4:6] + rgb[2:4] + rgb[0:2]
}

// ftoa formats a coordinate without trailing zeros, so integral widths
// stay compact in the \move directive.
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
