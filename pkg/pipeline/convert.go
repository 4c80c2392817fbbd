package pipeline

import (
	"fmt"

	"github.com/danmuget/danmuget/pkg/ass"
	"github.com/danmuget/danmuget/pkg/danmaku"
	"github.com/danmuget/danmuget/pkg/layout"
)

// Convert runs the full parse → layout → render pipeline on one raw feed
// and returns the ASS document. A malformed feed fails the whole
// conversion; there is deliberately no partial output. Identical input
// and options always produce byte-identical output.
func Convert(raw []byte, opts Options) ([]byte, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	comments, err := danmaku.Parse(raw, danmaku.Options{
		FontSize:     opts.FontSize,
		DwellSeconds: opts.DwellSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	placed := layout.Allocate(comments, layout.Options{
		DisplayArea:   opts.DisplayArea,
		ScrollSeconds: opts.ScrollSeconds,
		DwellSeconds:  opts.DwellSeconds,
	})
	if dropped := len(comments) - len(placed); dropped > 0 {
		opts.Logger.Debug("lanes saturated", "dropped", dropped, "total", len(comments))
	}

	doc := ass.Render(placed, ass.Config{
		Font:          opts.Font,
		FontSize:      opts.FontSize,
		Bold:          opts.Bold,
		Outline:       opts.Outline,
		Opacity:       opts.Opacity,
		ScrollSeconds: opts.ScrollSeconds,
		DwellSeconds:  opts.DwellSeconds,
	})

	opts.Logger.Info("converted feed",
		"comments", len(comments),
		"rendered", len(placed),
		"bytes", len(doc))
	return doc, nil
}
