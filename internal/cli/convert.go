package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danmuget/danmuget/pkg/batch"
	"github.com/danmuget/danmuget/pkg/pipeline"
)

// convertCommand creates the convert command for local XML feeds.
func (c *CLI) convertCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "convert <feed.xml>...",
		Short: "Convert local XML comment feeds to ASS subtitles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts := c.pipelineOptions(cfg)

			p := newProgress(c.Logger)
			converted := 0
			for _, in := range args {
				raw, err := os.ReadFile(in)
				if err != nil {
					return fmt.Errorf("read %s: %w", in, err)
				}
				doc, err := pipeline.Convert(raw, opts)
				if err != nil {
					printWarning("Skipping %s: %v", in, err)
					continue
				}
				base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
				path, err := writeArtifact(output, batch.Artifact{Name: base + ".ass", Data: doc})
				if err != nil {
					return err
				}
				printFile(path)
				converted++
			}
			if converted == 0 {
				return fmt.Errorf("no feed could be converted")
			}
			p.done(fmt.Sprintf("Converted %d of %d feeds", converted, len(args)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", ".", "output directory")
	return cmd
}
