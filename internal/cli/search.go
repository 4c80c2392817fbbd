package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	var listEpisodes bool

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Look up a title and list its episodes per platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := args[0]
			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}

			client := c.newClient(cfg)
			spin := newSpinner(cmd.Context(), fmt.Sprintf("Searching %q...", keyword))
			spin.Start()
			animes, err := client.SearchEpisodes(cmd.Context(), keyword)
			spin.Stop()
			if err != nil {
				return fmt.Errorf("search %q: %w", keyword, err)
			}
			if len(animes) == 0 {
				printWarning("No results for %q", keyword)
				return nil
			}
			if len(animes) > cfg.SearchMax {
				animes = animes[:cfg.SearchMax]
			}

			printSuccess("%d results for %s", len(animes), StyleHighlight.Render(keyword))
			for i, a := range animes {
				fmt.Printf("%s %s\n", StyleDim.Render(fmt.Sprintf("%2d.", i+1)), StyleValue.Render(a.Label()))
				if !listEpisodes {
					continue
				}
				for _, tag := range a.PlatformTags() {
					eps := a.EpisodesFor(tag)
					printDetail("%s (%d episodes)", tag, len(eps))
					for j, ep := range eps {
						printDetail("  %2d. %s", j+1, ep.CleanTitle())
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&listEpisodes, "episodes", "e", false, "list every episode per platform")
	return cmd
}
