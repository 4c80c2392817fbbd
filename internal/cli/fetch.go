package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/danmuget/danmuget/internal/config"
	"github.com/danmuget/danmuget/pkg/archive"
	"github.com/danmuget/danmuget/pkg/batch"
	"github.com/danmuget/danmuget/pkg/integrations/dandan"
	"github.com/danmuget/danmuget/pkg/naming"
	"github.com/danmuget/danmuget/pkg/pipeline"
)

// zipSuffix is appended to the keyword when a batch produces more than
// one file and gets packed into a single archive.
const zipSuffix = "_弹幕包.zip"

// fetchCommand creates the fetch command.
func (c *CLI) fetchCommand() *cobra.Command {
	var (
		selection string
		platform  string
		pick      int
		output    string
		raw       bool
		resume    string
	)

	cmd := &cobra.Command{
		Use:   "fetch <keyword>",
		Short: "Download comment feeds and convert them to ASS subtitles",
		Long: `Fetch searches for a title, lets you pick the resource and platform,
then downloads the selected episodes' comment feeds and converts each
one into an ASS subtitle file. A single episode is written as a file;
multiple episodes are packed into one zip archive.

The episode selection accepts "0" for everything, "N" for one episode
and "A-B" for an inclusive range.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}
			store, err := c.openStore()
			if err != nil {
				return fmt.Errorf("open job store: %w", err)
			}
			defer store.Close()

			orch := batch.New(c.newClient(cfg), c.converter(cfg, raw), store)
			orch.Logger = c.Logger

			if resume != "" {
				return c.runJob(cmd, orch, resume, output)
			}
			if len(args) == 0 {
				return errors.New("a search keyword is required unless --resume is given")
			}
			keyword := args[0]

			anime, err := c.pickAnime(cmd, cfg, keyword, pick)
			if err != nil || anime == nil {
				return err
			}
			tag, err := c.pickPlatform(anime, platform)
			if err != nil || tag == "" {
				return err
			}
			episodes := anime.EpisodesFor(tag)
			printInfo("%s %s %s, %d episodes", StyleHighlight.Render(anime.Title), tag, StyleDim.Render(iconArrow), len(episodes))

			tasks := make([]batch.Task, len(episodes))
			for i, ep := range episodes {
				tasks[i] = batch.Task{
					EpisodeID:  ep.ID,
					Title:      ep.Title,
					CleanTitle: ep.CleanTitle(),
					Seq:        i,
				}
			}
			job, err := orch.Start(batch.StartSpec{
				Title:     keyword,
				Template:  cfg.NameFormat,
				Selection: selection,
				Movie:     anime.IsMovie(),
				Convert:   cfg.SaveAsASS && !raw,
				Tasks:     tasks,
			})
			if err != nil {
				return err
			}
			return c.runJob(cmd, orch, job.ID, output)
		},
	}

	cmd.Flags().StringVarP(&selection, "select", "s", "0", `episode selection: "0", "N" or "A-B"`)
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "platform tag, e.g. 【B站】")
	cmd.Flags().IntVar(&pick, "pick", 0, "1-based search result to use without prompting")
	cmd.Flags().StringVarP(&output, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&raw, "raw", false, "keep the raw XML feeds instead of converting")
	cmd.Flags().StringVar(&resume, "resume", "", "resume a persisted job by id")
	return cmd
}

// converter builds the per-feed conversion hook, or nil in raw mode.
func (c *CLI) converter(cfg config.Config, raw bool) func([]byte) ([]byte, error) {
	if raw || !cfg.SaveAsASS {
		return nil
	}
	opts := c.pipelineOptions(cfg)
	return func(data []byte) ([]byte, error) {
		return pipeline.Convert(data, opts)
	}
}

// pickAnime resolves the search result to download from. A nil result
// with nil error means the user backed out.
func (c *CLI) pickAnime(cmd *cobra.Command, cfg config.Config, keyword string, pick int) (*dandan.Anime, error) {
	client := c.newClient(cfg)
	spin := newSpinner(cmd.Context(), fmt.Sprintf("Searching %q...", keyword))
	spin.Start()
	animes, err := client.SearchEpisodes(cmd.Context(), keyword)
	spin.Stop()
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}
	if len(animes) == 0 {
		return nil, fmt.Errorf("no results for %q", keyword)
	}
	if len(animes) > cfg.SearchMax {
		animes = animes[:cfg.SearchMax]
	}

	if pick > 0 {
		if pick > len(animes) {
			return nil, fmt.Errorf("--pick %d out of range, only %d results", pick, len(animes))
		}
		return &animes[pick-1], nil
	}
	if len(animes) == 1 {
		return &animes[0], nil
	}

	model, err := tea.NewProgram(NewAnimeListModel(animes)).Run()
	if err != nil {
		return nil, fmt.Errorf("selection: %w", err)
	}
	final := model.(AnimeListModel)
	if final.Selected == nil {
		printInfo("Nothing selected")
		return nil, nil
	}
	return final.Selected, nil
}

// pickPlatform resolves the platform tag to download. An empty tag with
// nil error means the user backed out.
func (c *CLI) pickPlatform(anime *dandan.Anime, flag string) (string, error) {
	tags := anime.PlatformTags()
	if flag != "" {
		if !slices.Contains(tags, flag) {
			return "", fmt.Errorf("platform %q not offered, available: %s", flag, strings.Join(tags, " "))
		}
		return flag, nil
	}
	if len(tags) == 1 {
		return tags[0], nil
	}

	model, err := tea.NewProgram(NewPlatformListModel(anime)).Run()
	if err != nil {
		return "", fmt.Errorf("selection: %w", err)
	}
	final := model.(PlatformListModel)
	if final.Selected == "" {
		printInfo("Nothing selected")
	}
	return final.Selected, nil
}

// runJob drives a job to a terminal state and writes its artifacts.
func (c *CLI) runJob(cmd *cobra.Command, orch *batch.Orchestrator, id, output string) error {
	ctx := cmd.Context()
	spin := newSpinner(ctx, "Downloading...")
	spin.Start()

	var job *batch.Job
	for {
		var err error
		job, err = orch.Tick(ctx, id)
		if err != nil {
			spin.Stop()
			return err
		}
		if job.State.Terminal() {
			break
		}
		done, total := job.Progress()
		if done < total {
			spin.SetMessage(fmt.Sprintf("Downloading %s (%d/%d)...", job.Tasks[done].CleanTitle, done+1, total))
		}
	}
	spin.Stop()

	switch job.State {
	case batch.StateCancelled:
		printWarning("Cancelled, keeping %d finished episodes", len(job.Artifacts))
	case batch.StateCircuitBroken:
		printError("Download kept failing, aborted the batch")
		for _, line := range tail(job.Log, 3) {
			printDetail("%s", line.Message)
		}
	}
	if len(job.Artifacts) == 0 {
		return fmt.Errorf("job %s produced no files", job.ID)
	}

	p := newProgress(loggerFromContext(ctx))
	if len(job.Artifacts) == 1 {
		path, err := writeArtifact(output, job.Artifacts[0])
		if err != nil {
			return err
		}
		printSuccess("Saved 1 file")
		printFile(path)
	} else {
		data, err := archive.Zip(job.Artifacts)
		if err != nil {
			return fmt.Errorf("pack archive: %w", err)
		}
		name := naming.Sanitize(job.Title) + zipSuffix
		path, err := writeArtifact(output, batch.Artifact{Name: name, Data: data})
		if err != nil {
			return err
		}
		printSuccess("Packed %d files", len(job.Artifacts))
		printFile(path)
	}
	p.done(fmt.Sprintf("Fetched %d episodes", len(job.Artifacts)))
	printDetail("job id: %s", job.ID)
	return nil
}

func tail(lines []batch.LogLine, n int) []batch.LogLine {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
