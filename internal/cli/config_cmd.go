package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danmuget/danmuget/internal/config"
)

// configCommand creates the config management command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or reset the settings file",
	}

	cmd.AddCommand(c.configPathCommand())
	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configResetCommand())

	return cmd
}

// configPathCommand creates the "config path" subcommand.
func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, err := c.loadConfig()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

// configShowCommand creates the "config show" subcommand.
func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := c.loadConfig()
			if err != nil {
				return err
			}
			printDetail("from %s", path)
			printKeyValue("api_base_url", cfg.BaseURL)
			printKeyValue("search_max", strconv.Itoa(cfg.SearchMax))
			printKeyValue("font", cfg.Font)
			printKeyValue("font_size", strconv.Itoa(cfg.FontSize))
			printKeyValue("bold", strconv.FormatBool(cfg.Bold))
			printKeyValue("outline", strconv.Itoa(cfg.Outline))
			printKeyValue("opacity", strconv.FormatFloat(cfg.Opacity, 'f', -1, 64))
			printKeyValue("scroll_seconds", strconv.FormatFloat(cfg.ScrollSeconds, 'f', -1, 64))
			printKeyValue("dwell_seconds", strconv.FormatFloat(cfg.DwellSeconds, 'f', -1, 64))
			printKeyValue("display_area", strconv.FormatFloat(cfg.DisplayArea, 'f', -1, 64))
			printKeyValue("save_as_ass", strconv.FormatBool(cfg.SaveAsASS))
			printKeyValue("name_format", cfg.NameFormat)
			return nil
		},
	}
}

// configResetCommand creates the "config reset" subcommand.
func (c *CLI) configResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Write the default settings to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.ConfigPath
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			printSuccess("Wrote defaults")
			printFile(path)
			return nil
		},
	}
}
