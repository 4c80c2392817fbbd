// Package config loads and persists user settings.
//
// Settings live in a TOML file under the XDG config directory. Loading
// decodes the file over the compiled-in defaults, so a config that only
// sets one key inherits everything else; a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/danmuget/danmuget/pkg/pipeline"
)

// appName is used for the config and state directories.
const appName = "danmuget"

// DefaultBaseURL is the comment API endpoint queried when the config
// does not override it.
const DefaultBaseURL = "https://dan-mu-api.netlify.app/87654321"

// DefaultNameFormat names downloads "<title>E<nn>" style.
const DefaultNameFormat = "[标题][集数]"

// Config holds every user-tunable setting.
type Config struct {
	BaseURL   string `toml:"api_base_url"`
	SearchMax int    `toml:"search_max"`

	Font          string  `toml:"font"`
	FontSize      int     `toml:"font_size"`
	Bold          bool    `toml:"bold"`
	Outline       int     `toml:"outline"`
	Opacity       float64 `toml:"opacity"`
	ScrollSeconds float64 `toml:"scroll_seconds"`
	DwellSeconds  float64 `toml:"dwell_seconds"`
	DisplayArea   float64 `toml:"display_area"`

	SaveAsASS  bool   `toml:"save_as_ass"`
	NameFormat string `toml:"name_format"`
}

// Default returns the compiled-in settings.
func Default() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		SearchMax:     15,
		Font:          pipeline.DefaultFont,
		FontSize:      pipeline.DefaultFontSize,
		Bold:          false,
		Outline:       pipeline.DefaultOutline,
		Opacity:       pipeline.DefaultOpacity,
		ScrollSeconds: pipeline.DefaultScrollSeconds,
		DwellSeconds:  pipeline.DefaultDwellSeconds,
		DisplayArea:   pipeline.DefaultDisplayArea,
		SaveAsASS:     true,
		NameFormat:    DefaultNameFormat,
	}
}

// Load reads the config at path, merged over the defaults. A missing
// file yields the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

// Validate bounds-checks the settings.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("api_base_url must not be empty")
	}
	if c.SearchMax < 1 || c.SearchMax > 50 {
		return fmt.Errorf("search_max %d out of range [1,50]", c.SearchMax)
	}
	if c.NameFormat == "" {
		return fmt.Errorf("name_format must not be empty")
	}
	opts := c.PipelineOptions()
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	return nil
}

// PipelineOptions maps the conversion settings onto pipeline options.
func (c Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Font:          c.Font,
		FontSize:      c.FontSize,
		Bold:          c.Bold,
		Outline:       c.Outline,
		Opacity:       c.Opacity,
		ScrollSeconds: c.ScrollSeconds,
		DwellSeconds:  c.DwellSeconds,
		DisplayArea:   c.DisplayArea,
	}
}

// DefaultPath returns the config file location, honoring XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// StatePath returns the job database location, honoring XDG_STATE_HOME.
func StatePath() (string, error) {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, appName, "jobs.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", appName, "jobs.db"), nil
}
