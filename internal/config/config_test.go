package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuget/danmuget/pkg/pipeline"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("font_size = 36\nsearch_max = 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.FontSize != 36 || cfg.SearchMax != 5 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.BaseURL != DefaultBaseURL || cfg.NameFormat != DefaultNameFormat || !cfg.SaveAsASS {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("fnot_size = 36\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted a misspelled key")
	}
}

func TestLoadRejectsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("font_size = 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted font_size = 500")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	want := Default()
	want.FontSize = 42
	want.SaveAsASS = false
	if err := want.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Errorf("round trip: got %+v, want %+v", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty base url", func(c *Config) { c.BaseURL = "" }, false},
		{"search max too high", func(c *Config) { c.SearchMax = 99 }, false},
		{"empty name format", func(c *Config) { c.NameFormat = "" }, false},
		{"opacity out of range", func(c *Config) { c.Opacity = 2 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() error = %v, ok = %v", err, tt.ok)
			}
		})
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := Default()
	cfg.FontSize = 60
	opts := cfg.PipelineOptions()
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if opts.FontSize != 60 || opts.Font != pipeline.DefaultFont {
		t.Errorf("mapping wrong: %+v", opts)
	}
}

func TestDefaultPathHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath() error = %v", err)
	}
	if path != "/tmp/xdg/danmuget/config.toml" {
		t.Errorf("DefaultPath() = %q", path)
	}
}
