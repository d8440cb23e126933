package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pelletier/go-toml/v2"
)

// Duration decodes TOML strings such as "16ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is read from propctl.toml. Flags override it.
type Config struct {
	Layout  string   `toml:"layout"`
	Tick    Duration `toml:"tick"`
	Verbose bool     `toml:"verbose"`
	Style   string   `toml:"style"`
}

func DefaultConfig() Config {
	return Config{
		Layout: "layout.yaml",
		Tick:   Duration(16 * time.Millisecond),
		Style:  "light",
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if _, ok := tableStyles[cfg.Style]; !ok {
		return cfg, fmt.Errorf("config %s: unknown table style %q", path, cfg.Style)
	}
	if cfg.Tick <= 0 {
		return cfg, fmt.Errorf("config %s: tick must be positive", path)
	}
	return cfg, nil
}

var tableStyles = map[string]table.Style{
	"default": table.StyleDefault,
	"light":   table.StyleLight,
	"rounded": table.StyleRounded,
	"bold":    table.StyleBold,
	"double":  table.StyleDouble,
}
