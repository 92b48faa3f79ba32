// Package config loads the switcher's declarative configuration: trigger
// keys, grid geometry, refresh cadence, and the left-side column/group
// definitions with their title/class patterns.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ValidationError carries the YAML path of the offending field so the CLI
// can point the user at it.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Tile configures the pixel geometry of one grid cell and the spacing
// around it.
type Tile struct {
	Width        int `yaml:"width"`
	Height       int `yaml:"height"`
	Gutter       int `yaml:"gutter"`
	MajorGutter  int `yaml:"major_gutter"`
	GroupSpacing int `yaml:"group_spacing"`

	// PlaceholderWidth is the horizontal space reserved for a side of the
	// grid that came out empty, so the MRU column does not jump around.
	PlaceholderWidth int `yaml:"placeholder_width"`
}

// Group is one named bucket inside a left-side column. A taskbar button
// lands in the first group whose set patterns all match; a group with no
// patterns matches everything.
type Group struct {
	Name         string `yaml:"name"`
	TitlePattern string `yaml:"title_pattern,omitempty"`
	ClassPattern string `yaml:"class_pattern,omitempty"`

	title *regexp.Regexp
	class *regexp.Regexp
}

// Title returns the compiled title pattern, nil when unset.
func (g *Group) Title() *regexp.Regexp { return g.title }

// Class returns the compiled class pattern, nil when unset.
func (g *Group) Class() *regexp.Regexp { return g.class }

// Column is one configured left-side column.
type Column struct {
	Name   string  `yaml:"name"`
	Groups []Group `yaml:"groups"`
}

// Config is the effective switcher configuration.
type Config struct {
	// TriggerKey starts and advances the standard switch (with Alt held).
	TriggerKey string `yaml:"trigger_key"`
	// SearchKey enters type-search mode (with Alt held).
	SearchKey string `yaml:"search_key"`

	MruWindowCount   int `yaml:"mru_window_count"`
	MaxRowsPerColumn int `yaml:"max_rows_per_column"`

	// RefreshIntervalMs is the snapshot refresh period; every
	// FullRefreshEvery-th refresh discards the process caches.
	RefreshIntervalMs int `yaml:"refresh_interval_ms"`
	FullRefreshEvery  int `yaml:"full_refresh_every"`

	// NormalizeExempt lists substrings whose presence in a window title
	// bypasses space normalization.
	NormalizeExempt []string `yaml:"normalize_exempt,omitempty"`

	// RequireWindowMatch drops taskbar buttons with no matching window.
	RequireWindowMatch bool `yaml:"require_window_match"`

	LogLevel string `yaml:"log_level"`

	Tile    Tile     `yaml:"tile"`
	Columns []Column `yaml:"columns,omitempty"`
}

// DefaultConfig returns the stock configuration: Alt-Tab / Alt-grave, a
// twelve-window MRU column, and no left-side groups.
func DefaultConfig() *Config {
	return &Config{
		TriggerKey:        "Tab",
		SearchKey:         "grave",
		MruWindowCount:    12,
		MaxRowsPerColumn:  8,
		RefreshIntervalMs: 2000,
		FullRefreshEvery:  10,
		LogLevel:          "info",
		Tile: Tile{
			Width:            240,
			Height:           36,
			Gutter:           6,
			MajorGutter:      18,
			GroupSpacing:     12,
			PlaceholderWidth: 60,
		},
	}
}

// Validate checks the configuration and compiles the group patterns. It
// must be called before the config is handed to the daemon.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TriggerKey) == "" {
		return &ValidationError{Path: "trigger_key", Err: fmt.Errorf("trigger_key is required")}
	}
	if strings.TrimSpace(c.SearchKey) == "" {
		return &ValidationError{Path: "search_key", Err: fmt.Errorf("search_key is required")}
	}
	if c.TriggerKey == c.SearchKey {
		return &ValidationError{Path: "search_key", Err: fmt.Errorf("search_key must differ from trigger_key")}
	}
	if c.MruWindowCount < 1 {
		return &ValidationError{Path: "mru_window_count", Err: fmt.Errorf("mru_window_count must be >= 1")}
	}
	if c.MaxRowsPerColumn < 1 {
		return &ValidationError{Path: "max_rows_per_column", Err: fmt.Errorf("max_rows_per_column must be >= 1")}
	}
	if c.RefreshIntervalMs < 100 {
		return &ValidationError{Path: "refresh_interval_ms", Err: fmt.Errorf("refresh_interval_ms must be >= 100")}
	}
	if c.FullRefreshEvery < 1 {
		return &ValidationError{Path: "full_refresh_every", Err: fmt.Errorf("full_refresh_every must be >= 1")}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.Tile.Width < 1 || c.Tile.Height < 1 {
		return &ValidationError{Path: "tile", Err: fmt.Errorf("tile width and height must be >= 1")}
	}
	if c.Tile.Gutter < 0 || c.Tile.MajorGutter < 0 || c.Tile.GroupSpacing < 0 || c.Tile.PlaceholderWidth < 0 {
		return &ValidationError{Path: "tile", Err: fmt.Errorf("tile spacing values must be >= 0")}
	}

	for ci := range c.Columns {
		col := &c.Columns[ci]
		colPath := "columns[" + strconv.Itoa(ci) + "]"
		if strings.TrimSpace(col.Name) == "" {
			return &ValidationError{Path: colPath + ".name", Err: fmt.Errorf("column name is required")}
		}
		if len(col.Groups) == 0 {
			return &ValidationError{Path: colPath + ".groups", Err: fmt.Errorf("column must define at least one group")}
		}
		for gi := range col.Groups {
			g := &col.Groups[gi]
			groupPath := colPath + ".groups[" + strconv.Itoa(gi) + "]"
			if strings.TrimSpace(g.Name) == "" {
				return &ValidationError{Path: groupPath + ".name", Err: fmt.Errorf("group name is required")}
			}
			if g.TitlePattern != "" {
				re, err := regexp.Compile(g.TitlePattern)
				if err != nil {
					return &ValidationError{Path: groupPath + ".title_pattern", Err: err}
				}
				g.title = re
			}
			if g.ClassPattern != "" {
				re, err := regexp.Compile(g.ClassPattern)
				if err != nil {
					return &ValidationError{Path: groupPath + ".class_pattern", Err: err}
				}
				g.class = re
			}
		}
	}
	return nil
}
