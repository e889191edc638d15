package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Color is a 24-bit RGB pixel value. In YAML it is written as "#rrggbb"
// or "0xrrggbb".
type Color uint32

// ParseColor parses "#rrggbb" or "0xrrggbb" into a Color.
func ParseColor(s string) (Color, error) {
	raw := strings.TrimSpace(s)
	var hex string
	switch {
	case strings.HasPrefix(raw, "#"):
		hex = raw[1:]
	case strings.HasPrefix(raw, "0x"), strings.HasPrefix(raw, "0X"):
		hex = raw[2:]
	default:
		return 0, fmt.Errorf("color %q must start with '#' or '0x'", s)
	}
	if len(hex) != 6 {
		return 0, fmt.Errorf("color %q must have exactly six hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q is not valid hex: %w", s, err)
	}
	return Color(v), nil
}

func (c Color) String() string {
	return fmt.Sprintf("#%06x", uint32(c))
}

func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("color must be a string like \"#rrggbb\"")
	}
	parsed, err := ParseColor(value.Value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Color) MarshalYAML() (any, error) {
	return c.String(), nil
}

// FrameStyle describes the decoration applied to every frame window.
type FrameStyle struct {
	// BorderWidth is the flat border around each frame, in pixels.
	BorderWidth int `yaml:"border_width"`
	// BorderColor is the border pixel color.
	BorderColor Color `yaml:"border_color"`
	// BackgroundColor fills the frame behind the client window.
	BackgroundColor Color `yaml:"background_color"`
}

// AuditConfig controls the periodic registry consistency sweep.
type AuditConfig struct {
	// IntervalSeconds between sweeps; 0 disables the auditor.
	IntervalSeconds int `yaml:"interval_seconds"`
}

// Config holds the window manager configuration.
type Config struct {
	// Display selects the X display to manage; empty means $DISPLAY.
	Display  string      `yaml:"display,omitempty"`
	LogLevel string      `yaml:"log_level"`
	Frame    FrameStyle  `yaml:"frame"`
	Audit    AuditConfig `yaml:"audit"`
}

const maxBorderWidth = 64

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Frame: FrameStyle{
			BorderWidth:     3,
			BorderColor:     0xffff00,
			BackgroundColor: 0x0000ff,
		},
		Audit: AuditConfig{
			IntervalSeconds: 60,
		},
	}
}

// ValidationError reports an invalid configuration value, carrying the
// YAML path and, when the value came from a file, its source position.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.Frame.BorderWidth < 0 {
		return &ValidationError{Path: "frame.border_width", Err: fmt.Errorf("border_width must be >= 0")}
	}
	if c.Frame.BorderWidth > maxBorderWidth {
		return &ValidationError{Path: "frame.border_width", Err: fmt.Errorf("border_width must be <= %d", maxBorderWidth)}
	}
	if c.Audit.IntervalSeconds < 0 {
		return &ValidationError{Path: "audit.interval_seconds", Err: fmt.Errorf("interval_seconds must be >= 0")}
	}
	return nil
}

// SlogLevel maps the configured log_level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AuditInterval returns the auditor sweep interval; zero disables it.
func (c *Config) AuditInterval() time.Duration {
	if c.Audit.IntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Audit.IntervalSeconds) * time.Second
}
