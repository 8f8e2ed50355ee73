package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

func init() {
	// macOS Metal nextDrawable fails on transparent windows; pick OpenGL before ebiten initializes.
	if os.Getenv("EBITENGINE_GRAPHICS_LIBRARY") == "" {
		os.Setenv("EBITENGINE_GRAPHICS_LIBRARY", "opengl")
	}
}

const (
	DefaultPort          = 8766
	DefaultSize          = 128
	DefaultRetryBudget   = 1
	DefaultDragThreshold = 8
	DefaultStateKey      = "floatoverlay.main"
	DefaultQueueSize     = 256
	DefaultScreenPoll    = 2 * time.Second
)

// Config is the application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Overlay    OverlayConfig    `yaml:"overlay"`
	Service    ServiceConfig    `yaml:"service"`
	Store      StoreConfig      `yaml:"store"`
	Permission PermissionConfig `yaml:"permission"`
}

// ServerConfig holds control server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// SpriteEntry describes the surface artwork (sheet path, row/col).
type SpriteEntry struct {
	Path string `yaml:"path"`
	Rows int    `yaml:"rows"`
	Cols int    `yaml:"cols"`
}

// OverlayConfig holds the initial overlay window settings.
// X and Y are used only when no position has been persisted yet.
type OverlayConfig struct {
	Width       int         `yaml:"width"`
	Height      int         `yaml:"height"`
	X           int         `yaml:"x"`
	Y           int         `yaml:"y"`
	Touchable   *bool       `yaml:"touchable"`
	Focusable   bool        `yaml:"focusable"`
	AlwaysOnTop *bool       `yaml:"always_on_top"`
	Layer       string      `yaml:"layer"`
	Title       string      `yaml:"title"`
	Sprite      SpriteEntry `yaml:"sprite"`
}

// ServiceConfig tunes the lifecycle coordinator.
type ServiceConfig struct {
	RetryBudget   *int          `yaml:"retry_budget"`
	DragThreshold int           `yaml:"drag_threshold"`
	StateKey      string        `yaml:"state_key"`
	QueueSize     int           `yaml:"queue_size"`
	ScreenPoll    time.Duration `yaml:"screen_poll"`
}

// StoreConfig selects where the last overlay position is kept.
type StoreConfig struct {
	Backend  string `yaml:"backend"` // file, redis or memory
	RedisURL string `yaml:"redis_url"`
}

// PermissionConfig overrides the platform capability probe.
type PermissionConfig struct {
	Mode string `yaml:"mode"` // auto, granted or denied
}

// Dir returns the OS-specific config directory (e.g. ~/Library/Application Support/floatoverlay).
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "floatoverlay"), nil
}

// Path returns the full path to config.yaml.
func Path() (string, error) {
	d, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.yaml"), nil
}

// Load reads config from the OS config dir, or returns default if missing.
func Load() (*Config, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(p)
}

// LoadFrom reads config from path, or returns default if the file is missing.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config decode %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Overlay.Width == 0 {
		c.Overlay.Width = DefaultSize
	}
	if c.Overlay.Height == 0 {
		c.Overlay.Height = DefaultSize
	}
	if c.Overlay.Touchable == nil {
		c.Overlay.Touchable = boolPtr(true)
	}
	if c.Overlay.AlwaysOnTop == nil {
		c.Overlay.AlwaysOnTop = boolPtr(true)
	}
	if c.Overlay.Layer == "" {
		c.Overlay.Layer = "overlay"
	}
	if c.Overlay.Title == "" {
		c.Overlay.Title = "floatoverlay"
	}
	if c.Service.RetryBudget == nil {
		c.Service.RetryBudget = intPtr(DefaultRetryBudget)
	}
	if c.Service.DragThreshold == 0 {
		c.Service.DragThreshold = DefaultDragThreshold
	}
	if c.Service.StateKey == "" {
		c.Service.StateKey = DefaultStateKey
	}
	if c.Service.QueueSize == 0 {
		c.Service.QueueSize = DefaultQueueSize
	}
	if c.Service.ScreenPoll == 0 {
		c.Service.ScreenPoll = DefaultScreenPoll
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "file"
	}
	if c.Permission.Mode == "" {
		c.Permission.Mode = "auto"
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Overlay.Width < 0 || c.Overlay.Height < 0 {
		return fmt.Errorf("overlay size must not be negative (got %dx%d)", c.Overlay.Width, c.Overlay.Height)
	}
	if *c.Service.RetryBudget < 0 {
		return fmt.Errorf("service.retry_budget must be >= 0, got %d", *c.Service.RetryBudget)
	}
	if c.Service.DragThreshold < 0 {
		return fmt.Errorf("service.drag_threshold must be >= 0, got %d", c.Service.DragThreshold)
	}
	switch c.Store.Backend {
	case "file", "memory":
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	switch c.Permission.Mode {
	case "auto", "granted", "denied":
	default:
		return fmt.Errorf("unknown permission.mode %q", c.Permission.Mode)
	}
	return nil
}

// SaveTo writes config to path, creating its directory.
func SaveTo(path string, c *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Default returns default configuration.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }
