// Package store persists the last overlay position so the window comes back
// where the user left it after a restart or a reclaim by the platform.
package store

import (
	"context"
	"fmt"
	"image"
	"time"

	"FloatOverlay/internal/config"
)

// Position is the last committed overlay origin together with the screen
// it was committed on.
type Position struct {
	X            int       `yaml:"x" json:"x"`
	Y            int       `yaml:"y" json:"y"`
	ScreenWidth  int       `yaml:"screen_width" json:"screenWidth"`
	ScreenHeight int       `yaml:"screen_height" json:"screenHeight"`
	SavedAt      time.Time `yaml:"saved_at" json:"savedAt"`
}

// Screen returns the screen rectangle recorded with the position.
func (p Position) Screen() image.Rectangle {
	return image.Rect(0, 0, p.ScreenWidth, p.ScreenHeight)
}

// Store reads and writes positions by a stable key.
type Store interface {
	Load(ctx context.Context, key string) (Position, bool, error)
	Save(ctx context.Context, key string, p Position) error
	Close() error
}

// Open returns the backend selected in cfg.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		return NewFile(p), nil
	case "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedis(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
