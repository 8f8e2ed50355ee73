package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Shared(t *testing.T) {
	l := Logger()
	require.NotNil(t, l)
	assert.Same(t, l, Logger())
	assert.True(t, l.Enabled(context.Background(), slog.LevelInfo))
}
