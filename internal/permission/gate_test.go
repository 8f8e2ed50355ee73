package permission

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type erroringProber struct{}

func (erroringProber) Check(context.Context) (bool, error) { return false, errors.New("no bus") }
func (erroringProber) Request(context.Context) error       { return nil }

func TestCheckAndRequest_Granted(t *testing.T) {
	p := NewStatic(true)
	g := NewGate(p)
	assert.Equal(t, Unknown, g.State())

	st, err := g.CheckAndRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Granted, st)
	assert.Zero(t, p.Requests(), "no prompt when already granted")
}

func TestCheckAndRequest_DeniedPromptsOnce(t *testing.T) {
	p := NewStatic(false)
	g := NewGate(p)

	st, err := g.CheckAndRequest(context.Background())
	assert.ErrorIs(t, err, ErrMissing)
	assert.Equal(t, Denied, st)
	assert.Equal(t, Denied, g.State())
	assert.Equal(t, 1, p.Requests())
}

func TestCheckAndRequest_GrantedAfterPrompt(t *testing.T) {
	p := NewStatic(false)
	p.GrantOnRequest = true
	g := NewGate(p)

	st, err := g.CheckAndRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Granted, st)
}

func TestCheckAndRequest_ProberError(t *testing.T) {
	g := NewGate(erroringProber{})
	st, err := g.CheckAndRequest(context.Background())
	assert.ErrorIs(t, err, ErrMissing)
	assert.Equal(t, Denied, st)
}

func TestRecheck_RevokedOutOfBand(t *testing.T) {
	p := NewStatic(true)
	g := NewGate(p)
	_, err := g.CheckAndRequest(context.Background())
	require.NoError(t, err)

	p.Set(false)
	st, err := g.Recheck(context.Background())
	assert.ErrorIs(t, err, ErrMissing)
	assert.Equal(t, Denied, st)
	assert.Zero(t, p.Requests(), "recheck never prompts")
}

func TestDesktop_NeedsDisplayServerOnLinux(t *testing.T) {
	d := &Desktop{displays: func() int { return 1 }, getenv: func(string) string { return "" }}
	ok, err := d.Check(context.Background())
	require.NoError(t, err)
	if ok {
		assert.NotEqual(t, "linux", runtime.GOOS)
	}

	d.getenv = func(k string) string {
		if k == "WAYLAND_DISPLAY" {
			return "wayland-0"
		}
		return ""
	}
	ok, err = d.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	d.displays = func() int { return 0 }
	ok, _ = d.Check(context.Background())
	assert.False(t, ok)
}
