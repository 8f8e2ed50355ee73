package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"FloatOverlay/internal/config"
	"FloatOverlay/internal/display"
	"FloatOverlay/internal/logger"
	"FloatOverlay/internal/metrics"
	"FloatOverlay/internal/overlay"
	"FloatOverlay/internal/permission"
	"FloatOverlay/internal/server"
	"FloatOverlay/internal/service"
	"FloatOverlay/internal/sprite"
	"FloatOverlay/internal/store"
	"FloatOverlay/internal/supervisor"
	"FloatOverlay/internal/surface"
	"FloatOverlay/internal/window"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the overlay daemon in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config load: %w", err)
		}
		defer logger.Close()
		return runDaemon(cmd.Context(), cfg)
	},
}

// specFromConfig returns the window shown when no position has been saved.
func specFromConfig(o config.OverlayConfig) window.Spec {
	return window.Spec{
		Width:  o.Width,
		Height: o.Height,
		X:      o.X,
		Y:      o.Y,
		Flags: window.Flags{
			Touchable:   *o.Touchable,
			Focusable:   o.Focusable,
			AlwaysOnTop: *o.AlwaysOnTop,
		},
		Layer: window.Layer(o.Layer),
	}
}

// runDaemon wires the service to the ebiten window layer and blocks on the
// render loop, which must own the main goroutine.
func runDaemon(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("store open: %w", err)
	}
	defer st.Close()

	spec := specFromConfig(cfg.Overlay)
	sp := cfg.Overlay.Sprite
	frames, err := sprite.Load(sp.Path, sp.Rows, sp.Cols, spec.Width, spec.Height)
	if err != nil {
		logger.Warn("sprite load, using placeholder", "path", sp.Path, "err", err)
	}
	surf := surface.New(frames, cfg.Overlay.Title, surface.CPULoad, nil)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	hub := supervisor.NewHub(32)

	var svc *service.Service
	backend := overlay.New(overlay.Options{
		Title:    cfg.Overlay.Title,
		Initial:  spec,
		Surface:  surf,
		OnResume: func() { svc.Resume() },
	})
	svc = service.New(service.Options{
		Manager:  window.NewManager(backend),
		Gate:     permission.NewGate(permission.ForMode(cfg.Permission.Mode)),
		Store:    st,
		Reporter: supervisor.Multi{supervisor.Log{}, hub},
		Metrics:  metrics.New(reg),
		OnTap: func() {
			logger.Info("overlay tapped", "look", surf.Toggle())
		},
		Screen:        display.PrimaryBounds,
		Spec:          spec,
		StateKey:      cfg.Service.StateKey,
		RetryBudget:   *cfg.Service.RetryBudget,
		DragThreshold: cfg.Service.DragThreshold,
		QueueSize:     cfg.Service.QueueSize,
	})
	backend.SetSink(svc)

	go func() {
		if err := svc.Run(ctx); err != nil {
			logger.Error("service", "err", err)
		}
	}()
	go display.Watch(ctx, clockwork.NewRealClock(), cfg.Service.ScreenPoll, display.PrimaryBounds, svc.ScreenChanged)

	if os.Getenv("FLOATOVERLAY_NO_SERVER") != "1" {
		srv := server.New(svc, hub, reg)
		go func() {
			if err := srv.Run(ctx, cfg.Server.Port); err != nil {
				logger.Error("control server", "err", err)
			}
		}()
	}

	svc.Start()

	// the window outlives ctx until the service has torn down
	uiCtx, cancelUI := context.WithCancel(context.Background())
	defer cancelUI()
	go func() {
		<-svc.Done()
		cancelUI()
	}()
	runErr := backend.Run(uiCtx)
	if runErr != nil {
		logger.Error("overlay window", "err", runErr)
	}
	stop()
	<-svc.Done()
	return runErr
}
