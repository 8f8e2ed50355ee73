package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"

	"FloatOverlay/internal/service"

	"github.com/spf13/cobra"
)

// client talks to a running daemon's control server.
type client struct {
	base string
	http *http.Client
}

func newClient(port int) *client {
	return &client{
		base: fmt.Sprintf("http://localhost:%d", port),
		http: &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *client) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// command posts a one-way request; the daemon answers before acting on it.
func (c *client) command(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/"+name, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: %s: %s", name, resp.Status, body)
	}
	return nil
}

func (c *client) status(ctx context.Context) (service.Status, error) {
	var st service.Status
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/status", nil)
	if err != nil {
		return st, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return st, fmt.Errorf("status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("status decode: %w", err)
	}
	return st, nil
}

// launch starts the overlay without waiting for the outcome: it spawns the
// daemon when none is running, otherwise it asks the running one to start.
func launch(ctx context.Context, c *client, spawn func() error) error {
	if !c.healthy(ctx) {
		return spawn()
	}
	return c.command(ctx, "start")
}

// spawnDaemon starts `floatoverlay run` detached from this process.
func spawnDaemon() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	args := []string{"run"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	cmd := exec.Command(exe, args...)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn daemon: %w", err)
	}
	return cmd.Process.Release()
}

func clientFromConfig() (*client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	return newClient(cfg.Server.Port), nil
}

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Show the overlay, starting the daemon if needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromConfig()
		if err != nil {
			return err
		}
		return launch(cmd.Context(), c, spawnDaemon)
	},
}

func commandCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromConfig()
			if err != nil {
				return err
			}
			return c.command(cmd.Context(), name)
		},
	}
}

var (
	startCmd = commandCmd("start", "Ask the running daemon to show the overlay")
	stopCmd  = commandCmd("stop", "Ask the running daemon to remove the overlay")
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the daemon's overlay status",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromConfig()
		if err != nil {
			return err
		}
		st, err := c.status(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	},
}
