package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// xvfbReadyTimeout bounds the wait for the display socket.
const xvfbReadyTimeout = 3 * time.Second

// startXvfb runs Xvfb on the configured display and waits for its X11
// socket, so Chrome never races an unready display.
func (m *Manager) startXvfb(ctx context.Context) error {
	if m.xvfb != nil {
		return nil
	}
	display := m.cfg.XvfbDisplay
	cmd := exec.Command("Xvfb", display, "-screen", "0", "1366x900x24", "-ac", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	m.xvfb = cmd

	if err := waitDisplay(ctx, display, xvfbReadyTimeout); err != nil {
		m.stopXvfb()
		return err
	}
	m.cfg.Logger.Info("browser: xvfb started", "display", display, "pid", cmd.Process.Pid)
	return nil
}

func (m *Manager) stopXvfb() {
	if m.xvfb == nil {
		return
	}
	if m.xvfb.Process != nil {
		m.xvfb.Process.Kill()
		m.xvfb.Wait()
	}
	m.cfg.Logger.Info("browser: xvfb stopped")
	m.xvfb = nil
}

// displaySocket maps ":99" to /tmp/.X11-unix/X99.
func displaySocket(display string) string {
	n := strings.TrimPrefix(display, ":")
	if i := strings.IndexByte(n, '.'); i >= 0 {
		n = n[:i]
	}
	return filepath.Join("/tmp/.X11-unix", "X"+n)
}

func waitDisplay(ctx context.Context, display string, timeout time.Duration) error {
	sock := displaySocket(display)
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(sock); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("display %s not ready after %s", display, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
