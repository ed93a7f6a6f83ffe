//go:build !windows
// +build !windows

package richpresence

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// Flatpak and snap builds of Discord put the socket in a subdirectory.
var socketSubdirs = []string{"", "app/com.discordapp.Discord", "snap.discord"}

func socketDir() string {
	for _, key := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(key); dir != "" {
			return dir
		}
	}
	return "/tmp"
}

func dialDiscord(ctx context.Context) (net.Conn, error) {
	dir := socketDir()
	var d net.Dialer
	var lastErr error
	for _, sub := range socketSubdirs {
		for i := 0; i < 10; i++ {
			path := filepath.Join(dir, sub, fmt.Sprintf("discord-ipc-%d", i))
			conn, err := d.DialContext(ctx, "unix", path)
			if err == nil {
				return conn, nil
			}
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("no discord ipc socket in %s: %w", dir, lastErr)
}
