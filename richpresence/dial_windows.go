//go:build windows
// +build windows

package richpresence

import (
	"context"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

func dialDiscord(ctx context.Context) (net.Conn, error) {
	var lastErr error
	for i := 0; i < 10; i++ {
		conn, err := winio.DialPipeContext(ctx, fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i))
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("no discord ipc pipe: %w", lastErr)
}
