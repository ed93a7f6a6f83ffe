// Package richpresence pushes presence.Activity values to a locally running
// Discord client over its Rich Presence IPC socket.
package richpresence

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"htbpresence/presence"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultTimeout = 5 * time.Second

// Client implements presence.Client. Every exchange with Discord carries a
// deadline of timeout; any transport failure drops the connection and the
// next call dials again.
type Client struct {
	log      *zap.Logger
	clientID string
	timeout  time.Duration
	pid      int
	dial     func(ctx context.Context) (net.Conn, error)

	conn net.Conn
}

var (
	_ presence.Client          = (*Client)(nil)
	_ presence.LivenessChecker = (*Client)(nil)
)

func New(log *zap.Logger, clientID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		log:      log,
		clientID: clientID,
		timeout:  timeout,
		pid:      os.Getpid(),
		dial:     dialDiscord,
	}
}

func (c *Client) connect() error {
	if c.conn != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to discord ipc: %w", err)
	}

	if err := c.handshake(conn); err != nil {
		conn.Close()
		return fmt.Errorf("discord ipc handshake failed: %w", err)
	}

	c.conn = conn
	c.log.Info("connected to discord ipc", zap.String("client_id", c.clientID))
	return nil
}

func (c *Client) handshake(conn net.Conn) error {
	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	if err := writeFrame(conn, opHandshake, handshake{V: 1, ClientID: c.clientID}); err != nil {
		return err
	}
	op, body, err := readFrame(conn)
	if err != nil {
		return err
	}
	res, err := decodeResponse(op, body)
	if err != nil {
		return err
	}
	if res.Evt != "READY" {
		return fmt.Errorf("unexpected handshake reply %q", res.Evt)
	}
	return conn.SetDeadline(time.Time{})
}

func (c *Client) drop() {
	if c.conn == nil {
		return
	}
	_ = c.conn.Close()
	c.conn = nil
}

// setActivity sends SET_ACTIVITY and waits for the matching reply. A nil
// activity clears the presence.
func (c *Client) setActivity(activity *activityPayload) error {
	if err := c.connect(); err != nil {
		return err
	}

	nonce := uuid.NewString()
	err := c.exchange(command{
		Cmd:   "SET_ACTIVITY",
		Args:  commandArgs{PID: c.pid, Activity: activity},
		Nonce: nonce,
	}, nonce)
	if err != nil {
		var rejected *rejectedError
		if !errors.As(err, &rejected) {
			c.log.Warn("discord ipc connection lost, reconnecting on next push", zap.Error(err))
			c.drop()
		}
		return err
	}
	return nil
}

type rejectedError struct{ err error }

func (e *rejectedError) Error() string { return e.err.Error() }
func (e *rejectedError) Unwrap() error { return e.err }

func (c *Client) exchange(cmd command, nonce string) error {
	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	defer func() {
		if c.conn != nil {
			_ = c.conn.SetDeadline(time.Time{})
		}
	}()

	if err := writeFrame(c.conn, opFrame, cmd); err != nil {
		return fmt.Errorf("failed to write ipc frame: %w", err)
	}

	for {
		op, body, err := readFrame(c.conn)
		if err != nil {
			return fmt.Errorf("failed to read ipc reply: %w", err)
		}
		res, err := decodeResponse(op, body)
		if err != nil {
			if op == opClose {
				return err
			}
			return &rejectedError{err: err}
		}
		if res.Nonce == nonce {
			return nil
		}
	}
}

func (c *Client) SetActivity(act presence.Activity) error {
	return c.setActivity(toPayload(act))
}

func (c *Client) ClearActivity() error {
	return c.setActivity(nil)
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
	_ = writeFrame(c.conn, opClose, struct{}{})
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Alive reports whether the IPC connection is still open. It polls the
// socket without sending a command; a peer that hung up shows as EOF.
func (c *Client) Alive() bool {
	if c.conn == nil {
		return false
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
		c.drop()
		return false
	}

	var b [1]byte
	_, err := c.conn.Read(b[:])
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		_ = c.conn.SetReadDeadline(time.Time{})
		return true
	}

	// EOF, a socket error, or an unsolicited byte that desynchronizes the
	// frame stream: start over on a fresh connection.
	c.log.Warn("discord ipc connection lost", zap.Error(err))
	c.drop()
	return false
}

func toPayload(act presence.Activity) *activityPayload {
	out := &activityPayload{
		Details: act.Details,
		State:   act.State,
	}
	if act.Start != nil {
		out.Timestamps = &timestampsPayload{Start: act.Start.UnixNano() / 1e6}
	}
	if act.LargeImage != "" || act.LargeText != "" || act.SmallText != "" {
		out.Assets = &assetsPayload{
			LargeImage: act.LargeImage,
			LargeText:  act.LargeText,
			SmallText:  act.SmallText,
		}
	}
	return out
}
