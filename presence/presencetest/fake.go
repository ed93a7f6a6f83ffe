// Package presencetest provides an in-memory presence.Client for tests.
package presencetest

import (
	"sync"

	"htbpresence/presence"
)

// Client records every call and fails them on demand.
type Client struct {
	mu sync.Mutex

	Activities []presence.Activity
	SetCalls   int
	ClearCalls int
	CloseCalls int

	// SetErr, ClearErr and CloseErr are returned by the matching method
	// while non-nil.
	SetErr   error
	ClearErr error
	CloseErr error

	// Lost makes Alive report a dropped channel until the next successful
	// set or clear reconnects it.
	Lost bool
}

func (c *Client) SetActivity(act presence.Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SetCalls++
	c.Activities = append(c.Activities, act)
	if c.SetErr == nil {
		c.Lost = false
	}
	return c.SetErr
}

func (c *Client) ClearActivity() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ClearCalls++
	if c.ClearErr == nil {
		c.Lost = false
	}
	return c.ClearErr
}

func (c *Client) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.Lost
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CloseCalls++
	return c.CloseErr
}

// Calls returns the total number of set and clear calls.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.SetCalls + c.ClearCalls
}

// Last returns the most recently pushed activity.
func (c *Client) Last() (presence.Activity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.Activities) == 0 {
		return presence.Activity{}, false
	}
	return c.Activities[len(c.Activities)-1], true
}
