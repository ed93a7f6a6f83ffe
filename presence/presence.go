package presence

import (
	"fmt"
	"time"

	"htbpresence/htb"
)

// Activity is the payload shown as the user's current activity.
type Activity struct {
	Details    string
	State      string
	LargeImage string
	LargeText  string
	SmallText  string
	// Start lets the chat client render a live elapsed timer.
	Start *time.Time
}

// Client is the presence channel the bridge writes to.
type Client interface {
	SetActivity(Activity) error
	ClearActivity() error
	Close() error
}

// LivenessChecker is implemented by clients that can tell, without pushing
// anything, that the channel to the chat client was lost. What the lost
// channel displayed is gone with it.
type LivenessChecker interface {
	Alive() bool
}

const (
	OpSet   = "set"
	OpClear = "clear"
)

// Error is returned when the presence client rejects a set or clear.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("presence %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type phase int

const (
	phaseUninitialized phase = iota
	phaseCleared
	phaseShown
)

// State is what the bridge last pushed successfully. The zero value means
// nothing has been pushed yet.
type State struct {
	phase  phase
	status htb.Status
}

func Cleared() State {
	return State{phase: phaseCleared}
}

func Shown(status htb.Status) State {
	return State{phase: phaseShown, status: status}
}

func (s State) Uninitialized() bool { return s.phase == phaseUninitialized }
func (s State) IsCleared() bool     { return s.phase == phaseCleared }

// Status returns the status currently on display, if any.
func (s State) Status() (htb.Status, bool) {
	return s.status, s.phase == phaseShown
}

// Represents reports whether pushing current would change nothing.
func (s State) Represents(current htb.Status) bool {
	switch s.phase {
	case phaseShown:
		return current.Active && s.status.Equal(current)
	case phaseCleared:
		return !current.Active
	default:
		return false
	}
}

func (s State) String() string {
	switch s.phase {
	case phaseShown:
		return "shown(" + s.status.MachineName + ")"
	case phaseCleared:
		return "cleared"
	default:
		return "uninitialized"
	}
}
