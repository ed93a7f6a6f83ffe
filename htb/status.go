package htb

import (
	"strings"
	"time"
)

// Status is the normalized view of the account's active machine instance.
// Every poll produces a fresh Status; nothing is merged across polls.
type Status struct {
	Active      bool
	MachineName string
	StartedAt   *time.Time

	MachineID int64
	Avatar    string
	Type      string
}

// Equal reports whether s and o would render the same presence: the same
// active flag and, when active, the same machine name.
func (s Status) Equal(o Status) bool {
	if s.Active != o.Active {
		return false
	}
	return !s.Active || s.MachineName == o.MachineName
}

type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type activeMachineResponse struct {
	Info *activeMachineInfo `json:"info"`
}

type activeMachineInfo struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	Type      string `json:"type"`
	StartedAt string `json:"started_at"`
}

type userInfoResponse struct {
	Info *User `json:"info"`
}

var startedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parseStartedAt(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range startedAtLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}
