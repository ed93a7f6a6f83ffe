package presence

import (
	"fmt"
	"strings"
	"time"

	"htbpresence/htb"
)

const (
	defaultLargeImage = "htb_logo"
	largeText         = "Hack The Box"
)

// BuildActivity renders an active status as a presence payload. account is
// the HTB user name and may be empty.
func BuildActivity(status htb.Status, account string) Activity {
	act := Activity{
		Details:    status.MachineName,
		LargeImage: defaultLargeImage,
		LargeText:  largeText,
		SmallText:  account,
	}
	if status.Avatar != "" {
		act.LargeImage = status.Avatar
	}

	parts := []string{}
	if status.Type != "" {
		parts = append(parts, status.Type)
	}
	if status.StartedAt != nil {
		start := status.StartedAt.UTC()
		act.Start = &start
		parts = append(parts, "started "+start.Format("15:04")+" UTC")
	}
	if len(parts) == 0 {
		parts = append(parts, "Hacking")
	}
	act.State = strings.Join(parts, " | ")

	return act
}

// FormatElapsed renders d as "1h 05m", "12m" or "<1m".
func FormatElapsed(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}
