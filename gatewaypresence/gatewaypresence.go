// Package gatewaypresence shows the HTB status as the presence of a Discord
// bot account, for hosts where no desktop client is running.
package gatewaypresence

import (
	"fmt"

	"htbpresence/presence"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type session interface {
	Open() error
	Close() error
	UpdateStatusComplex(discordgo.UpdateStatusData) error
}

type Client struct {
	log     *zap.Logger
	session session
	open    bool
}

var _ presence.Client = (*Client)(nil)

func New(log *zap.Logger, botToken string) (*Client, error) {
	discord, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discordgo: %w", err)
	}

	// Presence updates need an identified session but no gateway events.
	discord.Identify.Intents = discordgo.IntentsNone

	discord.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info("connected to discord gateway", zap.String("username", r.User.Username))
	})

	return &Client{log: log, session: discord}, nil
}

func (c *Client) ensureOpen() error {
	if c.open {
		return nil
	}
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("failed to create connection to discord: %w", err)
	}
	c.open = true
	return nil
}

func (c *Client) SetActivity(act presence.Activity) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}

	activity := &discordgo.Activity{
		Name:    act.Details,
		Type:    discordgo.ActivityTypeGame,
		Details: act.Details,
		State:   act.State,
		Assets: discordgo.Assets{
			LargeImageID: act.LargeImage,
			LargeText:    act.LargeText,
			SmallText:    act.SmallText,
		},
	}
	if act.Start != nil {
		activity.Timestamps.StartTimestamp = act.Start.UnixNano() / 1e6
	}

	return c.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{activity},
		Status:     string(discordgo.StatusOnline),
	})
}

func (c *Client) ClearActivity() error {
	if !c.open {
		return nil
	}
	return c.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{},
		Status:     string(discordgo.StatusOnline),
	})
}

func (c *Client) Close() error {
	if !c.open {
		return nil
	}
	c.open = false
	return c.session.Close()
}
