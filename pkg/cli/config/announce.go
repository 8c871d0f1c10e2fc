package config

import (
	"github.com/m-mizutani/refpost/pkg/domain/interfaces"
	"github.com/m-mizutani/refpost/pkg/infra/slack"
	"github.com/urfave/cli/v3"
)

// Announce holds the optional chat announcement configuration.
type Announce struct {
	SlackWebhookURL string `masq:"secret"`
}

// Flags returns CLI flags for announcement configuration
func (c *Announce) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook URL for push summaries",
			Destination: &c.SlackWebhookURL,
			Sources:     cli.EnvVars("REFPOST_SLACK_WEBHOOK_URL"),
		},
	}
}

// Build returns the announcer, or nil when the feature is not configured.
func (c *Announce) Build() interfaces.Announcer {
	if c.SlackWebhookURL == "" {
		return nil
	}
	return slack.New(c.SlackWebhookURL)
}
