package slack

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/refpost/pkg/domain/interfaces"
	"github.com/slack-go/slack"
)

type announcer struct {
	webhookURL string
}

// New creates an announcer posting summaries to a Slack incoming webhook.
func New(webhookURL string) interfaces.Announcer {
	return &announcer{webhookURL: webhookURL}
}

func (a *announcer) Announce(ctx context.Context, text string) error {
	msg := &slack.WebhookMessage{Text: text}
	if err := slack.PostWebhookContext(ctx, a.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post slack webhook")
	}
	return nil
}
