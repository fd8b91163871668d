package Slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"Workforce/Models"
)

// Poster is the slice of the slack client used for outgoing messages.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Notifier posts reminders to one shared channel.
type Notifier struct {
	api     Poster
	channel string
}

func NewNotifier(api Poster, channel string) *Notifier {
	return &Notifier{api: api, channel: channel}
}

func (n *Notifier) Name() string { return "slack" }

func (n *Notifier) Notify(ctx context.Context, reminder Models.Reminder) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(fmt.Sprintf("*%s*\n%s", reminder.Subject(), reminder.Text()), false),
	)
	if err != nil {
		return fmt.Errorf("error posting to slack: %w", err)
	}
	return nil
}
