package Slack

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-pkgz/lgr"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"Workforce/Models"
	"Workforce/ReportingGate"
)

// Workflow answers the read-only questions the chat commands support.
type Workflow interface {
	FetchUserByEmail(ctx context.Context, email string) (*Models.User, error)
	FetchTasks(ctx context.Context, actorID uint) ([]Models.Task, error)
	GateStatus(ctx context.Context, userID uint) (ReportingGate.Result, error)
}

const helpText = "Commands:\n" +
	"`!gate <email>` shows whether a user is blocked by missing reports\n" +
	"`!tasks <email>` lists a user's open tasks"

// ProcessCommand handles one "!" command and returns the reply text.
func ProcessCommand(ctx context.Context, text string, workflow Workflow) (string, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	command := strings.ToLower(fields[0])
	if command == "!help" {
		return helpText, nil
	}
	if command != "!gate" && command != "!tasks" {
		return fmt.Sprintf("Unknown command %s\n%s", fields[0], helpText), nil
	}
	if len(fields) < 2 {
		return fmt.Sprintf("Usage: %s <email>", command), nil
	}

	// Slack wraps addresses as <mailto:a@b.c|a@b.c>.
	email := strings.Trim(fields[1], "<>")
	if i := strings.Index(email, "|"); i >= 0 {
		email = email[i+1:]
	}
	user, err := workflow.FetchUserByEmail(ctx, email)
	if errors.Is(err, Models.ErrRecordNotFound) {
		return fmt.Sprintf("No user with email %s", email), nil
	}
	if err != nil {
		return "", err
	}

	if command == "!gate" {
		result, err := workflow.GateStatus(ctx, user.ID)
		if err != nil {
			return "", err
		}
		if !result.Locked {
			return fmt.Sprintf("%s is clear: every task has a report for %s.", user.Name, result.Yesterday), nil
		}
		return Models.Reminder{User: *user, Day: result.Yesterday, Missing: result.Missing}.Text(), nil
	}

	tasks, err := workflow.FetchTasks(ctx, user.ID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Open tasks for %s:\n", user.Name)
	open := 0
	for _, task := range tasks {
		if task.AssigneeID != user.ID || task.Status == Models.StatusCompleted {
			continue
		}
		open++
		fmt.Fprintf(&b, "- #%d %s (%s)\n", task.ID, task.Title, task.Status)
	}
	if open == 0 {
		return fmt.Sprintf("%s has no open tasks.", user.Name), nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// Listener answers chat commands in one channel over socket mode.
type Listener struct {
	api      *slack.Client
	socket   *socketmode.Client
	channel  string
	workflow Workflow
}

func NewListener(botToken, appToken, channel string, workflow Workflow) *Listener {
	api := slack.New(
		botToken,
		slack.OptionAppLevelToken(appToken),
		slack.OptionDebug(false),
	)
	return &Listener{
		api:      api,
		socket:   socketmode.New(api),
		channel:  channel,
		workflow: workflow,
	}
}

// Client exposes the web API client so the reminder notifier can share it.
func (l *Listener) Client() *slack.Client { return l.api }

// Run blocks until ctx is cancelled or the connection fails.
func (l *Listener) Run(ctx context.Context) error {
	go func() {
		for envelope := range l.socket.Events {
			if envelope.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			eventsAPIEvent, ok := envelope.Data.(slackevents.EventsAPIEvent)
			if !ok {
				lgr.Printf("[DEBUG] unexpected slack event type: %s", envelope.Type)
				continue
			}
			l.socket.Ack(*envelope.Request)

			if eventsAPIEvent.Type != slackevents.CallbackEvent {
				continue
			}
			ev, ok := eventsAPIEvent.InnerEvent.Data.(*slackevents.MessageEvent)
			if !ok || ev.BotID != "" || ev.Channel != l.channel || !strings.HasPrefix(ev.Text, "!") {
				continue
			}
			l.reply(ctx, ev)
		}
	}()

	lgr.Printf("[INFO] starting slack command listener on %s", l.channel)
	return l.socket.RunContext(ctx)
}

func (l *Listener) reply(ctx context.Context, ev *slackevents.MessageEvent) {
	response, err := ProcessCommand(ctx, ev.Text, l.workflow)
	if err != nil {
		lgr.Printf("[WARN] slack command %q failed: %v", ev.Text, err)
		response = "Something went wrong, try again later."
	}
	if response == "" {
		return
	}
	if _, _, err := l.api.PostMessageContext(ctx, ev.Channel, slack.MsgOptionText(response, false)); err != nil {
		lgr.Printf("[WARN] error sending slack response: %v", err)
	}
}
