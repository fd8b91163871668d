package Alerts

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/go-pkgz/lgr"
	"google.golang.org/api/option"

	"Workforce/Models"
)

// Messenger is the part of the FCM client the notifier needs.
type Messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// TokenStore lists and prunes a user's registration tokens.
type TokenStore interface {
	FetchDeviceTokens(ctx context.Context, userID uint) ([]string, error)
	DeleteDeviceToken(ctx context.Context, value string) error
}

// InitFirebase builds a messaging client from a service account file.
func InitFirebase(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %v", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Messaging client: %v", err)
	}
	lgr.Printf("[INFO] firebase initialized")
	return client, nil
}

// PushNotifier sends reminders to every device a user registered.
type PushNotifier struct {
	client Messenger
	tokens TokenStore
}

func NewPushNotifier(client Messenger, tokens TokenStore) *PushNotifier {
	return &PushNotifier{client: client, tokens: tokens}
}

func (p *PushNotifier) Name() string { return "push" }

// Notify delivers to each token. Tokens FCM reports as unregistered are
// deleted; other failures are returned after all tokens were tried.
func (p *PushNotifier) Notify(ctx context.Context, reminder Models.Reminder) error {
	tokens, err := p.tokens.FetchDeviceTokens(ctx, reminder.User.ID)
	if err != nil {
		return err
	}

	var failed int
	var lastErr error
	for _, token := range tokens {
		_, err := p.client.Send(ctx, reminderMessage(token, reminder))
		switch {
		case err == nil:
		case messaging.IsUnregistered(err):
			lgr.Printf("[DEBUG] dropping stale device token for user %d", reminder.User.ID)
			if err := p.tokens.DeleteDeviceToken(ctx, token); err != nil {
				lgr.Printf("[WARN] could not delete device token: %v", err)
			}
		default:
			failed++
			lastErr = err
		}
	}
	if failed > 0 {
		return fmt.Errorf("push failed for %d of %d devices: %w", failed, len(tokens), lastErr)
	}
	return nil
}

func reminderMessage(token string, reminder Models.Reminder) *messaging.Message {
	ids := make([]string, 0, len(reminder.Missing))
	for _, task := range reminder.Missing {
		ids = append(ids, strconv.FormatUint(uint64(task.ID), 10))
	}
	return &messaging.Message{
		Token: token,
		Data: map[string]string{
			"type":    "report_reminder",
			"day":     reminder.Day,
			"missing": strings.Join(ids, ","),
		},
		Notification: &messaging.Notification{
			Title: reminder.Subject(),
			Body:  fmt.Sprintf("%d task(s) need a report before you can accept new work", len(reminder.Missing)),
		},
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
			Priority: "high",
		},
	}
}
