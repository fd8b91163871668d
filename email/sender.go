package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"net/smtp"
	"sort"
	"strings"

	"Workforce/Models"
)

// buildMessage renders headers and body. Header order is fixed so the output
// is stable.
func buildMessage(config Models.EmailConfig, message Models.EmailMessage) []byte {
	headers := map[string]string{
		"From":    fmt.Sprintf("%s <%s>", config.FromName, config.FromEmail),
		"To":      strings.Join(message.To, ", "),
		"Subject": message.Subject,
	}
	if len(message.CC) > 0 {
		headers["Cc"] = strings.Join(message.CC, ", ")
	}
	if message.IsHTML {
		headers["MIME-Version"] = "1.0"
		headers["Content-Type"] = "text/html; charset=UTF-8"
	} else {
		headers["Content-Type"] = "text/plain; charset=UTF-8"
	}

	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var body strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&body, "%s: %s\r\n", key, headers[key])
	}
	body.WriteString("\r\n")
	body.WriteString(message.Body)
	return []byte(body.String())
}

// SendEmail sends an email using the provided configuration and message details
func SendEmail(config Models.EmailConfig, message Models.EmailMessage) error {
	data := buildMessage(config, message)
	auth := smtp.PlainAuth("", config.Username, config.Password, config.SMTPServer)
	recipients := append(append([]string{}, message.To...), message.CC...)
	serverAddr := fmt.Sprintf("%s:%d", config.SMTPServer, config.SMTPPort)

	if !config.TLSEnabled {
		return smtp.SendMail(serverAddr, auth, config.FromEmail, recipients, data)
	}

	conn, err := tls.Dial("tcp", serverAddr, &tls.Config{
		ServerName:         config.SMTPServer,
		InsecureSkipVerify: config.SkipTLSCheck,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %v", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, config.SMTPServer)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %v", err)
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %v", err)
	}
	if err = client.Mail(config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %v", err)
	}
	for _, recipient := range recipients {
		if err = client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to add recipient %s: %v", recipient, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data connection: %v", err)
	}
	if _, err = w.Write(data); err != nil {
		return fmt.Errorf("failed to write email body: %v", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data connection: %v", err)
	}
	return client.Quit()
}

// Notifier emails reminders to the user's address.
type Notifier struct {
	Config Models.EmailConfig
	send   func(Models.EmailConfig, Models.EmailMessage) error
}

func NewNotifier(config Models.EmailConfig) *Notifier {
	return &Notifier{Config: config, send: SendEmail}
}

func (n *Notifier) Name() string { return "email" }

func (n *Notifier) Notify(_ context.Context, reminder Models.Reminder) error {
	if reminder.User.Email == "" {
		return nil
	}
	return n.send(n.Config, ReminderMessage(reminder))
}

// ReminderMessage renders a reminder as a small HTML email.
func ReminderMessage(reminder Models.Reminder) Models.EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(reminder.User.Name))
	fmt.Fprintf(&b, "<p>You have not filed a daily report for <b>%s</b> on:</p><ul>", reminder.Day)
	for _, task := range reminder.Missing {
		fmt.Fprintf(&b, "<li>#%d %s</li>", task.ID, html.EscapeString(task.Title))
	}
	b.WriteString("</ul><p>New tasks stay locked until these reports are submitted.</p>")

	return Models.EmailMessage{
		To:      []string{reminder.User.Email},
		Subject: reminder.Subject(),
		Body:    b.String(),
		IsHTML:  true,
	}
}
