package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-pkgz/lgr"

	"Workforce/Alerts"
	"Workforce/Config"
	"Workforce/Controllers"
	"Workforce/CronJobs"
	"Workforce/FiberConfig"
	"Workforce/Lifecycle"
	"Workforce/Models"
	"Workforce/Slack"
	"Workforce/Store"
	"Workforce/Telegram"
	"Workforce/email"
	"Workforce/middleware"
)

func main() {
	cfg, err := Config.Load()
	if err != nil {
		lgr.Fatalf("[ERROR] %v", err)
	}
	setupLogging(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := Models.Connect(cfg.Database)
	if err != nil {
		lgr.Fatalf("[ERROR] %v", err)
	}
	store := Store.New(db)

	if err := seedAccounts(ctx, cfg.SeedFile, store); err != nil {
		lgr.Fatalf("[ERROR] seeding accounts: %v", err)
	}

	service := Lifecycle.NewService(store, Lifecycle.WithLocation(cfg.Location))

	requestLog := middleware.DefaultLogConfig()
	requestLog.Console = cfg.Debug
	requestLog.LogFilePath = cfg.RequestLogFile
	if err := os.MkdirAll(filepath.Dir(cfg.RequestLogFile), 0o755); err != nil {
		lgr.Printf("[WARN] request log disabled: %v", err)
		requestLog.LogFilePath = ""
	}

	app := FiberConfig.NewApp(FiberConfig.Dependencies{
		Service:    service,
		Store:      store,
		Auth:       middleware.NewAuthenticator(cfg.JWTSecret, store),
		RequestLog: requestLog,
		Location:   cfg.Location,
	})

	scheduler := CronJobs.NewReminderScheduler(cfg.ReminderSchedule, cfg.ReminderHour, cfg.Location,
		store, service, notifiers(ctx, cfg, store, service))
	if err := scheduler.Start(ctx); err != nil {
		lgr.Fatalf("[ERROR] %v", err)
	}
	defer scheduler.Stop()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down")
		if err := app.Shutdown(); err != nil {
			lgr.Printf("[WARN] shutdown: %v", err)
		}
	}()

	lgr.Printf("[INFO] listening on %s", cfg.ListenAddr)
	if err := app.Listen(cfg.ListenAddr); err != nil {
		lgr.Printf("[ERROR] server stopped: %v", err)
	}
}

func setupLogging(debug bool) {
	opts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if debug {
		opts = append(opts, lgr.Debug, lgr.CallerFile)
	}
	lgr.Setup(opts...)
}

func seedAccounts(ctx context.Context, path string, store *Store.Store) error {
	seed, err := Config.LoadSeed(path)
	if err != nil {
		return err
	}
	accounts := make([]*Models.User, 0, len(seed.Users))
	for _, u := range seed.Users {
		account, err := Controllers.NewAccount(u.Name, u.Email, u.Password, u.Role)
		if err != nil {
			return err
		}
		if u.Team != "" {
			team := u.Team
			account.Team = &team
		}
		account.ManageAttendance = u.CanManageAttendance
		accounts = append(accounts, account)
	}
	return Controllers.SeedAccounts(ctx, store, accounts)
}

// slackWorkflow answers chat commands from the store and the lifecycle
// service.
type slackWorkflow struct {
	*Lifecycle.Service
	users *Store.Store
}

func (w slackWorkflow) FetchUserByEmail(ctx context.Context, email string) (*Models.User, error) {
	return w.users.FetchUserByEmail(ctx, email)
}

// notifiers builds every reminder channel that has credentials configured.
func notifiers(ctx context.Context, cfg Config.Config, store *Store.Store, service *Lifecycle.Service) []CronJobs.Notifier {
	var result []CronJobs.Notifier

	if cfg.SlackToken != "" && cfg.SlackChannelID != "" {
		listener := Slack.NewListener(cfg.SlackToken, cfg.SlackAppToken, cfg.SlackChannelID, slackWorkflow{Service: service, users: store})
		result = append(result, Slack.NewNotifier(listener.Client(), cfg.SlackChannelID))
		if cfg.SlackAppToken != "" {
			go func() {
				if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					lgr.Printf("[WARN] slack listener stopped: %v", err)
				}
			}()
		}
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		bot, err := Telegram.NewBot(cfg.TelegramToken)
		if err != nil {
			lgr.Printf("[WARN] telegram reminders disabled: %v", err)
		} else {
			result = append(result, Telegram.NewNotifier(bot, cfg.TelegramChatID))
		}
	}

	if cfg.Email.Enabled() {
		result = append(result, email.NewNotifier(cfg.Email))
	}

	if cfg.FirebaseCredentials != "" {
		client, err := Alerts.InitFirebase(ctx, cfg.FirebaseCredentials)
		if err != nil {
			lgr.Printf("[WARN] push reminders disabled: %v", err)
		} else {
			result = append(result, Alerts.NewPushNotifier(client, store))
		}
	}

	if len(result) == 0 {
		lgr.Printf("[WARN] no reminder channels configured, reminders will only be logged")
	}
	return result
}
