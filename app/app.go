package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wedsync/guestlist/config"
	httpapi "github.com/wedsync/guestlist/internal/api/http"
	"github.com/wedsync/guestlist/internal/audit"
	"github.com/wedsync/guestlist/internal/auth/jwt"
	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/dispatch"
	"github.com/wedsync/guestlist/internal/entity"
	"github.com/wedsync/guestlist/internal/ratelimit"
	"github.com/wedsync/guestlist/internal/registry"
	"github.com/wedsync/guestlist/internal/reminder"
	"github.com/wedsync/guestlist/internal/rsvp"
	"github.com/wedsync/guestlist/internal/seating"
	"github.com/wedsync/guestlist/internal/store"
	"github.com/wedsync/guestlist/internal/store/memstore"
	"github.com/wedsync/guestlist/internal/transport/email"
	"github.com/wedsync/guestlist/internal/transport/manual"
	"github.com/wedsync/guestlist/internal/transport/whatsapp"
)

// App is the main application
type App struct {
	hs       *httpapi.Server
	db       dependency.Repository
	reminder *reminder.Worker
	wa       *whatsapp.Transport
	outbox   *manual.Outbox
	c        *config.Config
	done     chan struct{}
}

// New returns a new instance of App
func New(c *config.Config) *App {
	return &App{
		c:    c,
		done: make(chan struct{}),
	}
}

// Start starts the app
func (a *App) Start(ctx context.Context) error {
	var err error
	slog.Default().InfoContext(ctx, "starting guestlist")

	a.db, err = newRepository(ctx, a.c)
	if err != nil {
		slog.Default().ErrorContext(ctx, "couldn't open storage", slog.String("err", err.Error()))
		return err
	}

	jwtAuth, _, err := jwt.New(&a.c.Auth)
	if err != nil {
		slog.Default().ErrorContext(ctx, "failed to create jwt auth", slog.String("err", err.Error()))
		return err
	}

	auditor := audit.New(a.db, a.c.Audit)

	transports, err := a.transports(ctx)
	if err != nil {
		slog.Default().ErrorContext(ctx, "failed to create transports", slog.String("err", err.Error()))
		return err
	}

	dispatcher, err := dispatch.New(a.db, auditor, transports, a.c.Dispatch)
	if err != nil {
		slog.Default().ErrorContext(ctx, "failed to create dispatcher", slog.String("err", err.Error()))
		return err
	}
	collector := rsvp.New(a.db, auditor, dispatcher)

	if a.wa != nil {
		a.wa.SetDeliveryHandler(func(ctx context.Context, ev *entity.DeliveryEvent) error {
			_, err := dispatcher.ApplyDeliveryEvent(ctx, ev)
			return err
		})
		go func() {
			if err := a.wa.Connect(ctx); err != nil {
				slog.Default().ErrorContext(ctx, "can't connect whatsapp", slog.String("err", err.Error()))
			}
		}()
	}

	a.reminder = reminder.New(&a.c.Reminder, a.db, collector, dispatcher)
	if err := a.reminder.Start(ctx); err != nil {
		slog.Default().ErrorContext(ctx, "failed to start reminder worker", slog.String("err", err.Error()))
		return err
	}

	var ping func(context.Context) error
	if ms, ok := a.db.(*store.MYSQLStore); ok {
		ping = ms.Ping
	}

	a.hs = httpapi.New(&a.c.HTTP, httpapi.Services{
		Registry:   registry.New(a.db, auditor, a.c.Registry),
		Planner:    seating.New(a.db, auditor),
		Collector:  collector,
		Dispatcher: dispatcher,
		Auditor:    auditor,
		Limiter:    ratelimit.NewMultiKeyLimiter(a.c.RateLimit),
		JWTAuth:    jwtAuth,
		Outbox:     a.outbox,
		Ping:       ping,
	})
	if err = a.hs.Start(ctx); err != nil {
		slog.Default().ErrorContext(ctx, "cannot start http server", slog.String("err", err.Error()))
		return err
	}

	return nil
}

func newRepository(ctx context.Context, c *config.Config) (dependency.Repository, error) {
	switch c.Storage.Driver {
	case config.StorageMemory:
		slog.Default().WarnContext(ctx, "using in-memory storage, data is lost on exit")
		return memstore.New(), nil
	default:
		ms, err := store.New(ctx, c.DB)
		if err != nil {
			return nil, err
		}
		return ms, nil
	}
}

// transports maps every channel to the transport that delivers it. Email
// and sms are only available when configured. Postal and digital
// invitations go to the manual outbox for a person to hand out.
func (a *App) transports(ctx context.Context) (map[entity.Channel]dependency.Transport, error) {
	a.outbox = manual.New()
	ts := map[entity.Channel]dependency.Transport{
		entity.ChannelPostal:  a.outbox,
		entity.ChannelDigital: a.outbox,
	}

	if a.c.Mailer.APIKey != "" {
		et, err := email.New(&a.c.Mailer)
		if err != nil {
			return nil, fmt.Errorf("email: %w", err)
		}
		ts[entity.ChannelEmail] = et
	} else {
		slog.Default().WarnContext(ctx, "sendgrid api key is not set, email channel disabled")
	}

	if a.c.WhatsApp.Enabled {
		wa, err := whatsapp.New(ctx, &a.c.WhatsApp)
		if err != nil {
			return nil, fmt.Errorf("whatsapp: %w", err)
		}
		a.wa = wa
		ts[entity.ChannelSMS] = wa
	}
	return ts, nil
}

// Stop stops the application and waits for all services to exit
func (a *App) Stop(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if a.hs != nil {
		if err := a.hs.Stop(ctx); err != nil {
			slog.Default().ErrorContext(ctx, "http server shutdown failed", slog.String("err", err.Error()))
		}
	}
	if a.reminder != nil {
		_ = a.reminder.Stop()
	}
	if a.wa != nil {
		a.wa.Disconnect()
	}
	if a.db != nil {
		a.db.Close()
	}
	close(a.done)
}

// Done returns a channel that is closed after the application has exited
func (a *App) Done() chan struct{} {
	return a.done
}
