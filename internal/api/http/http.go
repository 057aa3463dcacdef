package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"

	"github.com/wedsync/guestlist/internal/audit"
	"github.com/wedsync/guestlist/internal/dispatch"
	"github.com/wedsync/guestlist/internal/middleware"
	"github.com/wedsync/guestlist/internal/ratelimit"
	"github.com/wedsync/guestlist/internal/registry"
	"github.com/wedsync/guestlist/internal/rsvp"
	"github.com/wedsync/guestlist/internal/seating"
	"github.com/wedsync/guestlist/internal/transport/manual"
	"github.com/wedsync/guestlist/log"
)

// Config is the configuration for the http server
type Config struct {
	Port           string        `mapstructure:"port"`
	Address        string        `mapstructure:"address"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// RequestsPerMinute caps every client IP across the whole API.
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	TrustProxy        bool `mapstructure:"trust_proxy"`
}

// Services are the components the API exposes.
type Services struct {
	Registry   *registry.Registry
	Planner    *seating.Planner
	Collector  *rsvp.Collector
	Dispatcher *dispatch.Dispatcher
	Auditor    *audit.Auditor
	Limiter    *ratelimit.MultiKeyLimiter
	JWTAuth    *jwtauth.JWTAuth
	// Outbox holds postal and digital messages for staff. Optional.
	Outbox *manual.Outbox
	// Ping checks the storage backend for /health. Optional.
	Ping func(ctx context.Context) error
}

// Server is the http server
type Server struct {
	hs   *http.Server
	c    *Config
	s    Services
	done chan struct{}
}

// New creates a new server
func New(c *Config, s Services) *Server {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return &Server{
		c:    c,
		s:    s,
		done: make(chan struct{}),
	}
}

// Done returns a channel that is closed when the listener exits
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Router builds the handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			return isOriginAllowed(origin, s.c.AllowedOrigins)
		},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", webhookSecretHeader},
		MaxAge:         300,
	}))
	r.Use(chimw.RequestID)
	r.Use(middleware.ClientIdentifier(s.c.TrustProxy))
	r.Use(log.RequestLogger(slog.Default()))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(s.c.RequestTimeout))
	r.Use(render.SetContentType(render.ContentTypeJSON))
	if s.c.RequestsPerMinute > 0 {
		r.Use(httprate.Limit(
			s.c.RequestsPerMinute,
			time.Minute,
			httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
				return middleware.GetClientIP(r.Context()), nil
			}),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				renderErr(w, r, errRateLimited)
			}),
		))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/health", s.health)

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/rsvp/{token}", s.getInvitationByToken)
		r.Post("/rsvp/{token}", s.submitByToken)
	})

	r.Route("/api/webhooks", func(r chi.Router) {
		r.Use(s.webhookAuth)
		r.Post("/delivery", s.deliveryWebhook)
		r.Post("/sendgrid", s.sendgridWebhook)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(jwtauth.Verifier(s.s.JWTAuth))
		r.Use(s.authenticator)

		r.Post("/weddings", s.createWedding)
		r.Route("/weddings/{weddingId}", func(r chi.Router) {
			r.Use(s.weddingCtx)
			r.Get("/", s.getWedding)

			r.Get("/guests", s.listGuests)
			r.Post("/guests", s.createGuest)
			r.Post("/guests/import", s.importGuests)
			r.Route("/guests/{guestId}", func(r chi.Router) {
				r.Use(idParam("guestId", guestIdKey))
				r.Get("/", s.getGuest)
				r.Patch("/", s.updateGuest)
				r.Delete("/", s.deleteGuest)
				r.Get("/responses", s.listResponses)
				r.Post("/responses", s.submitResponse)
				r.Get("/invitations", s.listGuestInvitations)
				r.Post("/invitations", s.sendInvitation)
				r.Put("/seat", s.assignSeat)
				r.Delete("/seat", s.unassignSeat)
				r.Get("/history", s.entityHistory(entityGuest))
			})

			r.Get("/conflicts", s.listConflicts)
			r.Post("/conflicts", s.recordConflict)
			r.With(idParam("conflictId", conflictIdKey)).Delete("/conflicts/{conflictId}", s.removeConflict)

			r.Get("/tables", s.listTables)
			r.Post("/tables", s.createTable)
			r.Route("/tables/{tableId}", func(r chi.Router) {
				r.Use(idParam("tableId", tableIdKey))
				r.Patch("/", s.updateTable)
				r.Delete("/", s.deleteTable)
				r.Get("/history", s.entityHistory(entityTable))
			})

			r.Post("/seating/optimize", s.optimizeSeating)
			r.Get("/seating/conflicts", s.detectConflicts)

			r.Get("/statistics", s.statistics)
			r.Get("/invitations", s.listInvitations)
			r.Post("/reminders", s.sendReminders)
			r.Get("/outbox", s.listOutbox)
			r.Delete("/outbox/{messageId}", s.takeOutboxItem)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.s.Ping != nil {
		if err := s.s.Ping(r.Context()); err != nil {
			slog.Default().ErrorContext(r.Context(), "health check failed", slog.String("err", err.Error()))
			respond(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respond(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Start starts the server
func (s *Server) Start(ctx context.Context) error {
	listenerAddr := fmt.Sprintf("%s:%s", s.c.Address, s.c.Port)
	s.hs = &http.Server{
		Addr:              listenerAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Default().InfoContext(ctx, "guestlist listener on", slog.String("addr", "http://"+listenerAddr))
		err := s.hs.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			slog.Default().InfoContext(ctx, "http server returned")
		} else {
			slog.Default().ErrorContext(ctx, "http server exited with an error", slog.String("err", err.Error()))
		}
		close(s.done)
	}()
	return nil
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.hs == nil {
		return nil
	}
	return s.hs.Shutdown(ctx)
}

func isOriginAllowed(origin string, allowedOrigins []string) bool {
	// Always allow localhost origins
	if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "https://localhost:") {
		return true
	}
	return slices.Contains(allowedOrigins, origin)
}
