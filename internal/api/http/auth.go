package httpapi

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wedsync/guestlist/internal/auth/jwt"
	gerr "github.com/wedsync/guestlist/internal/errors"
	"github.com/wedsync/guestlist/internal/middleware"
)

const webhookSecretHeader = "X-Webhook-Secret"

type ctxKey int

const (
	claimsKey ctxKey = iota
	weddingIdKey
	guestIdKey
	tableIdKey
	conflictIdKey
)

// authenticator requires a valid token and records its subject as the actor
// of every change made by the request.
func (s *Server) authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := jwt.FromContext(r.Context())
		if err != nil {
			renderErr(w, r, fmt.Errorf("%w: %w", gerr.ErrUnauthorized, err))
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		ctx = middleware.WithActor(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(ctx context.Context) *jwt.Claims {
	c, _ := ctx.Value(claimsKey).(*jwt.Claims)
	return c
}

// weddingCtx scopes the request to one wedding. A wedding the caller may not
// reach is reported exactly like one that does not exist.
func (s *Server) weddingCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "weddingId"))
		if err != nil || id <= 0 {
			renderErr(w, r, gerr.NotFound("wedding", 0))
			return
		}
		if c := claimsFrom(r.Context()); c == nil || !c.CanAccess(id) {
			renderErr(w, r, gerr.NotFound("wedding", id))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), weddingIdKey, id)))
	})
}

// idParam parses the numeric URL parameter name into the context under key.
func idParam(name string, key ctxKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := strconv.Atoi(chi.URLParam(r, name))
			if err != nil || id <= 0 {
				renderErr(w, r, gerr.Validation(name, "must be a positive integer"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), key, id)))
		})
	}
}

func ctxId(r *http.Request, key ctxKey) int {
	id, _ := r.Context().Value(key).(int)
	return id
}

func (s *Server) webhookAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(webhookSecretHeader)
		if s.c.WebhookSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.c.WebhookSecret)) != 1 {
			renderErr(w, r, gerr.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithActor(r.Context(), "webhook")))
	})
}
