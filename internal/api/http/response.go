package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	gerr "github.com/wedsync/guestlist/internal/errors"
)

// ErrResponse is the body of every failed request.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string `json:"status"`          // user-level status message
	ErrorText  string `json:"error,omitempty"` // application-level error message
	Field      string `json:"field,omitempty"`
	Details    any    `json:"details,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

var (
	errRateLimited = errors.New("too many requests")
	errForbidden   = errors.New("forbidden")
)

// errResponse maps an error returned by a service onto its HTTP status.
// Storage failures are logged and reported without their cause.
func errResponse(r *http.Request, err error) *ErrResponse {
	resp := &ErrResponse{Err: err, ErrorText: err.Error()}

	var (
		verr *gerr.ValidationError
		cerr *gerr.CapacityExceededError
	)
	switch {
	case errors.As(err, &verr):
		resp.HTTPStatusCode = http.StatusBadRequest
		resp.Field = verr.Field
		resp.ErrorText = verr.Message
	case errors.Is(err, gerr.ErrNotFound):
		resp.HTTPStatusCode = http.StatusNotFound
	case errors.As(err, &cerr):
		resp.HTTPStatusCode = http.StatusConflict
		resp.Details = cerr
	case errors.Is(err, gerr.ErrTableOccupied), errors.Is(err, gerr.ErrInvalidTransition):
		resp.HTTPStatusCode = http.StatusConflict
	case errors.Is(err, gerr.ErrChannelUnavailable):
		resp.HTTPStatusCode = http.StatusBadRequest
	case errors.Is(err, gerr.ErrRateLimited), errors.Is(err, errRateLimited):
		resp.HTTPStatusCode = http.StatusTooManyRequests
	case errors.Is(err, gerr.ErrTransport):
		resp.HTTPStatusCode = http.StatusBadGateway
	case errors.Is(err, gerr.ErrUnauthorized):
		resp.HTTPStatusCode = http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		resp.HTTPStatusCode = http.StatusForbidden
	default:
		slog.Default().ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("err", err.Error()),
		)
		resp.HTTPStatusCode = http.StatusInternalServerError
		resp.ErrorText = ""
	}
	resp.StatusText = http.StatusText(resp.HTTPStatusCode)
	return resp
}

func renderErr(w http.ResponseWriter, r *http.Request, err error) {
	render.Render(w, r, errResponse(r, err))
}

func errInvalidRequest(err error) error {
	return gerr.Validation("", "invalid request: "+err.Error())
}

func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
