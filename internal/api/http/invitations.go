package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
	"github.com/wedsync/guestlist/internal/transport/email"
)

const maxWebhookBody = 1 << 20

type invitationRequest struct {
	Type    entity.InvitationType `json:"type"`
	Channel entity.Channel        `json:"channel"`
}

func (ir *invitationRequest) Bind(r *http.Request) error { return nil }

type reminderRequest struct {
	entity.ReminderFilter
}

func (rr *reminderRequest) Bind(r *http.Request) error { return nil }

type deliveryRequest struct {
	entity.DeliveryEvent
}

func (dr *deliveryRequest) Bind(r *http.Request) error {
	if dr.ProviderMessageId == "" {
		return errors.New("missing provider_message_id")
	}
	return nil
}

func (s *Server) sendInvitation(w http.ResponseWriter, r *http.Request) {
	req := &invitationRequest{}
	if err := render.Bind(r, req); err != nil {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	inv, err := s.s.Dispatcher.SendInvitation(r.Context(), ctxId(r, weddingIdKey), ctxId(r, guestIdKey), req.Type, req.Channel)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, inv)
}

func (s *Server) listGuestInvitations(w http.ResponseWriter, r *http.Request) {
	s.renderInvitations(w, r, ctxId(r, guestIdKey))
}

func (s *Server) listInvitations(w http.ResponseWriter, r *http.Request) {
	s.renderInvitations(w, r, 0)
}

func (s *Server) renderInvitations(w http.ResponseWriter, r *http.Request, guestId int) {
	invs, err := s.s.Dispatcher.ListInvitations(r.Context(), ctxId(r, weddingIdKey), guestId)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	if invs == nil {
		invs = []entity.Invitation{}
	}
	respond(w, r, http.StatusOK, invs)
}

func (s *Server) sendReminders(w http.ResponseWriter, r *http.Request) {
	req := &reminderRequest{}
	if err := render.Bind(r, req); err != nil && !errors.Is(err, io.EOF) {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	report, err := s.s.Dispatcher.SendBulkReminders(r.Context(), ctxId(r, weddingIdKey), req.ReminderFilter)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, report)
}

func (s *Server) deliveryWebhook(w http.ResponseWriter, r *http.Request) {
	req := &deliveryRequest{}
	if err := render.Bind(r, req); err != nil {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	inv, err := s.s.Dispatcher.ApplyDeliveryEvent(r.Context(), &req.DeliveryEvent)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, inv)
}

// sendgridWebhook applies a batch of SendGrid events. Events for unknown
// messages or out-of-order transitions are logged and skipped so SendGrid
// does not redeliver the whole batch.
func (s *Server) sendgridWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	events, err := email.ParseEvents(body)
	if err != nil {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	applied := 0
	for i := range events {
		_, err := s.s.Dispatcher.ApplyDeliveryEvent(r.Context(), &events[i])
		switch {
		case err == nil:
			applied++
		case errors.Is(err, gerr.ErrNotFound), errors.Is(err, gerr.ErrInvalidTransition):
			slog.Default().WarnContext(r.Context(), "sendgrid event skipped",
				slog.String("message_id", events[i].ProviderMessageId),
				slog.String("status", string(events[i].Status)),
				slog.String("err", err.Error()),
			)
		default:
			renderErr(w, r, err)
			return
		}
	}
	respond(w, r, http.StatusOK, map[string]int{"received": len(events), "applied": applied})
}

// listOutbox shows the postal and digital messages waiting for staff.
func (s *Server) listOutbox(w http.ResponseWriter, r *http.Request) {
	if s.s.Outbox == nil {
		renderErr(w, r, gerr.ErrChannelUnavailable)
		return
	}
	ch := entity.Channel(r.URL.Query().Get("channel"))
	if ch != "" && !ch.Valid() {
		renderErr(w, r, gerr.Validation("channel", "unknown channel "+string(ch)))
		return
	}
	respond(w, r, http.StatusOK, s.s.Outbox.Items(ctxId(r, weddingIdKey), ch))
}

// takeOutboxItem marks a manual message as handled by removing it.
func (s *Server) takeOutboxItem(w http.ResponseWriter, r *http.Request) {
	if s.s.Outbox == nil {
		renderErr(w, r, gerr.ErrChannelUnavailable)
		return
	}
	item, ok := s.s.Outbox.Take(ctxId(r, weddingIdKey), chi.URLParam(r, "messageId"))
	if !ok {
		renderErr(w, r, gerr.NotFound("outbox message", 0))
		return
	}
	respond(w, r, http.StatusOK, item)
}
