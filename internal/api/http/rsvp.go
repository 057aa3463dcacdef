package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
	"github.com/wedsync/guestlist/internal/middleware"
)

type responseRequest struct {
	entity.ResponseInsert
}

func (rr *responseRequest) Bind(r *http.Request) error { return nil }

// publicInvitation is what an RSVP link reveals about the guest.
type publicInvitation struct {
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name"`
	CoupleName       string            `json:"couple_name"`
	EventDate        *time.Time        `json:"event_date,omitempty"`
	RSVPDeadline     *time.Time        `json:"rsvp_deadline,omitempty"`
	RSVPStatus       entity.RSVPStatus `json:"rsvp_status"`
	PartySize        int               `json:"party_size"`
	PlusOneAllowed   bool              `json:"plus_one_allowed"`
	PlusOneAttending bool              `json:"plus_one_attending"`
	PlusOneName      string            `json:"plus_one_name,omitempty"`
}

func (s *Server) getInvitationByToken(w http.ResponseWriter, r *http.Request) {
	if err := s.s.Limiter.CheckLookup(middleware.GetClientIP(r.Context())); err != nil {
		renderErr(w, r, err)
		return
	}
	g, err := s.s.Collector.GuestByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		renderErr(w, r, err)
		return
	}
	if !g.IsActive() {
		renderErr(w, r, gerr.NotFound("guest", 0))
		return
	}
	wd, err := s.s.Registry.GetWedding(r.Context(), g.WeddingId)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, publicInvitation{
		FirstName:        g.FirstName,
		LastName:         g.LastName,
		CoupleName:       wd.CoupleName,
		EventDate:        wd.EventDate,
		RSVPDeadline:     wd.RSVPDeadline,
		RSVPStatus:       g.RSVPStatus,
		PartySize:        g.PartySize,
		PlusOneAllowed:   g.PlusOneAllowed,
		PlusOneAttending: g.PlusOneAttending,
		PlusOneName:      g.PlusOneName,
	})
}

// submitByToken records a response from the public form. The channel is the
// form unless the link came from a reminder (?via=reminder).
func (s *Server) submitByToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	ip := middleware.GetClientIP(r.Context())
	if err := s.s.Limiter.CheckResponse(ip, token); err != nil {
		renderErr(w, r, err)
		return
	}
	_, left := s.s.Limiter.GetResponseLimits(ip, token)
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(left))

	req := &responseRequest{}
	if err := render.Bind(r, req); err != nil {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	in := req.ResponseInsert
	in.Channel = entity.ChannelForm
	if r.URL.Query().Get("via") == "reminder" {
		in.Channel = entity.ChannelReminderLink
	}
	in.OriginAddress = ip
	in.ResponseDate = time.Time{}

	ctx := middleware.WithActor(r.Context(), "guest:"+ip)
	res, err := s.s.Collector.SubmitByToken(ctx, token, in)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, res.Guest.RSVPState())
}

// submitResponse records a response taken by staff on the guest's behalf.
func (s *Server) submitResponse(w http.ResponseWriter, r *http.Request) {
	req := &responseRequest{}
	if err := render.Bind(r, req); err != nil {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	in := req.ResponseInsert
	if in.Channel == "" {
		in.Channel = entity.ChannelStaff
	}
	in.OriginAddress = middleware.GetClientIP(r.Context())
	res, err := s.s.Collector.SubmitResponse(r.Context(), ctxId(r, weddingIdKey), ctxId(r, guestIdKey), in)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, res)
}

func (s *Server) listResponses(w http.ResponseWriter, r *http.Request) {
	list, err := s.s.Collector.ListResponses(r.Context(), ctxId(r, weddingIdKey), ctxId(r, guestIdKey))
	if err != nil {
		renderErr(w, r, err)
		return
	}
	if list == nil {
		list = []entity.RSVPResponse{}
	}
	respond(w, r, http.StatusOK, list)
}

func (s *Server) statistics(w http.ResponseWriter, r *http.Request) {
	st, err := s.s.Collector.GetStatistics(r.Context(), ctxId(r, weddingIdKey))
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, st)
}
