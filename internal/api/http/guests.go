package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"github.com/wedsync/guestlist/internal/auth/jwt"
	"github.com/wedsync/guestlist/internal/entity"
	"github.com/wedsync/guestlist/internal/registry"
)

type weddingRequest struct {
	entity.WeddingInsert
}

func (wr *weddingRequest) Bind(r *http.Request) error { return nil }

type guestRequest struct {
	entity.GuestInsert
}

func (gr *guestRequest) Bind(r *http.Request) error { return nil }

type guestPatchRequest struct {
	entity.GuestPatch
}

func (gp *guestPatchRequest) Bind(r *http.Request) error { return nil }

type importRequest struct {
	Rows []entity.GuestInsert `json:"rows"`
	registry.ImportOptions
}

func (ir *importRequest) Bind(r *http.Request) error {
	if len(ir.Rows) == 0 {
		return errors.New("no rows to import")
	}
	return nil
}

type conflictRequest struct {
	GuestAId int    `json:"guest_a_id"`
	GuestBId int    `json:"guest_b_id"`
	Reason   string `json:"reason"`
}

func (cr *conflictRequest) Bind(r *http.Request) error { return nil }

// createWedding is reserved to staff, who then mint tokens for the couple
// and planners of the new wedding.
func (s *Server) createWedding(w http.ResponseWriter, r *http.Request) {
	if c := claimsFrom(r.Context()); c == nil || c.Role != jwt.RoleStaff {
		renderErr(w, r, errForbidden)
		return
	}
	req := &weddingRequest{}
	if err := render.Bind(r, req); err != nil {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	if req.OwnerSubject == "" {
		req.OwnerSubject = claimsFrom(r.Context()).Subject
	}
	wd, err := s.s.Registry.CreateWedding(r.Context(), req.WeddingInsert)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, wd)
}

func (s *Server) getWedding(w http.ResponseWriter, r *http.Request) {
	wd, err := s.s.Registry.GetWedding(r.Context(), ctxId(r, weddingIdKey))
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, wd)
}

// guestFilter reads ?status=confirmed,declined&group=family&include_inactive=true.
func guestFilter(r *http.Request) entity.GuestFilter {
	q := r.URL.Query()
	f := entity.GuestFilter{}
	for _, s := range splitList(q.Get("status")) {
		f.Statuses = append(f.Statuses, entity.RSVPStatus(s))
	}
	f.Groups = splitList(q.Get("group"))
	f.IncludeInactive, _ = strconv.ParseBool(q.Get("include_inactive"))
	return f
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) listGuests(w http.ResponseWriter, r *http.Request) {
	guests, err := s.s.Registry.ListGuests(r.Context(), ctxId(r, weddingIdKey), guestFilter(r))
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, guests)
}

func (s *Server) createGuest(w http.ResponseWriter, r *http.Request) {
	req := &guestRequest{}
	if err := render.Bind(r, req); err != nil {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	res, err := s.s.Registry.CreateGuest(r.Context(), ctxId(r, weddingIdKey), req.GuestInsert)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, res)
}

func (s *Server) importGuests(w http.ResponseWriter, r *http.Request) {
	req := &importRequest{}
	if err := render.Bind(r, req); err != nil {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	report, err := s.s.Registry.BulkImport(r.Context(), ctxId(r, weddingIdKey), req.Rows, req.ImportOptions)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, report)
}

func (s *Server) getGuest(w http.ResponseWriter, r *http.Request) {
	g, err := s.s.Registry.GetGuest(r.Context(), ctxId(r, weddingIdKey), ctxId(r, guestIdKey))
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, g)
}

func (s *Server) updateGuest(w http.ResponseWriter, r *http.Request) {
	req := &guestPatchRequest{}
	if err := render.Bind(r, req); err != nil {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	g, err := s.s.Registry.UpdateGuest(r.Context(), ctxId(r, weddingIdKey), ctxId(r, guestIdKey), req.GuestPatch)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, g)
}

func (s *Server) deleteGuest(w http.ResponseWriter, r *http.Request) {
	if err := s.s.Registry.DeleteGuest(r.Context(), ctxId(r, weddingIdKey), ctxId(r, guestIdKey)); err != nil {
		renderErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listConflicts(w http.ResponseWriter, r *http.Request) {
	list, err := s.s.Registry.ListConflicts(r.Context(), ctxId(r, weddingIdKey))
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}

func (s *Server) recordConflict(w http.ResponseWriter, r *http.Request) {
	req := &conflictRequest{}
	if err := render.Bind(r, req); err != nil {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	c, err := s.s.Registry.RecordConflict(r.Context(), ctxId(r, weddingIdKey), req.GuestAId, req.GuestBId, req.Reason)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, c)
}

func (s *Server) removeConflict(w http.ResponseWriter, r *http.Request) {
	if err := s.s.Registry.RemoveConflict(r.Context(), ctxId(r, weddingIdKey), ctxId(r, conflictIdKey)); err != nil {
		renderErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type historyTarget struct {
	typ entity.EntityType
	key ctxKey
}

var (
	entityGuest = historyTarget{typ: entity.EntityGuest, key: guestIdKey}
	entityTable = historyTarget{typ: entity.EntityTable, key: tableIdKey}
)

// entityHistory lists the change log of one guest or table, oldest first.
func (s *Server) entityHistory(t historyTarget) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := entity.EntityRef{WeddingId: ctxId(r, weddingIdKey), Type: t.typ, Id: ctxId(r, t.key)}
		entries, err := s.s.Auditor.Collect(r.Context(), ref)
		if err != nil {
			renderErr(w, r, err)
			return
		}
		if entries == nil {
			entries = []entity.ChangeLogEntry{}
		}
		respond(w, r, http.StatusOK, entries)
	}
}
