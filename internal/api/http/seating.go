package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"github.com/wedsync/guestlist/internal/entity"
	"github.com/wedsync/guestlist/internal/seating"
)

type tableRequest struct {
	entity.TableInsert
}

func (tr *tableRequest) Bind(r *http.Request) error { return nil }

type tablePatchRequest struct {
	entity.TablePatch
}

func (tp *tablePatchRequest) Bind(r *http.Request) error { return nil }

type seatRequest struct {
	TableId int `json:"table_id"`
	seating.AssignOptions
}

func (sr *seatRequest) Bind(r *http.Request) error {
	if sr.TableId <= 0 {
		return errors.New("missing table_id")
	}
	return nil
}

func (s *Server) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.s.Planner.ListTables(r.Context(), ctxId(r, weddingIdKey))
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, tables)
}

func (s *Server) createTable(w http.ResponseWriter, r *http.Request) {
	req := &tableRequest{}
	if err := render.Bind(r, req); err != nil {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	t, err := s.s.Planner.CreateTable(r.Context(), ctxId(r, weddingIdKey), req.TableInsert)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, t)
}

func (s *Server) updateTable(w http.ResponseWriter, r *http.Request) {
	req := &tablePatchRequest{}
	if err := render.Bind(r, req); err != nil {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	t, err := s.s.Planner.UpdateTable(r.Context(), ctxId(r, weddingIdKey), ctxId(r, tableIdKey), req.TablePatch)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, t)
}

func (s *Server) deleteTable(w http.ResponseWriter, r *http.Request) {
	if err := s.s.Planner.DeleteTable(r.Context(), ctxId(r, weddingIdKey), ctxId(r, tableIdKey)); err != nil {
		renderErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) assignSeat(w http.ResponseWriter, r *http.Request) {
	req := &seatRequest{}
	if err := render.Bind(r, req); err != nil {
		renderErr(w, r, errInvalidRequest(err))
		return
	}
	res, err := s.s.Planner.AssignSeat(r.Context(), ctxId(r, weddingIdKey), ctxId(r, guestIdKey), req.TableId, req.AssignOptions)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, res)
}

func (s *Server) unassignSeat(w http.ResponseWriter, r *http.Request) {
	if err := s.s.Planner.UnassignSeat(r.Context(), ctxId(r, weddingIdKey), ctxId(r, guestIdKey)); err != nil {
		renderErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// optimizeSeating proposes a plan; ?apply=true also writes it.
func (s *Server) optimizeSeating(w http.ResponseWriter, r *http.Request) {
	apply, _ := strconv.ParseBool(r.URL.Query().Get("apply"))
	plan, err := s.s.Planner.OptimizeSeating(r.Context(), ctxId(r, weddingIdKey), apply)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, plan)
}

func (s *Server) detectConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts, err := s.s.Planner.DetectConflicts(r.Context(), ctxId(r, weddingIdKey))
	if err != nil {
		renderErr(w, r, err)
		return
	}
	if conflicts == nil {
		conflicts = []entity.SeatingConflict{}
	}
	respond(w, r, http.StatusOK, conflicts)
}
