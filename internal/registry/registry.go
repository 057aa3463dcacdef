// Package registry owns the canonical guest records of a wedding.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
	"github.com/wedsync/guestlist/internal/seating"
)

// Duplicate match keys. A guest is a likely duplicate when the folded name
// matches and so does any one of the configured keys.
const (
	MatchEmail = "email"
	MatchPhone = "phone"
)

type Config struct {
	DuplicateMatch []string `mapstructure:"duplicate_match"`
	ImportWorkers  int      `mapstructure:"import_workers"`
}

func DefaultConfig() Config {
	return Config{
		DuplicateMatch: []string{MatchEmail, MatchPhone},
		ImportWorkers:  8,
	}
}

type Registry struct {
	repo     dependency.Repository
	auditor  dependency.Auditor
	c        Config
	newToken func() string
}

func New(repo dependency.Repository, auditor dependency.Auditor, c Config) *Registry {
	if c.ImportWorkers <= 0 {
		c.ImportWorkers = DefaultConfig().ImportWorkers
	}
	return &Registry{
		repo:     repo,
		auditor:  auditor,
		c:        c,
		newToken: uuid.NewString,
	}
}

func (r *Registry) CreateWedding(ctx context.Context, w entity.WeddingInsert) (*entity.Wedding, error) {
	if err := entity.ValidateWeddingInsert(&w); err != nil {
		return nil, err
	}
	var out *entity.Wedding
	err := r.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		id, err := rep.Weddings().AddWedding(ctx, &w)
		if err != nil {
			return err
		}
		out, err = rep.Weddings().GetWeddingById(ctx, id)
		if err != nil {
			return err
		}
		return r.auditor.Log(ctx, rep, entity.Changes(
			entity.EntityRef{WeddingId: id, Type: entity.EntityWedding, Id: id},
			entity.ChangeCreate, "", "",
			[]entity.FieldChange{{Field: "couple_name", New: w.CoupleName}},
		)...)
	})
	if err != nil {
		return nil, gerr.Storage("create wedding", err)
	}
	return out, nil
}

func (r *Registry) GetWedding(ctx context.Context, id int) (*entity.Wedding, error) {
	w, err := r.repo.Weddings().GetWeddingById(ctx, id)
	if err != nil {
		return nil, gerr.Storage("get wedding", err)
	}
	return w, nil
}

// CreateResult carries the new guest and, when the registry already holds
// guests that look the same, an advisory duplicate report.
type CreateResult struct {
	Guest      *entity.Guest             `json:"guest"`
	Duplicates *gerr.DuplicateGuestError `json:"duplicates,omitempty"`
}

// CreateGuest validates and stores a new guest. Likely duplicates are
// reported but never block creation.
func (r *Registry) CreateGuest(ctx context.Context, weddingId int, in entity.GuestInsert) (*CreateResult, error) {
	entity.NormalizeGuestInsert(&in)
	if err := entity.ValidateGuestInsert(&in); err != nil {
		return nil, err
	}
	var res *CreateResult
	err := r.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		var err error
		res, err = r.createGuest(ctx, rep, weddingId, &in, false)
		return err
	})
	if err != nil {
		return nil, gerr.Storage("create guest", err)
	}
	return res, nil
}

// createGuest runs inside a transaction. The wedding row is locked first so
// that concurrent creations of the same person see each other.
func (r *Registry) createGuest(ctx context.Context, rep dependency.Repository, weddingId int, in *entity.GuestInsert, skipDuplicates bool) (*CreateResult, error) {
	if _, err := rep.Weddings().LockWedding(ctx, weddingId); err != nil {
		return nil, err
	}
	dups, err := r.findDuplicates(ctx, rep, weddingId, in)
	if err != nil {
		return nil, err
	}
	if dups != nil && skipDuplicates {
		return &CreateResult{Duplicates: dups}, nil
	}

	id, err := rep.Guests().AddGuest(ctx, weddingId, in, r.newToken())
	if err != nil {
		return nil, err
	}
	g, err := rep.Guests().GetGuestById(ctx, weddingId, id)
	if err != nil {
		return nil, err
	}
	ref := entity.EntityRef{WeddingId: weddingId, Type: entity.EntityGuest, Id: id}
	changes := entity.DiffGuestInsert(entity.GuestInsert{}, g.GuestInsert)
	if err := r.auditor.Log(ctx, rep, entity.Changes(ref, entity.ChangeCreate, "", "", changes)...); err != nil {
		return nil, err
	}
	return &CreateResult{Guest: g, Duplicates: dups}, nil
}

func (r *Registry) findDuplicates(ctx context.Context, rep dependency.Repository, weddingId int, in *entity.GuestInsert) (*gerr.DuplicateGuestError, error) {
	if len(r.c.DuplicateMatch) == 0 {
		return nil, nil
	}
	nameKey, phoneKey := in.DuplicateKeys()
	candidates, err := rep.Guests().FindByNameKey(ctx, weddingId, nameKey)
	if err != nil {
		return nil, err
	}
	var (
		ids     []int
		matched []string
	)
	for _, c := range candidates {
		on := ""
		switch {
		case slices.Contains(r.c.DuplicateMatch, MatchEmail) && in.Email != "" && c.Email == in.Email:
			on = "name+email"
		case slices.Contains(r.c.DuplicateMatch, MatchPhone) && phoneKey != "" && c.PhoneKey == phoneKey:
			on = "name+phone"
		default:
			continue
		}
		ids = append(ids, c.Id)
		if !slices.Contains(matched, on) {
			matched = append(matched, on)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return &gerr.DuplicateGuestError{GuestIds: ids, MatchedOn: strings.Join(matched, ",")}, nil
}

// GetGuest returns an active guest of the wedding.
func (r *Registry) GetGuest(ctx context.Context, weddingId, guestId int) (*entity.Guest, error) {
	g, err := activeGuest(ctx, r.repo, weddingId, guestId)
	if err != nil {
		return nil, gerr.Storage("get guest", err)
	}
	return g, nil
}

func (r *Registry) ListGuests(ctx context.Context, weddingId int, f entity.GuestFilter) ([]entity.Guest, error) {
	if _, err := r.repo.Weddings().GetWeddingById(ctx, weddingId); err != nil {
		return nil, gerr.Storage("list guests", err)
	}
	guests, err := r.repo.Guests().ListGuests(ctx, weddingId, f)
	if err != nil {
		return nil, gerr.Storage("list guests", err)
	}
	return guests, nil
}

// UpdateGuest applies only the fields present in p and logs one entry per
// field that actually changed.
func (r *Registry) UpdateGuest(ctx context.Context, weddingId, guestId int, p entity.GuestPatch) (*entity.Guest, error) {
	var out *entity.Guest
	err := r.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		g, err := activeGuest(ctx, rep, weddingId, guestId)
		if err != nil {
			return err
		}
		next, changes := entity.ApplyPatch(g.GuestInsert, p)
		if err := entity.ValidateGuestInsert(&next); err != nil {
			return err
		}
		if len(changes) == 0 {
			out = g
			return nil
		}
		if err := rep.Guests().UpdateGuest(ctx, weddingId, guestId, &next); err != nil {
			return err
		}
		ref := entity.EntityRef{WeddingId: weddingId, Type: entity.EntityGuest, Id: guestId}
		entries := entity.Changes(ref, entity.ChangeUpdate, "", "", changes)

		// Withdrawing the plus-one allowance also withdraws an attending plus-one.
		if !next.PlusOneAllowed && g.PlusOneAttending {
			st := g.RSVPState()
			st.PlusOneAttending = false
			st.PlusOneName = ""
			st.PlusOneDietary = nil
			st.PartySize = max(1, st.PartySize-1)
			if err := rep.Guests().SetRSVPState(ctx, weddingId, guestId, st); err != nil {
				return err
			}
			entries = append(entries, entity.Changes(ref, entity.ChangeRSVP, "", "plus-one allowance withdrawn", []entity.FieldChange{
				{Field: "plus_one_attending", Old: "true", New: "false"},
				{Field: "party_size", Old: fmt.Sprint(g.PartySize), New: fmt.Sprint(st.PartySize)},
			})...)
		}
		if err := r.auditor.Log(ctx, rep, entries...); err != nil {
			return err
		}
		out, err = rep.Guests().GetGuestById(ctx, weddingId, guestId)
		return err
	})
	if err != nil {
		return nil, gerr.Storage("update guest", err)
	}
	return out, nil
}

// DeleteGuest soft deletes a guest. Responses and log entries stay; the
// seating assignment, if any, is released.
func (r *Registry) DeleteGuest(ctx context.Context, weddingId, guestId int) error {
	err := r.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		if _, err := activeGuest(ctx, rep, weddingId, guestId); err != nil {
			return err
		}
		if err := rep.Guests().SoftDeleteGuest(ctx, weddingId, guestId); err != nil {
			return err
		}
		ref := entity.EntityRef{WeddingId: weddingId, Type: entity.EntityGuest, Id: guestId}
		entries := entity.Changes(ref, entity.ChangeDelete, "", "", []entity.FieldChange{
			{Field: "state", Old: string(entity.GuestActive), New: string(entity.GuestInactive)},
		})
		released, err := seating.ReleaseSeat(ctx, rep, weddingId, guestId, "guest removed")
		if err != nil {
			return err
		}
		return r.auditor.Log(ctx, rep, append(entries, released...)...)
	})
	if err != nil {
		return gerr.Storage("delete guest", err)
	}
	return nil
}

func activeGuest(ctx context.Context, rep dependency.Repository, weddingId, guestId int) (*entity.Guest, error) {
	g, err := rep.Guests().GetGuestById(ctx, weddingId, guestId)
	if err != nil {
		return nil, err
	}
	if !g.IsActive() {
		return nil, gerr.NotFound("guest", guestId)
	}
	return g, nil
}

func logFailure(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	args := []any{slog.String("err", err.Error())}
	for _, a := range attrs {
		args = append(args, a)
	}
	slog.Default().ErrorContext(ctx, msg, args...)
}
