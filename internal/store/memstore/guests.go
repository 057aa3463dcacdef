package memstore

import (
	"cmp"
	"context"
	"slices"

	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
)

type weddingStore struct{ *Store }

func (s weddingStore) AddWedding(ctx context.Context, w *entity.WeddingInsert) (int, error) {
	defer s.lock()()
	id := s.d.nextId()
	s.d.weddings[id] = entity.Wedding{Id: id, CreatedAt: s.Now(), WeddingInsert: *w}
	return id, nil
}

func (s weddingStore) GetWeddingById(ctx context.Context, id int) (*entity.Wedding, error) {
	defer s.lock()()
	w, ok := s.d.weddings[id]
	if !ok {
		return nil, gerr.NotFound("wedding", id)
	}
	return &w, nil
}

func (s weddingStore) LockWedding(ctx context.Context, id int) (*entity.Wedding, error) {
	return s.GetWeddingById(ctx, id)
}

func (s weddingStore) ListWeddings(ctx context.Context) ([]entity.Wedding, error) {
	defer s.lock()()
	return sortedValues(s.d.weddings, func(w entity.Wedding) int { return w.Id }), nil
}

type guestStore struct{ *Store }

func (s guestStore) AddGuest(ctx context.Context, weddingId int, g *entity.GuestInsert, rsvpToken string) (int, error) {
	defer s.lock()()
	if _, ok := s.d.weddings[weddingId]; !ok {
		return 0, gerr.NotFound("wedding", weddingId)
	}
	for _, other := range s.d.guests {
		if other.RSVPToken == rsvpToken {
			return 0, ErrUniqueViolation
		}
	}
	id := s.d.nextId()
	now := s.Now()
	nameKey, phoneKey := g.DuplicateKeys()
	ins := *g
	ins.DietaryRequirements = g.DietaryRequirements.Clone()
	ins.PlusOneDietary = g.PlusOneDietary.Clone()
	s.d.guests[id] = entity.Guest{
		Id:          id,
		WeddingId:   weddingId,
		State:       entity.GuestActive,
		RSVPStatus:  entity.RSVPPending,
		PartySize:   1,
		RSVPToken:   rsvpToken,
		NameKey:     nameKey,
		PhoneKey:    phoneKey,
		CreatedAt:   now,
		UpdatedAt:   now,
		GuestInsert: ins,
	}
	return id, nil
}

func (s guestStore) GetGuestById(ctx context.Context, weddingId, id int) (*entity.Guest, error) {
	defer s.lock()()
	g, ok := s.d.guests[id]
	if !ok || g.WeddingId != weddingId {
		return nil, gerr.NotFound("guest", id)
	}
	return &g, nil
}

func (s guestStore) GetGuestByToken(ctx context.Context, token string) (*entity.Guest, error) {
	defer s.lock()()
	for _, g := range s.d.guests {
		if g.RSVPToken == token && g.IsActive() {
			return &g, nil
		}
	}
	return nil, gerr.NotFound("guest", 0)
}

func (s guestStore) ListGuests(ctx context.Context, weddingId int, f entity.GuestFilter) ([]entity.Guest, error) {
	defer s.lock()()
	var out []entity.Guest
	for _, g := range s.d.guests {
		if g.WeddingId != weddingId {
			continue
		}
		if !f.IncludeInactive && !g.IsActive() {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, g.RSVPStatus) {
			continue
		}
		if len(f.Groups) > 0 && !slices.Contains(f.Groups, g.GuestGroup) {
			continue
		}
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b entity.Guest) int { return cmp.Compare(a.Id, b.Id) })
	return out, nil
}

func (s guestStore) FindByNameKey(ctx context.Context, weddingId int, nameKey string) ([]entity.Guest, error) {
	defer s.lock()()
	var out []entity.Guest
	for _, g := range s.d.guests {
		if g.WeddingId == weddingId && g.IsActive() && g.NameKey == nameKey {
			out = append(out, g)
		}
	}
	slices.SortFunc(out, func(a, b entity.Guest) int { return cmp.Compare(a.Id, b.Id) })
	return out, nil
}

func (s guestStore) UpdateGuest(ctx context.Context, weddingId, id int, g *entity.GuestInsert) error {
	defer s.lock()()
	cur, ok := s.d.guests[id]
	if !ok || cur.WeddingId != weddingId {
		return gerr.NotFound("guest", id)
	}
	ins := *g
	ins.DietaryRequirements = g.DietaryRequirements.Clone()
	ins.PlusOneDietary = g.PlusOneDietary.Clone()
	cur.GuestInsert = ins
	cur.NameKey, cur.PhoneKey = g.DuplicateKeys()
	cur.UpdatedAt = s.Now()
	s.d.guests[id] = cur
	return nil
}

func (s guestStore) SetRSVPState(ctx context.Context, weddingId, id int, st entity.GuestRSVPState) error {
	defer s.lock()()
	cur, ok := s.d.guests[id]
	if !ok || cur.WeddingId != weddingId {
		return gerr.NotFound("guest", id)
	}
	cur.RSVPStatus = st.Status
	cur.RSVPRespondedAt = st.RespondedAt
	cur.PartySize = st.PartySize
	cur.PlusOneAttending = st.PlusOneAttending
	cur.PlusOneName = st.PlusOneName
	cur.PlusOneDietary = st.PlusOneDietary.Clone()
	cur.UpdatedAt = s.Now()
	s.d.guests[id] = cur
	return nil
}

func (s guestStore) SoftDeleteGuest(ctx context.Context, weddingId, id int) error {
	defer s.lock()()
	cur, ok := s.d.guests[id]
	if !ok || cur.WeddingId != weddingId || !cur.IsActive() {
		return gerr.NotFound("guest", id)
	}
	now := s.Now()
	cur.State = entity.GuestInactive
	cur.DeletedAt = &now
	cur.UpdatedAt = now
	s.d.guests[id] = cur
	return nil
}

type responseStore struct{ *Store }

func (s responseStore) AddResponse(ctx context.Context, weddingId, guestId int, r *entity.ResponseInsert) (int, error) {
	defer s.lock()()
	if g, ok := s.d.guests[guestId]; !ok || g.WeddingId != weddingId {
		return 0, gerr.NotFound("guest", guestId)
	}
	id := s.d.nextId()
	ins := *r
	ins.PlusOneDietary = r.PlusOneDietary.Clone()
	s.d.responses[id] = entity.RSVPResponse{
		Id:             id,
		WeddingId:      weddingId,
		GuestId:        guestId,
		CreatedAt:      s.Now(),
		ResponseInsert: ins,
	}
	return id, nil
}

func (s responseStore) LatestResponse(ctx context.Context, weddingId, guestId int) (*entity.RSVPResponse, error) {
	defer s.lock()()
	var latest *entity.RSVPResponse
	for _, r := range s.d.responses {
		if r.WeddingId != weddingId || r.GuestId != guestId {
			continue
		}
		if latest == nil || r.Latest(latest) {
			r := r
			latest = &r
		}
	}
	if latest == nil {
		return nil, gerr.NotFound("rsvp response", 0)
	}
	return latest, nil
}

func (s responseStore) ListResponses(ctx context.Context, weddingId, guestId int) ([]entity.RSVPResponse, error) {
	defer s.lock()()
	var out []entity.RSVPResponse
	for _, r := range s.d.responses {
		if r.WeddingId == weddingId && r.GuestId == guestId {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b entity.RSVPResponse) int {
		switch {
		case a.Latest(&b):
			return 1
		case b.Latest(&a):
			return -1
		}
		return 0
	})
	return out, nil
}

func (s responseStore) ListLatestResponses(ctx context.Context, weddingId int) ([]entity.RSVPResponse, error) {
	defer s.lock()()
	latest := map[int]entity.RSVPResponse{}
	for _, r := range s.d.responses {
		if r.WeddingId != weddingId {
			continue
		}
		if cur, ok := latest[r.GuestId]; !ok || r.Latest(&cur) {
			latest[r.GuestId] = r
		}
	}
	return sortedValues(latest, func(r entity.RSVPResponse) int { return r.GuestId }), nil
}

func sortedValues[T any](m map[int]T, key func(T) int) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(key(a), key(b)) })
	return out
}
