package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
)

type guestStore struct {
	*MYSQLStore
}

// Guests returns an object implementing guests interface
func (ms *MYSQLStore) Guests() dependency.Guests {
	return &guestStore{
		MYSQLStore: ms,
	}
}

func guestParams(g *entity.GuestInsert) map[string]any {
	nameKey, phoneKey := g.DuplicateKeys()
	return map[string]any{
		"nameKey":             nameKey,
		"phoneKey":            phoneKey,
		"firstName":           g.FirstName,
		"lastName":            g.LastName,
		"email":               g.Email,
		"phone":               g.Phone,
		"address":             g.Address,
		"guestGroup":          g.GuestGroup,
		"relationship":        g.Relationship,
		"dietaryRequirements": g.DietaryRequirements,
		"accessibilityNeeds":  g.AccessibilityNeeds,
		"plusOneAllowed":      g.PlusOneAllowed,
		"plusOneName":         g.PlusOneName,
		"plusOneDietary":      g.PlusOneDietary,
	}
}

func (gs *guestStore) AddGuest(ctx context.Context, weddingId int, g *entity.GuestInsert, rsvpToken string) (int, error) {
	query := `
	INSERT INTO guest
		(wedding_id, state, rsvp_status, party_size, plus_one_attending, rsvp_token, name_key, phone_key,
		first_name, last_name, email, phone, address, guest_group, relationship, dietary_requirements,
		accessibility_needs, plus_one_allowed, plus_one_name, plus_one_dietary, created_at, updated_at)
	VALUES
		(:weddingId, :state, :rsvpStatus, 1, false, :rsvpToken, :nameKey, :phoneKey,
		:firstName, :lastName, :email, :phone, :address, :guestGroup, :relationship, :dietaryRequirements,
		:accessibilityNeeds, :plusOneAllowed, :plusOneName, :plusOneDietary, :now, :now)`
	params := guestParams(g)
	params["weddingId"] = weddingId
	params["state"] = entity.GuestActive
	params["rsvpStatus"] = entity.RSVPPending
	params["rsvpToken"] = rsvpToken
	params["now"] = gs.Now()

	id, err := ExecNamedLastId(ctx, gs.DB(), query, params)
	if err != nil {
		return 0, fmt.Errorf("can't add guest: %w", err)
	}
	return id, nil
}

func (gs *guestStore) GetGuestById(ctx context.Context, weddingId, id int) (*entity.Guest, error) {
	query := `SELECT * FROM guest WHERE id = :id AND wedding_id = :weddingId`
	g, err := QueryNamedOne[entity.Guest](ctx, gs.DB(), query, map[string]any{
		"id":        id,
		"weddingId": weddingId,
	})
	if err != nil {
		return nil, getErr("can't get guest", err, "guest", id)
	}
	return &g, nil
}

func (gs *guestStore) GetGuestByToken(ctx context.Context, token string) (*entity.Guest, error) {
	query := `SELECT * FROM guest WHERE rsvp_token = :token AND state = 'active'`
	g, err := QueryNamedOne[entity.Guest](ctx, gs.DB(), query, map[string]any{"token": token})
	if err != nil {
		return nil, getErr("can't get guest by token", err, "guest", 0)
	}
	return &g, nil
}

func (gs *guestStore) ListGuests(ctx context.Context, weddingId int, f entity.GuestFilter) ([]entity.Guest, error) {
	where := []string{"wedding_id = :weddingId"}
	params := map[string]any{"weddingId": weddingId}
	if !f.IncludeInactive {
		where = append(where, "state = 'active'")
	}
	if len(f.Statuses) > 0 {
		where = append(where, "rsvp_status IN (:statuses)")
		params["statuses"] = f.Statuses
	}
	if len(f.Groups) > 0 {
		where = append(where, "guest_group IN (:groups)")
		params["groups"] = f.Groups
	}
	query := fmt.Sprintf(`SELECT * FROM guest WHERE %s ORDER BY id`, strings.Join(where, " AND "))

	guests, err := QueryListNamed[entity.Guest](ctx, gs.DB(), query, params)
	if err != nil {
		return nil, fmt.Errorf("can't list guests: %w", err)
	}
	return guests, nil
}

func (gs *guestStore) FindByNameKey(ctx context.Context, weddingId int, nameKey string) ([]entity.Guest, error) {
	query := `
	SELECT * FROM guest
	WHERE wedding_id = :weddingId AND name_key = :nameKey AND state = 'active'
	ORDER BY id`
	guests, err := QueryListNamed[entity.Guest](ctx, gs.DB(), query, map[string]any{
		"weddingId": weddingId,
		"nameKey":   nameKey,
	})
	if err != nil {
		return nil, fmt.Errorf("can't find guests by name: %w", err)
	}
	return guests, nil
}

func (gs *guestStore) UpdateGuest(ctx context.Context, weddingId, id int, g *entity.GuestInsert) error {
	query := `
	UPDATE guest SET
		name_key = :nameKey,
		phone_key = :phoneKey,
		first_name = :firstName,
		last_name = :lastName,
		email = :email,
		phone = :phone,
		address = :address,
		guest_group = :guestGroup,
		relationship = :relationship,
		dietary_requirements = :dietaryRequirements,
		accessibility_needs = :accessibilityNeeds,
		plus_one_allowed = :plusOneAllowed,
		plus_one_name = :plusOneName,
		plus_one_dietary = :plusOneDietary,
		updated_at = :now
	WHERE id = :id AND wedding_id = :weddingId`
	params := guestParams(g)
	params["id"] = id
	params["weddingId"] = weddingId
	params["now"] = gs.Now()
	if err := ExecNamed(ctx, gs.DB(), query, params); err != nil {
		return fmt.Errorf("can't update guest: %w", err)
	}
	return nil
}

func (gs *guestStore) SetRSVPState(ctx context.Context, weddingId, id int, st entity.GuestRSVPState) error {
	query := `
	UPDATE guest SET
		rsvp_status = :status,
		rsvp_responded_at = :respondedAt,
		party_size = :partySize,
		plus_one_attending = :plusOneAttending,
		plus_one_name = :plusOneName,
		plus_one_dietary = :plusOneDietary,
		updated_at = :now
	WHERE id = :id AND wedding_id = :weddingId`
	err := ExecNamed(ctx, gs.DB(), query, map[string]any{
		"status":           st.Status,
		"respondedAt":      st.RespondedAt,
		"partySize":        st.PartySize,
		"plusOneAttending": st.PlusOneAttending,
		"plusOneName":      st.PlusOneName,
		"plusOneDietary":   st.PlusOneDietary,
		"now":              gs.Now(),
		"id":               id,
		"weddingId":        weddingId,
	})
	if err != nil {
		return fmt.Errorf("can't set guest rsvp state: %w", err)
	}
	return nil
}

func (gs *guestStore) SoftDeleteGuest(ctx context.Context, weddingId, id int) error {
	query := `
	UPDATE guest SET state = 'inactive', deleted_at = :now, updated_at = :now
	WHERE id = :id AND wedding_id = :weddingId AND state = 'active'`
	res, err := ExecNamedResult(ctx, gs.DB(), query, map[string]any{
		"now":       gs.Now(),
		"id":        id,
		"weddingId": weddingId,
	})
	if err != nil {
		return fmt.Errorf("can't delete guest: %w", err)
	}
	return affected(res, "guest", id)
}
