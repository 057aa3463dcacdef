package store

import (
	"context"
	"fmt"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
)

type responseStore struct {
	*MYSQLStore
}

// Responses returns an object implementing responses interface
func (ms *MYSQLStore) Responses() dependency.Responses {
	return &responseStore{
		MYSQLStore: ms,
	}
}

func (rs *responseStore) AddResponse(ctx context.Context, weddingId, guestId int, r *entity.ResponseInsert) (int, error) {
	query := `
	INSERT INTO rsvp_response
		(wedding_id, guest_id, response_type, guest_count, plus_one_attending, plus_one_name, plus_one_dietary,
		dietary_notes, song_request, special_requests, needs_accommodation, needs_transport, response_date,
		channel, origin_address, created_at)
	VALUES
		(:weddingId, :guestId, :responseType, :guestCount, :plusOneAttending, :plusOneName, :plusOneDietary,
		:dietaryNotes, :songRequest, :specialRequests, :needsAccommodation, :needsTransport, :responseDate,
		:channel, :originAddress, :createdAt)`
	id, err := ExecNamedLastId(ctx, rs.DB(), query, map[string]any{
		"weddingId":          weddingId,
		"guestId":            guestId,
		"responseType":       r.ResponseType,
		"guestCount":         r.GuestCount,
		"plusOneAttending":   r.PlusOneAttending,
		"plusOneName":        r.PlusOneName,
		"plusOneDietary":     r.PlusOneDietary,
		"dietaryNotes":       r.DietaryNotes,
		"songRequest":        r.SongRequest,
		"specialRequests":    r.SpecialRequests,
		"needsAccommodation": r.NeedsAccommodation,
		"needsTransport":     r.NeedsTransport,
		"responseDate":       r.ResponseDate,
		"channel":            r.Channel,
		"originAddress":      r.OriginAddress,
		"createdAt":          rs.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("can't add rsvp response: %w", err)
	}
	return id, nil
}

func (rs *responseStore) LatestResponse(ctx context.Context, weddingId, guestId int) (*entity.RSVPResponse, error) {
	query := `
	SELECT * FROM rsvp_response
	WHERE wedding_id = :weddingId AND guest_id = :guestId
	ORDER BY response_date DESC, id DESC
	LIMIT 1`
	r, err := QueryNamedOne[entity.RSVPResponse](ctx, rs.DB(), query, map[string]any{
		"weddingId": weddingId,
		"guestId":   guestId,
	})
	if err != nil {
		return nil, getErr("can't get latest response", err, "rsvp response", 0)
	}
	return &r, nil
}

func (rs *responseStore) ListResponses(ctx context.Context, weddingId, guestId int) ([]entity.RSVPResponse, error) {
	query := `
	SELECT * FROM rsvp_response
	WHERE wedding_id = :weddingId AND guest_id = :guestId
	ORDER BY response_date, id`
	list, err := QueryListNamed[entity.RSVPResponse](ctx, rs.DB(), query, map[string]any{
		"weddingId": weddingId,
		"guestId":   guestId,
	})
	if err != nil {
		return nil, fmt.Errorf("can't list responses: %w", err)
	}
	return list, nil
}

func (rs *responseStore) ListLatestResponses(ctx context.Context, weddingId int) ([]entity.RSVPResponse, error) {
	query := `
	SELECT r.* FROM rsvp_response r
	WHERE r.wedding_id = :weddingId AND NOT EXISTS (
		SELECT 1 FROM rsvp_response n
		WHERE n.guest_id = r.guest_id
		AND (n.response_date > r.response_date OR (n.response_date = r.response_date AND n.id > r.id))
	)
	ORDER BY r.guest_id`
	list, err := QueryListNamed[entity.RSVPResponse](ctx, rs.DB(), query, map[string]any{
		"weddingId": weddingId,
	})
	if err != nil {
		return nil, fmt.Errorf("can't list latest responses: %w", err)
	}
	return list, nil
}
