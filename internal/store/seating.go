package store

import (
	"context"
	"fmt"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
)

type seatingStore struct {
	*MYSQLStore
}

// Seating returns an object implementing seating interface
func (ms *MYSQLStore) Seating() dependency.Seating {
	return &seatingStore{
		MYSQLStore: ms,
	}
}

func (ss *seatingStore) AddAssignment(ctx context.Context, a *entity.SeatingAssignment) (int, error) {
	query := `
	INSERT INTO seating_assignment
		(wedding_id, guest_id, table_id, seat_number, seats_held, preferences, assigned_by, assigned_at)
	VALUES
		(:weddingId, :guestId, :tableId, :seatNumber, :seatsHeld, :preferences, :assignedBy, :assignedAt)`
	id, err := ExecNamedLastId(ctx, ss.DB(), query, map[string]any{
		"weddingId":   a.WeddingId,
		"guestId":     a.GuestId,
		"tableId":     a.TableId,
		"seatNumber":  a.SeatNumber,
		"seatsHeld":   a.SeatsHeld,
		"preferences": a.Preferences,
		"assignedBy":  a.AssignedBy,
		"assignedAt":  a.AssignedAt,
	})
	if err != nil {
		return 0, fmt.Errorf("can't add seating assignment: %w", err)
	}
	return id, nil
}

func (ss *seatingStore) GetAssignmentByGuest(ctx context.Context, weddingId, guestId int) (*entity.SeatingAssignment, error) {
	query := `SELECT * FROM seating_assignment WHERE wedding_id = :weddingId AND guest_id = :guestId`
	a, err := QueryNamedOne[entity.SeatingAssignment](ctx, ss.DB(), query, map[string]any{
		"weddingId": weddingId,
		"guestId":   guestId,
	})
	if err != nil {
		return nil, getErr("can't get seating assignment", err, "seating assignment", 0)
	}
	return &a, nil
}

func (ss *seatingStore) DeleteAssignment(ctx context.Context, weddingId, id int) error {
	res, err := ExecNamedResult(ctx, ss.DB(), `DELETE FROM seating_assignment WHERE id = :id AND wedding_id = :weddingId`, map[string]any{
		"id":        id,
		"weddingId": weddingId,
	})
	if err != nil {
		return fmt.Errorf("can't delete seating assignment: %w", err)
	}
	return affected(res, "seating assignment", id)
}

const seatedQuery = `
	SELECT sa.*, g.party_size
	FROM seating_assignment sa
	JOIN guest g ON g.id = sa.guest_id
	WHERE sa.wedding_id = :weddingId`

func (ss *seatingStore) ListSeated(ctx context.Context, weddingId int) ([]entity.SeatedGuest, error) {
	list, err := QueryListNamed[entity.SeatedGuest](ctx, ss.DB(), seatedQuery+` ORDER BY sa.table_id, sa.id`, map[string]any{
		"weddingId": weddingId,
	})
	if err != nil {
		return nil, fmt.Errorf("can't list seated guests: %w", err)
	}
	return list, nil
}

func (ss *seatingStore) ListSeatedAtTable(ctx context.Context, weddingId, tableId int) ([]entity.SeatedGuest, error) {
	list, err := QueryListNamed[entity.SeatedGuest](ctx, ss.DB(), seatedQuery+` AND sa.table_id = :tableId ORDER BY sa.id`, map[string]any{
		"weddingId": weddingId,
		"tableId":   tableId,
	})
	if err != nil {
		return nil, fmt.Errorf("can't list seated guests at table: %w", err)
	}
	return list, nil
}
