package store

import (
	"context"
	"fmt"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
)

type weddingStore struct {
	*MYSQLStore
}

// Weddings returns an object implementing weddings interface
func (ms *MYSQLStore) Weddings() dependency.Weddings {
	return &weddingStore{
		MYSQLStore: ms,
	}
}

func (ws *weddingStore) AddWedding(ctx context.Context, w *entity.WeddingInsert) (int, error) {
	query := `
	INSERT INTO wedding
		(couple_name, event_date, rsvp_deadline, owner_subject, auto_reminders, created_at)
	VALUES
		(:coupleName, :eventDate, :rsvpDeadline, :ownerSubject, :autoReminders, :createdAt)`
	id, err := ExecNamedLastId(ctx, ws.DB(), query, map[string]any{
		"coupleName":    w.CoupleName,
		"eventDate":     w.EventDate,
		"rsvpDeadline":  w.RSVPDeadline,
		"ownerSubject":  w.OwnerSubject,
		"autoReminders": w.AutoReminders,
		"createdAt":     ws.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("can't add wedding: %w", err)
	}
	return id, nil
}

func (ws *weddingStore) GetWeddingById(ctx context.Context, id int) (*entity.Wedding, error) {
	return ws.getWedding(ctx, `SELECT * FROM wedding WHERE id = :id`, id)
}

func (ws *weddingStore) LockWedding(ctx context.Context, id int) (*entity.Wedding, error) {
	return ws.getWedding(ctx, `SELECT * FROM wedding WHERE id = :id FOR UPDATE`, id)
}

func (ws *weddingStore) getWedding(ctx context.Context, query string, id int) (*entity.Wedding, error) {
	w, err := QueryNamedOne[entity.Wedding](ctx, ws.DB(), query, map[string]any{"id": id})
	if err != nil {
		return nil, getErr("can't get wedding", err, "wedding", id)
	}
	return &w, nil
}

func (ws *weddingStore) ListWeddings(ctx context.Context) ([]entity.Wedding, error) {
	weddings, err := QueryListNamed[entity.Wedding](ctx, ws.DB(), `SELECT * FROM wedding ORDER BY id`, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("can't list weddings: %w", err)
	}
	return weddings, nil
}
