package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
)

type invitationStore struct {
	*MYSQLStore
}

// Invitations returns an object implementing invitations interface
func (ms *MYSQLStore) Invitations() dependency.Invitations {
	return &invitationStore{
		MYSQLStore: ms,
	}
}

func (is *invitationStore) AddInvitation(ctx context.Context, inv *entity.Invitation) (int, error) {
	query := `
	INSERT INTO invitation
		(wedding_id, guest_id, type, channel, status, recipient, provider_message_id, error_msg, created_at, updated_at)
	VALUES
		(:weddingId, :guestId, :type, :channel, :status, :recipient, :providerMessageId, :errorMsg, :now, :now)`
	id, err := ExecNamedLastId(ctx, is.DB(), query, map[string]any{
		"weddingId":         inv.WeddingId,
		"guestId":           inv.GuestId,
		"type":              inv.Type,
		"channel":           inv.Channel,
		"status":            inv.Status,
		"recipient":         inv.Recipient,
		"providerMessageId": inv.ProviderMessageId,
		"errorMsg":          inv.ErrorMsg,
		"now":               is.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("can't add invitation: %w", err)
	}
	return id, nil
}

func (is *invitationStore) UpdateInvitation(ctx context.Context, inv *entity.Invitation) error {
	query := `
	UPDATE invitation SET
		status = :status,
		provider_message_id = :providerMessageId,
		error_msg = :errorMsg,
		sent_at = :sentAt,
		delivered_at = :deliveredAt,
		opened_at = :openedAt,
		responded_at = :respondedAt,
		updated_at = :now
	WHERE id = :id AND wedding_id = :weddingId`
	err := ExecNamed(ctx, is.DB(), query, map[string]any{
		"status":            inv.Status,
		"providerMessageId": inv.ProviderMessageId,
		"errorMsg":          inv.ErrorMsg,
		"sentAt":            inv.SentAt,
		"deliveredAt":       inv.DeliveredAt,
		"openedAt":          inv.OpenedAt,
		"respondedAt":       inv.RespondedAt,
		"now":               is.Now(),
		"id":                inv.Id,
		"weddingId":         inv.WeddingId,
	})
	if err != nil {
		return fmt.Errorf("can't update invitation: %w", err)
	}
	return nil
}

func (is *invitationStore) GetInvitationById(ctx context.Context, weddingId, id int) (*entity.Invitation, error) {
	query := `SELECT * FROM invitation WHERE id = :id AND wedding_id = :weddingId`
	inv, err := QueryNamedOne[entity.Invitation](ctx, is.DB(), query, map[string]any{
		"id":        id,
		"weddingId": weddingId,
	})
	if err != nil {
		return nil, getErr("can't get invitation", err, "invitation", id)
	}
	return &inv, nil
}

func (is *invitationStore) GetInvitationByProviderId(ctx context.Context, providerMessageId string) (*entity.Invitation, error) {
	query := `SELECT * FROM invitation WHERE provider_message_id = :pid ORDER BY id DESC LIMIT 1`
	inv, err := QueryNamedOne[entity.Invitation](ctx, is.DB(), query, map[string]any{"pid": providerMessageId})
	if err != nil {
		return nil, getErr("can't get invitation by provider id", err, "invitation", 0)
	}
	return &inv, nil
}

func (is *invitationStore) ListInvitations(ctx context.Context, weddingId, guestId int) ([]entity.Invitation, error) {
	query := `SELECT * FROM invitation WHERE wedding_id = :weddingId ORDER BY id`
	params := map[string]any{"weddingId": weddingId}
	if guestId != 0 {
		query = `SELECT * FROM invitation WHERE wedding_id = :weddingId AND guest_id = :guestId ORDER BY id`
		params["guestId"] = guestId
	}
	list, err := QueryListNamed[entity.Invitation](ctx, is.DB(), query, params)
	if err != nil {
		return nil, fmt.Errorf("can't list invitations: %w", err)
	}
	return list, nil
}

type reminderCount struct {
	GuestId int `db:"guest_id"`
	Count   int `db:"n"`
}

func (is *invitationStore) CountReminders(ctx context.Context, weddingId int) (map[int]int, error) {
	query := `
	SELECT guest_id, COUNT(*) AS n FROM invitation
	WHERE wedding_id = :weddingId AND type = 'rsvp_reminder' AND status <> 'draft'
	GROUP BY guest_id`
	rows, err := QueryListNamed[reminderCount](ctx, is.DB(), query, map[string]any{"weddingId": weddingId})
	if err != nil {
		return nil, fmt.Errorf("can't count reminders: %w", err)
	}
	out := make(map[int]int, len(rows))
	for _, r := range rows {
		out[r.GuestId] = r.Count
	}
	return out, nil
}

func (is *invitationStore) LastReminderAt(ctx context.Context, weddingId int) (*time.Time, error) {
	query := `
	SELECT MAX(created_at) FROM invitation
	WHERE wedding_id = ? AND type = 'rsvp_reminder' AND status <> 'draft'`
	var last sql.NullTime
	if err := is.DB().GetContext(ctx, &last, query, weddingId); err != nil {
		return nil, fmt.Errorf("can't get last reminder time: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}
