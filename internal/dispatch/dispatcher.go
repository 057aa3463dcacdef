// Package dispatch sends invitations through the configured messaging
// transports and tracks their delivery state.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
)

type Config struct {
	ReminderLimit int    `mapstructure:"reminder_limit"`
	RSVPBaseURL   string `mapstructure:"rsvp_base_url"`
}

func DefaultConfig() Config {
	return Config{
		ReminderLimit: 3,
		RSVPBaseURL:   "http://localhost:8081/rsvp",
	}
}

type Dispatcher struct {
	repo       dependency.Repository
	auditor    dependency.Auditor
	transports map[entity.Channel]dependency.Transport
	templates  map[entity.InvitationType]*template.Template
	c          Config
}

var _ dependency.Dispatcher = (*Dispatcher)(nil)

// New returns a Dispatcher. A channel without a transport rejects every
// invitation sent through it with ErrChannelUnavailable.
func New(repo dependency.Repository, auditor dependency.Auditor, transports map[entity.Channel]dependency.Transport, c Config) (*Dispatcher, error) {
	tmpls, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if c.ReminderLimit <= 0 {
		c.ReminderLimit = DefaultConfig().ReminderLimit
	}
	return &Dispatcher{
		repo:       repo,
		auditor:    auditor,
		transports: transports,
		templates:  tmpls,
		c:          c,
	}, nil
}

func invitationRef(inv *entity.Invitation) entity.EntityRef {
	return entity.EntityRef{WeddingId: inv.WeddingId, Type: entity.EntityInvitation, Id: inv.Id}
}

// recipient picks the guest's address for ch. An empty result means the
// guest cannot be reached on that channel.
func (d *Dispatcher) recipient(ch entity.Channel, g *entity.Guest) string {
	switch ch {
	case entity.ChannelEmail:
		return g.Email
	case entity.ChannelSMS:
		return g.Phone
	case entity.ChannelPostal:
		return g.Address
	case entity.ChannelDigital:
		return d.rsvpLink(g)
	}
	return ""
}

// SendInvitation renders and sends one invitation. The draft is stored
// before the transport is called, and the outcome of the call is stored
// afterwards, so a crash in between leaves a visible draft. A transport
// rejection leaves the invitation failed and is returned as ErrTransport.
func (d *Dispatcher) SendInvitation(ctx context.Context, weddingId, guestId int, t entity.InvitationType, ch entity.Channel) (*entity.Invitation, error) {
	if !t.Valid() {
		return nil, gerr.Validation("type", fmt.Sprintf("unknown invitation type %q", t))
	}
	if !ch.Valid() {
		return nil, gerr.Validation("channel", fmt.Sprintf("unknown channel %q", ch))
	}
	transport, ok := d.transports[ch]
	if !ok || transport == nil {
		return nil, fmt.Errorf("%w: %s", gerr.ErrChannelUnavailable, ch)
	}

	inv, msg, err := d.draft(ctx, weddingId, guestId, t, ch)
	if err != nil {
		return nil, gerr.Storage("send invitation", err)
	}
	return d.deliver(ctx, transport, inv, msg)
}

func (d *Dispatcher) draft(ctx context.Context, weddingId, guestId int, t entity.InvitationType, ch entity.Channel) (*entity.Invitation, *entity.OutboundMessage, error) {
	var (
		inv *entity.Invitation
		msg *entity.OutboundMessage
	)
	err := d.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		w, err := rep.Weddings().GetWeddingById(ctx, weddingId)
		if err != nil {
			return err
		}
		g, err := rep.Guests().GetGuestById(ctx, weddingId, guestId)
		if err != nil {
			return err
		}
		if !g.IsActive() {
			return gerr.NotFound("guest", guestId)
		}
		to := d.recipient(ch, g)
		if to == "" {
			return gerr.Validation("channel", fmt.Sprintf("guest has no %s contact", ch))
		}
		subject, body, err := d.render(t, w, g)
		if err != nil {
			return err
		}

		inv = &entity.Invitation{
			WeddingId: weddingId,
			GuestId:   guestId,
			Type:      t,
			Channel:   ch,
			Status:    entity.InvitationDraft,
			Recipient: to,
		}
		inv.Id, err = rep.Invitations().AddInvitation(ctx, inv)
		if err != nil {
			return err
		}
		msg = &entity.OutboundMessage{
			WeddingId:    weddingId,
			InvitationId: inv.Id,
			Channel:      ch,
			Recipient:    to,
			Subject:      subject,
			Body:         body,
		}
		return d.auditor.Log(ctx, rep, entity.Changes(invitationRef(inv), entity.ChangeCreate, "", string(t),
			[]entity.FieldChange{
				{Field: "status", New: string(entity.InvitationDraft)},
				{Field: "channel", New: string(ch)},
			})...)
	})
	if err != nil {
		return nil, nil, err
	}
	return inv, msg, nil
}

func (d *Dispatcher) deliver(ctx context.Context, transport dependency.Transport, inv *entity.Invitation, msg *entity.OutboundMessage) (*entity.Invitation, error) {
	providerId, sendErr := transport.Send(ctx, msg)
	if sendErr != nil {
		slog.Default().ErrorContext(ctx, "can't send invitation",
			slog.Int("invitation_id", inv.Id),
			slog.String("channel", string(inv.Channel)),
			slog.String("err", sendErr.Error()),
		)
	}

	var out *entity.Invitation
	err := d.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		cur, err := rep.Invitations().GetInvitationById(ctx, inv.WeddingId, inv.Id)
		if err != nil {
			return err
		}
		now := rep.Now()
		reason := ""
		if sendErr != nil {
			cur.ErrorMsg = sendErr.Error()
			cur.Stamp(entity.InvitationFailed, now)
			reason = cur.ErrorMsg
		} else {
			cur.ProviderMessageId = providerId
			cur.Stamp(entity.InvitationSent, now)
		}
		if err := rep.Invitations().UpdateInvitation(ctx, cur); err != nil {
			return err
		}
		out = cur
		return d.auditor.Log(ctx, rep, entity.Changes(invitationRef(cur), entity.ChangeUpdate, "", reason,
			[]entity.FieldChange{{Field: "status", Old: string(entity.InvitationDraft), New: string(cur.Status)}})...)
	})
	if err != nil {
		return nil, gerr.Storage("record invitation delivery", err)
	}
	if sendErr != nil {
		return out, fmt.Errorf("%w: %w", gerr.ErrTransport, sendErr)
	}
	return out, nil
}

// ApplyDeliveryEvent moves the invitation a provider reported on. Events that
// repeat the current status are ignored, since providers redeliver webhooks.
func (d *Dispatcher) ApplyDeliveryEvent(ctx context.Context, ev *entity.DeliveryEvent) (*entity.Invitation, error) {
	if ev.ProviderMessageId == "" {
		return nil, gerr.Validation("provider_message_id", "missing provider message id")
	}
	var out *entity.Invitation
	err := d.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
		inv, err := rep.Invitations().GetInvitationByProviderId(ctx, ev.ProviderMessageId)
		if err != nil {
			return err
		}
		out = inv
		if inv.Status == ev.Status {
			return nil
		}
		return d.transition(ctx, rep, inv, ev.Status, ev.Reason, ev.OccurredAt)
	})
	if err != nil {
		return nil, gerr.Storage("apply delivery event", err)
	}
	return out, nil
}

func (d *Dispatcher) transition(ctx context.Context, rep dependency.Repository, inv *entity.Invitation, to entity.InvitationStatus, reason string, at time.Time) error {
	from := inv.Status
	if from.Terminal() {
		return fmt.Errorf("%w: %s is final", gerr.ErrInvalidTransition, from)
	}
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", gerr.ErrInvalidTransition, from, to)
	}
	if at.IsZero() {
		at = rep.Now()
	}
	inv.Stamp(to, at.UTC())
	if to == entity.InvitationBounced || to == entity.InvitationFailed {
		inv.ErrorMsg = reason
	}
	if err := rep.Invitations().UpdateInvitation(ctx, inv); err != nil {
		return err
	}
	return d.auditor.Log(ctx, rep, entity.Changes(invitationRef(inv), entity.ChangeUpdate, "", reason,
		[]entity.FieldChange{{Field: "status", Old: string(from), New: string(to)}})...)
}

// MarkResponded moves the guest's most recent opened invitation to
// responded. It runs inside the caller's transaction.
func (d *Dispatcher) MarkResponded(ctx context.Context, rep dependency.Repository, weddingId, guestId int) error {
	invs, err := rep.Invitations().ListInvitations(ctx, weddingId, guestId)
	if err != nil {
		return err
	}
	for i := len(invs) - 1; i >= 0; i-- {
		if invs[i].Status != entity.InvitationOpened {
			continue
		}
		err := d.transition(ctx, rep, &invs[i], entity.InvitationResponded, "rsvp received", rep.Now())
		if errors.Is(err, gerr.ErrInvalidTransition) {
			return nil
		}
		return err
	}
	return nil
}

// ListInvitations returns the invitations of a guest, or of the whole
// wedding when guestId is 0.
func (d *Dispatcher) ListInvitations(ctx context.Context, weddingId, guestId int) ([]entity.Invitation, error) {
	if _, err := d.repo.Weddings().GetWeddingById(ctx, weddingId); err != nil {
		return nil, gerr.Storage("list invitations", err)
	}
	invs, err := d.repo.Invitations().ListInvitations(ctx, weddingId, guestId)
	if err != nil {
		return nil, gerr.Storage("list invitations", err)
	}
	return invs, nil
}
