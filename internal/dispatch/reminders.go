package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
)

const (
	reasonLimitReached = "reminder limit reached"
	reasonUnreachable  = "no reachable channel"
)

// SendBulkReminders sends one rsvp_reminder to every active guest still
// owing an answer, unless the guest already received the configured number
// of reminders. Failures are reported per guest and never retried.
func (d *Dispatcher) SendBulkReminders(ctx context.Context, weddingId int, f entity.ReminderFilter) (*entity.ReminderReport, error) {
	if f.Channel != "" && !f.Channel.Valid() {
		return nil, gerr.Validation("channel", fmt.Sprintf("unknown channel %q", f.Channel))
	}
	if _, err := d.repo.Weddings().GetWeddingById(ctx, weddingId); err != nil {
		return nil, gerr.Storage("send reminders", err)
	}
	guests, err := d.repo.Guests().ListGuests(ctx, weddingId, entity.GuestFilter{
		Statuses: []entity.RSVPStatus{entity.RSVPPending, entity.RSVPNoResponse},
		Groups:   f.Groups,
	})
	if err != nil {
		return nil, gerr.Storage("send reminders", err)
	}
	counts, err := d.repo.Invitations().CountReminders(ctx, weddingId)
	if err != nil {
		return nil, gerr.Storage("send reminders", err)
	}

	report := &entity.ReminderReport{Outcomes: make([]entity.GuestReminderOutcome, 0, len(guests))}
	for _, g := range guests {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		out := entity.GuestReminderOutcome{GuestId: g.Id}
		ch := d.reminderChannel(f.Channel, &g)
		switch {
		case counts[g.Id] >= d.c.ReminderLimit:
			out.Outcome = entity.ReminderSkipped
			out.Reason = reasonLimitReached
		case ch == "":
			out.Outcome = entity.ReminderSkipped
			out.Reason = reasonUnreachable
		default:
			inv, err := d.SendInvitation(ctx, weddingId, g.Id, entity.InvitationRSVPReminder, ch)
			if inv != nil {
				out.InvitationId = inv.Id
			}
			if err != nil {
				out.Outcome = entity.ReminderFailed
				out.Reason = err.Error()
				if !errors.Is(err, gerr.ErrTransport) {
					slog.Default().ErrorContext(ctx, "can't send reminder",
						slog.Int("guest_id", g.Id),
						slog.String("err", err.Error()),
					)
				}
			} else {
				out.Outcome = entity.ReminderSent
			}
		}
		switch out.Outcome {
		case entity.ReminderSent:
			report.Sent++
		case entity.ReminderSkipped:
			report.Skipped++
		case entity.ReminderFailed:
			report.Failed++
		}
		report.Outcomes = append(report.Outcomes, out)
	}
	return report, nil
}

// reminderChannel returns the requested channel when the guest can be
// reached on it, otherwise the first of email and sms that works.
func (d *Dispatcher) reminderChannel(requested entity.Channel, g *entity.Guest) entity.Channel {
	candidates := []entity.Channel{entity.ChannelEmail, entity.ChannelSMS}
	if requested != "" {
		candidates = []entity.Channel{requested}
	}
	for _, ch := range candidates {
		if _, ok := d.transports[ch]; ok && d.recipient(ch, g) != "" {
			return ch
		}
	}
	return ""
}
