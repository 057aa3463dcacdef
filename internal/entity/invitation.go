package entity

import "time"

type InvitationType string

const (
	InvitationSaveTheDate  InvitationType = "save_the_date"
	InvitationInvite       InvitationType = "invitation"
	InvitationRSVPReminder InvitationType = "rsvp_reminder"
	InvitationThankYou     InvitationType = "thank_you"
)

func (t InvitationType) Valid() bool {
	switch t {
	case InvitationSaveTheDate, InvitationInvite, InvitationRSVPReminder, InvitationThankYou:
		return true
	}
	return false
}

type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelPostal  Channel = "postal"
	ChannelDigital Channel = "digital"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPostal, ChannelDigital:
		return true
	}
	return false
}

type InvitationStatus string

const (
	InvitationDraft     InvitationStatus = "draft"
	InvitationSent      InvitationStatus = "sent"
	InvitationDelivered InvitationStatus = "delivered"
	InvitationBounced   InvitationStatus = "bounced"
	InvitationFailed    InvitationStatus = "failed"
	InvitationOpened    InvitationStatus = "opened"
	InvitationResponded InvitationStatus = "responded"
)

var invitationTransitions = map[InvitationStatus][]InvitationStatus{
	InvitationDraft:     {InvitationSent, InvitationFailed},
	InvitationSent:      {InvitationDelivered, InvitationBounced, InvitationFailed},
	InvitationDelivered: {InvitationOpened},
	InvitationOpened:    {InvitationResponded},
}

// CanTransition reports whether an invitation may move from one status to
// another. Bounced, failed and responded are terminal.
func (s InvitationStatus) CanTransition(to InvitationStatus) bool {
	for _, next := range invitationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s InvitationStatus) Terminal() bool {
	return len(invitationTransitions[s]) == 0
}

type Invitation struct {
	Id                int              `db:"id" json:"id"`
	WeddingId         int              `db:"wedding_id" json:"wedding_id"`
	GuestId           int              `db:"guest_id" json:"guest_id"`
	Type              InvitationType   `db:"type" json:"type"`
	Channel           Channel          `db:"channel" json:"channel"`
	Status            InvitationStatus `db:"status" json:"status"`
	Recipient         string           `db:"recipient" json:"recipient"`
	ProviderMessageId string           `db:"provider_message_id" json:"provider_message_id,omitempty"`
	ErrorMsg          string           `db:"error_msg" json:"error_msg,omitempty"`
	SentAt            *time.Time       `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt       *time.Time       `db:"delivered_at" json:"delivered_at,omitempty"`
	OpenedAt          *time.Time       `db:"opened_at" json:"opened_at,omitempty"`
	RespondedAt       *time.Time       `db:"responded_at" json:"responded_at,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// Stamp records the time of reaching status on the matching column.
func (i *Invitation) Stamp(status InvitationStatus, at time.Time) {
	i.Status = status
	i.UpdatedAt = at
	switch status {
	case InvitationSent:
		i.SentAt = &at
	case InvitationDelivered:
		i.DeliveredAt = &at
	case InvitationOpened:
		i.OpenedAt = &at
	case InvitationResponded:
		i.RespondedAt = &at
	}
}

// DeliveryEvent is a status change reported back by a messaging provider.
type DeliveryEvent struct {
	ProviderMessageId string           `json:"provider_message_id"`
	Status            InvitationStatus `json:"status"`
	Reason            string           `json:"reason,omitempty"`
	OccurredAt        time.Time        `json:"occurred_at"`
}

// OutboundMessage is what a transport delivers.
type OutboundMessage struct {
	WeddingId    int     `json:"wedding_id"`
	InvitationId int     `json:"invitation_id"`
	Channel      Channel `json:"channel"`
	Recipient    string  `json:"recipient"`
	Subject      string  `json:"subject"`
	Body         string  `json:"body"`
}

// ReminderFilter narrows a bulk reminder run. An empty group list means every
// group.
type ReminderFilter struct {
	Groups  []string `json:"groups,omitempty"`
	Channel Channel  `json:"channel,omitempty"`
}

type ReminderOutcome string

const (
	ReminderSent    ReminderOutcome = "sent"
	ReminderSkipped ReminderOutcome = "skipped"
	ReminderFailed  ReminderOutcome = "failed"
)

// GuestReminderOutcome is the per-guest result of a bulk reminder run.
type GuestReminderOutcome struct {
	GuestId      int             `json:"guest_id"`
	Outcome      ReminderOutcome `json:"outcome"`
	InvitationId int             `json:"invitation_id,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

type ReminderReport struct {
	Sent     int                    `json:"sent"`
	Skipped  int                    `json:"skipped"`
	Failed   int                    `json:"failed"`
	Outcomes []GuestReminderOutcome `json:"outcomes"`
}
