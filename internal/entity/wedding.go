package entity

import (
	"strings"
	"time"

	v "github.com/go-ozzo/ozzo-validation/v4"
)

// Wedding is the root aggregate: every guest, table, response and log entry
// is scoped to exactly one wedding.
type Wedding struct {
	Id        int       `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	WeddingInsert
}

type WeddingInsert struct {
	CoupleName    string     `db:"couple_name" json:"couple_name"`
	EventDate     *time.Time `db:"event_date" json:"event_date,omitempty"`
	RSVPDeadline  *time.Time `db:"rsvp_deadline" json:"rsvp_deadline,omitempty"`
	OwnerSubject  string     `db:"owner_subject" json:"owner_subject"`
	AutoReminders bool       `db:"auto_reminders" json:"auto_reminders"`
}

// DeadlinePassed reports whether RSVPs are past due at now.
func (w *Wedding) DeadlinePassed(now time.Time) bool {
	return w.RSVPDeadline != nil && now.After(*w.RSVPDeadline)
}

func ValidateWeddingInsert(w *WeddingInsert) error {
	w.CoupleName = strings.TrimSpace(w.CoupleName)
	err := validateStruct(w,
		v.Field(&w.CoupleName, v.Required.Error("missing couple name"), v.Length(0, 255)),
	)
	if err != nil {
		return err
	}
	if w.EventDate != nil && w.RSVPDeadline != nil && w.RSVPDeadline.After(*w.EventDate) {
		return validationErr("rsvp_deadline", "rsvp deadline must not be after the event date")
	}
	return nil
}
