package entity

import (
	"strings"
	"time"

	v "github.com/go-ozzo/ozzo-validation/v4"
)

type ResponseType string

const (
	AttendingCeremony  ResponseType = "attending_ceremony"
	AttendingReception ResponseType = "attending_reception"
	AttendingBoth      ResponseType = "attending_both"
	NotAttending       ResponseType = "not_attending"
)

// Status maps a response to the guest's RSVP status.
func (t ResponseType) Status() RSVPStatus {
	if t == NotAttending {
		return RSVPDeclined
	}
	return RSVPConfirmed
}

// ResponseChannel records how a response reached the system.
type ResponseChannel string

const (
	ChannelForm         ResponseChannel = "form"
	ChannelReminderLink ResponseChannel = "reminder_link"
	ChannelStaff        ResponseChannel = "staff"
)

// RSVPResponse is immutable once written. Corrections create a new row.
type RSVPResponse struct {
	Id        int       `db:"id" json:"id"`
	WeddingId int       `db:"wedding_id" json:"wedding_id"`
	GuestId   int       `db:"guest_id" json:"guest_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ResponseInsert
}

type ResponseInsert struct {
	ResponseType       ResponseType    `db:"response_type" json:"response_type"`
	GuestCount         int             `db:"guest_count" json:"guest_count"`
	PlusOneAttending   bool            `db:"plus_one_attending" json:"plus_one_attending"`
	PlusOneName        string          `db:"plus_one_name" json:"plus_one_name"`
	PlusOneDietary     StringList      `db:"plus_one_dietary" json:"plus_one_dietary"`
	DietaryNotes       string          `db:"dietary_notes" json:"dietary_notes"`
	SongRequest        string          `db:"song_request" json:"song_request"`
	SpecialRequests    string          `db:"special_requests" json:"special_requests"`
	NeedsAccommodation bool            `db:"needs_accommodation" json:"needs_accommodation"`
	NeedsTransport     bool            `db:"needs_transport" json:"needs_transport"`
	ResponseDate       time.Time       `db:"response_date" json:"response_date"`
	Channel            ResponseChannel `db:"channel" json:"channel"`
	OriginAddress      string          `db:"origin_address" json:"origin_address"`
}

// PartySize is the number of people this response accounts for.
func (r *ResponseInsert) PartySize() int {
	if r.ResponseType == NotAttending {
		return 0
	}
	return r.GuestCount
}

// ValidateResponseInsert checks the enumerations and counts. A plus-one can
// only attend when the guest was allowed one, and then counts toward
// guest_count.
func ValidateResponseInsert(r *ResponseInsert, plusOneAllowed bool) error {
	r.PlusOneName = strings.TrimSpace(r.PlusOneName)
	r.DietaryNotes = strings.TrimSpace(r.DietaryNotes)
	r.SongRequest = strings.TrimSpace(r.SongRequest)
	r.SpecialRequests = strings.TrimSpace(r.SpecialRequests)
	r.PlusOneDietary = cleanList(r.PlusOneDietary)
	if r.Channel == "" {
		r.Channel = ChannelForm
	}

	err := validateStruct(r,
		v.Field(&r.ResponseType, v.Required.Error("missing response type"),
			v.In(AttendingCeremony, AttendingReception, AttendingBoth, NotAttending).Error("unknown response type")),
		v.Field(&r.GuestCount, v.Min(1).Error("guest count must be at least 1")),
		v.Field(&r.Channel, v.In(ChannelForm, ChannelReminderLink, ChannelStaff).Error("unknown channel")),
		v.Field(&r.DietaryNotes, v.Length(0, 2000)),
		v.Field(&r.SongRequest, v.Length(0, 500)),
		v.Field(&r.SpecialRequests, v.Length(0, 2000)),
	)
	if err != nil {
		return err
	}
	// v.Min skips the zero value, so a missing count is caught here.
	if r.GuestCount < 1 {
		return validationErr("guest_count", "guest count must be at least 1")
	}
	if r.ResponseType == NotAttending {
		r.PlusOneAttending = false
		r.GuestCount = 1
	}
	if r.PlusOneAttending {
		if !plusOneAllowed {
			return validationErr("plus_one_attending", "guest is not allowed a plus-one")
		}
		if r.GuestCount != 2 {
			return validationErr("guest_count", "guest count must be 2 with an attending plus-one")
		}
	} else {
		if r.GuestCount != 1 {
			return validationErr("guest_count", "guest count must be 1 without an attending plus-one")
		}
		r.PlusOneName = ""
		r.PlusOneDietary = nil
	}
	return nil
}

// Latest reports whether a is more recent than b: later response_date wins,
// ties go to the later insert.
func (a *RSVPResponse) Latest(b *RSVPResponse) bool {
	if !a.ResponseDate.Equal(b.ResponseDate) {
		return a.ResponseDate.After(b.ResponseDate)
	}
	return a.Id > b.Id
}
