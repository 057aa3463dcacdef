package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	v "github.com/go-ozzo/ozzo-validation/v4"
)

const DefaultGuestGroup = "general"

// GuestState is the lifecycle of a guest record. Removal is a soft delete.
type GuestState string

const (
	GuestActive   GuestState = "active"
	GuestInactive GuestState = "inactive"
)

// RSVPStatus is the current attendance status of a guest, derived from the
// latest response.
type RSVPStatus string

const (
	RSVPPending    RSVPStatus = "pending"
	RSVPConfirmed  RSVPStatus = "confirmed"
	RSVPDeclined   RSVPStatus = "declined"
	RSVPNoResponse RSVPStatus = "no_response"
)

// Awaiting reports whether the guest still owes an answer.
func (s RSVPStatus) Awaiting() bool {
	return s == RSVPPending || s == RSVPNoResponse
}

type Guest struct {
	Id               int        `db:"id" json:"id"`
	WeddingId        int        `db:"wedding_id" json:"wedding_id"`
	State            GuestState `db:"state" json:"state"`
	RSVPStatus       RSVPStatus `db:"rsvp_status" json:"rsvp_status"`
	RSVPRespondedAt  *time.Time `db:"rsvp_responded_at" json:"rsvp_responded_at,omitempty"`
	PartySize        int        `db:"party_size" json:"party_size"`
	PlusOneAttending bool       `db:"plus_one_attending" json:"plus_one_attending"`
	RSVPToken        string     `db:"rsvp_token" json:"-"`
	NameKey          string     `db:"name_key" json:"-"`
	PhoneKey         string     `db:"phone_key" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	GuestInsert
}

type GuestInsert struct {
	FirstName           string     `db:"first_name" json:"first_name"`
	LastName            string     `db:"last_name" json:"last_name"`
	Email               string     `db:"email" json:"email"`
	Phone               string     `db:"phone" json:"phone"`
	Address             string     `db:"address" json:"address"`
	GuestGroup          string     `db:"guest_group" json:"guest_group"`
	Relationship        string     `db:"relationship" json:"relationship"`
	DietaryRequirements StringList `db:"dietary_requirements" json:"dietary_requirements"`
	AccessibilityNeeds  string     `db:"accessibility_needs" json:"accessibility_needs"`
	PlusOneAllowed      bool       `db:"plus_one_allowed" json:"plus_one_allowed"`
	PlusOneName         string     `db:"plus_one_name" json:"plus_one_name"`
	PlusOneDietary      StringList `db:"plus_one_dietary" json:"plus_one_dietary"`
}

// IsActive reports whether the guest takes part in any operation.
func (g *Guest) IsActive() bool {
	return g.State == GuestActive
}

// SeatsNeeded is the number of seats the guest's party takes at a table.
func (g *Guest) SeatsNeeded() int {
	if g.PartySize < 1 {
		return 1
	}
	return g.PartySize
}

func (g *Guest) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

// DuplicateKeys returns the folded name and normalised phone used to spot
// likely duplicates.
func (g *GuestInsert) DuplicateKeys() (nameKey, phoneKey string) {
	return FoldName(g.FirstName, g.LastName), NormalizePhone(g.Phone)
}

// GuestRSVPState is the part of a guest derived from the latest response.
type GuestRSVPState struct {
	Status           RSVPStatus `json:"rsvp_status"`
	RespondedAt      *time.Time `json:"rsvp_responded_at,omitempty"`
	PartySize        int        `json:"party_size"`
	PlusOneAttending bool       `json:"plus_one_attending"`
	PlusOneName      string     `json:"plus_one_name,omitempty"`
	PlusOneDietary   StringList `json:"plus_one_dietary,omitempty"`
}

// RSVPState returns the guest's current derived state.
func (g *Guest) RSVPState() GuestRSVPState {
	return GuestRSVPState{
		Status:           g.RSVPStatus,
		RespondedAt:      g.RSVPRespondedAt,
		PartySize:        g.PartySize,
		PlusOneAttending: g.PlusOneAttending,
		PlusOneName:      g.PlusOneName,
		PlusOneDietary:   g.PlusOneDietary,
	}
}

// NormalizeGuestInsert trims every text field, normalises contact data and
// applies the default group.
func NormalizeGuestInsert(g *GuestInsert) {
	g.FirstName = strings.TrimSpace(g.FirstName)
	g.LastName = strings.TrimSpace(g.LastName)
	g.Email = NormalizeEmail(g.Email)
	g.Phone = strings.TrimSpace(g.Phone)
	g.Address = strings.TrimSpace(g.Address)
	g.GuestGroup = strings.TrimSpace(g.GuestGroup)
	if g.GuestGroup == "" {
		g.GuestGroup = DefaultGuestGroup
	}
	g.Relationship = strings.TrimSpace(g.Relationship)
	g.AccessibilityNeeds = strings.TrimSpace(g.AccessibilityNeeds)
	g.PlusOneName = strings.TrimSpace(g.PlusOneName)
	g.DietaryRequirements = cleanList(g.DietaryRequirements)
	g.PlusOneDietary = cleanList(g.PlusOneDietary)
	if !g.PlusOneAllowed {
		g.PlusOneName = ""
		g.PlusOneDietary = nil
	}
}

func cleanList(l StringList) StringList {
	var out StringList
	for _, s := range l {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ValidateGuestInsert checks a normalised insert. Contact data is optional,
// but when present it has to be well formed.
func ValidateGuestInsert(g *GuestInsert) error {
	return validateStruct(g,
		v.Field(&g.FirstName, v.Required.Error("missing first name"), v.Length(0, 100)),
		v.Field(&g.LastName, v.Required.Error("missing last name"), v.Length(0, 100)),
		v.Field(&g.Email, v.By(emailRule), v.Length(0, 255)),
		v.Field(&g.Phone, v.By(phoneRule), v.Length(0, 40)),
		v.Field(&g.GuestGroup, v.Length(1, 64)),
		v.Field(&g.Relationship, v.Length(0, 255)),
	)
}

func emailRule(value any) error {
	s, _ := value.(string)
	if s == "" || govalidator.IsEmail(s) {
		return nil
	}
	return fmt.Errorf("invalid email %q", s)
}

func phoneRule(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if n := len(NormalizePhone(s)); n < 6 || n > 15 {
		return fmt.Errorf("invalid phone %q", s)
	}
	return nil
}

// GuestPatch carries only the fields the caller wants to change.
type GuestPatch struct {
	FirstName           *string     `json:"first_name,omitempty"`
	LastName            *string     `json:"last_name,omitempty"`
	Email               *string     `json:"email,omitempty"`
	Phone               *string     `json:"phone,omitempty"`
	Address             *string     `json:"address,omitempty"`
	GuestGroup          *string     `json:"guest_group,omitempty"`
	Relationship        *string     `json:"relationship,omitempty"`
	DietaryRequirements *StringList `json:"dietary_requirements,omitempty"`
	AccessibilityNeeds  *string     `json:"accessibility_needs,omitempty"`
	PlusOneAllowed      *bool       `json:"plus_one_allowed,omitempty"`
	PlusOneName         *string     `json:"plus_one_name,omitempty"`
	PlusOneDietary      *StringList `json:"plus_one_dietary,omitempty"`
}

// FieldChange is one mutated column, rendered as text for the change log.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// ApplyPatch returns the patched insert and the fields that actually changed.
// The result is normalised and must be validated by the caller.
func ApplyPatch(cur GuestInsert, p GuestPatch) (GuestInsert, []FieldChange) {
	next := cur
	next.DietaryRequirements = cur.DietaryRequirements.Clone()
	next.PlusOneDietary = cur.PlusOneDietary.Clone()

	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&next.FirstName, p.FirstName)
	setStr(&next.LastName, p.LastName)
	setStr(&next.Email, p.Email)
	setStr(&next.Phone, p.Phone)
	setStr(&next.Address, p.Address)
	setStr(&next.GuestGroup, p.GuestGroup)
	setStr(&next.Relationship, p.Relationship)
	setStr(&next.AccessibilityNeeds, p.AccessibilityNeeds)
	setStr(&next.PlusOneName, p.PlusOneName)
	if p.DietaryRequirements != nil {
		next.DietaryRequirements = p.DietaryRequirements.Clone()
	}
	if p.PlusOneDietary != nil {
		next.PlusOneDietary = p.PlusOneDietary.Clone()
	}
	if p.PlusOneAllowed != nil {
		next.PlusOneAllowed = *p.PlusOneAllowed
	}
	NormalizeGuestInsert(&next)
	return next, DiffGuestInsert(cur, next)
}

// DiffGuestInsert lists the fields that differ between a and b, in column
// order.
func DiffGuestInsert(a, b GuestInsert) []FieldChange {
	var out []FieldChange
	add := func(field, old, new string) {
		if old != new {
			out = append(out, FieldChange{Field: field, Old: old, New: new})
		}
	}
	add("first_name", a.FirstName, b.FirstName)
	add("last_name", a.LastName, b.LastName)
	add("email", a.Email, b.Email)
	add("phone", a.Phone, b.Phone)
	add("address", a.Address, b.Address)
	add("guest_group", a.GuestGroup, b.GuestGroup)
	add("relationship", a.Relationship, b.Relationship)
	if !a.DietaryRequirements.Equal(b.DietaryRequirements) {
		add("dietary_requirements", a.DietaryRequirements.String(), b.DietaryRequirements.String())
	}
	add("accessibility_needs", a.AccessibilityNeeds, b.AccessibilityNeeds)
	add("plus_one_allowed", fmt.Sprint(a.PlusOneAllowed), fmt.Sprint(b.PlusOneAllowed))
	add("plus_one_name", a.PlusOneName, b.PlusOneName)
	if !a.PlusOneDietary.Equal(b.PlusOneDietary) {
		add("plus_one_dietary", a.PlusOneDietary.String(), b.PlusOneDietary.String())
	}
	return out
}

// GuestFilter narrows guest listings.
type GuestFilter struct {
	IncludeInactive bool
	Statuses        []RSVPStatus
	Groups          []string
}
