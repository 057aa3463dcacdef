package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SeatingPreferences is stored as a JSON column on the assignment.
type SeatingPreferences struct {
	NearGuestIds   []int  `json:"near_guest_ids,omitempty"`
	AvoidHeadTable bool   `json:"avoid_head_table,omitempty"`
	Note           string `json:"note,omitempty"`
}

func (p SeatingPreferences) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *SeatingPreferences) Scan(src any) error {
	var raw []byte
	switch s := src.(type) {
	case nil:
		*p = SeatingPreferences{}
		return nil
	case []byte:
		raw = s
	case string:
		raw = []byte(s)
	default:
		return fmt.Errorf("can't scan %T into SeatingPreferences", src)
	}
	if len(raw) == 0 {
		*p = SeatingPreferences{}
		return nil
	}
	return json.Unmarshal(raw, p)
}

// SeatingAssignment binds a guest's party to a table. A guest has at most
// one assignment per wedding.
type SeatingAssignment struct {
	Id          int                `db:"id" json:"id"`
	WeddingId   int                `db:"wedding_id" json:"wedding_id"`
	GuestId     int                `db:"guest_id" json:"guest_id"`
	TableId     int                `db:"table_id" json:"table_id"`
	SeatNumber  *int               `db:"seat_number" json:"seat_number,omitempty"`
	SeatsHeld   int                `db:"seats_held" json:"seats_held"`
	Preferences SeatingPreferences `db:"preferences" json:"preferences"`
	AssignedBy  string             `db:"assigned_by" json:"assigned_by"`
	AssignedAt  time.Time          `db:"assigned_at" json:"assigned_at"`
}

// SeatedGuest is an assignment joined with the guest's current party size.
type SeatedGuest struct {
	SeatingAssignment
	PartySize int `db:"party_size" json:"party_size"`
}

// GuestConflict is a symmetric, advisory incompatibility between two
// guests. GuestAId is always the smaller id.
type GuestConflict struct {
	Id        int       `db:"id" json:"id"`
	WeddingId int       `db:"wedding_id" json:"wedding_id"`
	GuestAId  int       `db:"guest_a_id" json:"guest_a_id"`
	GuestBId  int       `db:"guest_b_id" json:"guest_b_id"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OrderedPair returns the ids in storage order.
func OrderedPair(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}

// Other returns the guest on the other side of the conflict.
func (c *GuestConflict) Other(guestId int) int {
	if c.GuestAId == guestId {
		return c.GuestBId
	}
	return c.GuestAId
}

type ConflictKind string

const (
	ConflictGuests           ConflictKind = "guest_conflict"
	ConflictOverCapacity     ConflictKind = "over_capacity"
	ConflictPartySizeChanged ConflictKind = "party_size_changed"
)

// SeatingConflict is one finding of conflict detection, left for a human to
// resolve.
type SeatingConflict struct {
	Kind     ConflictKind `json:"kind"`
	TableId  int          `json:"table_id"`
	GuestIds []int        `json:"guest_ids,omitempty"`
	Capacity int          `json:"capacity,omitempty"`
	Used     int          `json:"used,omitempty"`
	Reason   string       `json:"reason,omitempty"`
}
