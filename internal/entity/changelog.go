package entity

import "time"

type EntityType string

const (
	EntityWedding    EntityType = "wedding"
	EntityGuest      EntityType = "guest"
	EntityTable      EntityType = "table"
	EntityAssignment EntityType = "seating_assignment"
	EntityConflict   EntityType = "guest_conflict"
	EntityInvitation EntityType = "invitation"
)

type ChangeType string

const (
	ChangeCreate  ChangeType = "create"
	ChangeUpdate  ChangeType = "update"
	ChangeDelete  ChangeType = "delete"
	ChangeRSVP    ChangeType = "rsvp"
	ChangeSeating ChangeType = "seating"
)

// EntityRef addresses one audited record.
type EntityRef struct {
	WeddingId int
	Type      EntityType
	Id        int
}

// ChangeLogEntry records one field of one mutation. Entries are append only.
type ChangeLogEntry struct {
	Id         int        `db:"id" json:"id"`
	WeddingId  int        `db:"wedding_id" json:"wedding_id"`
	EntityType EntityType `db:"entity_type" json:"entity_type"`
	EntityId   int        `db:"entity_id" json:"entity_id"`
	Field      string     `db:"field" json:"field"`
	OldValue   string     `db:"old_value" json:"old_value"`
	NewValue   string     `db:"new_value" json:"new_value"`
	Actor      string     `db:"actor" json:"actor"`
	Reason     string     `db:"reason" json:"reason,omitempty"`
	ChangeType ChangeType `db:"change_type" json:"change_type"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Changes expands field changes into log entries for ref.
func Changes(ref EntityRef, ct ChangeType, actor, reason string, fcs []FieldChange) []ChangeLogEntry {
	out := make([]ChangeLogEntry, 0, len(fcs))
	for _, fc := range fcs {
		out = append(out, ChangeLogEntry{
			WeddingId:  ref.WeddingId,
			EntityType: ref.Type,
			EntityId:   ref.Id,
			Field:      fc.Field,
			OldValue:   fc.Old,
			NewValue:   fc.New,
			Actor:      actor,
			Reason:     reason,
			ChangeType: ct,
		})
	}
	return out
}
