package entity

import (
	"strings"
	"time"

	v "github.com/go-ozzo/ozzo-validation/v4"
)

type TableShape string

const (
	ShapeRound       TableShape = "round"
	ShapeRectangular TableShape = "rectangular"
	ShapeSquare      TableShape = "square"
)

type WeddingTable struct {
	Id        int       `db:"id" json:"id"`
	WeddingId int       `db:"wedding_id" json:"wedding_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	TableInsert
}

type TableInsert struct {
	TableNumber         int        `db:"table_number" json:"table_number"`
	Name                string     `db:"name" json:"name"`
	Shape               TableShape `db:"shape" json:"shape"`
	Capacity            int        `db:"capacity" json:"capacity"`
	Location            string     `db:"location" json:"location"`
	SpecialRequirements string     `db:"special_requirements" json:"special_requirements"`
	IsHeadTable         bool       `db:"is_head_table" json:"is_head_table"`
	Accessible          bool       `db:"accessible" json:"accessible"`
}

// TableWithUsage is a table together with the seats taken by its current
// assignments, counted by each guest's current party size.
type TableWithUsage struct {
	WeddingTable
	Used int `db:"used" json:"used"`
}

func (t *TableWithUsage) Remaining() int {
	return t.Capacity - t.Used
}

func ValidateTableInsert(t *TableInsert) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Location = strings.TrimSpace(t.Location)
	t.SpecialRequirements = strings.TrimSpace(t.SpecialRequirements)
	if t.Shape == "" {
		t.Shape = ShapeRound
	}
	err := validateStruct(t,
		v.Field(&t.TableNumber, v.Required.Error("missing table number"), v.Min(1)),
		v.Field(&t.Capacity, v.Required.Error("capacity must be a positive integer"), v.Min(1).Error("capacity must be a positive integer")),
		v.Field(&t.Shape, v.In(ShapeRound, ShapeRectangular, ShapeSquare).Error("unknown table shape")),
		v.Field(&t.Name, v.Length(0, 100)),
	)
	if err != nil {
		return err
	}
	if t.Capacity < 1 {
		return validationErr("capacity", "capacity must be a positive integer")
	}
	return nil
}

// TablePatch carries only the fields being changed.
type TablePatch struct {
	TableNumber         *int        `json:"table_number,omitempty"`
	Name                *string     `json:"name,omitempty"`
	Shape               *TableShape `json:"shape,omitempty"`
	Capacity            *int        `json:"capacity,omitempty"`
	Location            *string     `json:"location,omitempty"`
	SpecialRequirements *string     `json:"special_requirements,omitempty"`
	IsHeadTable         *bool       `json:"is_head_table,omitempty"`
	Accessible          *bool       `json:"accessible,omitempty"`
}

func (p TablePatch) Apply(t TableInsert) TableInsert {
	if p.TableNumber != nil {
		t.TableNumber = *p.TableNumber
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Shape != nil {
		t.Shape = *p.Shape
	}
	if p.Capacity != nil {
		t.Capacity = *p.Capacity
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
	if p.SpecialRequirements != nil {
		t.SpecialRequirements = *p.SpecialRequirements
	}
	if p.IsHeadTable != nil {
		t.IsHeadTable = *p.IsHeadTable
	}
	if p.Accessible != nil {
		t.Accessible = *p.Accessible
	}
	return t
}
