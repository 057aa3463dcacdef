package gerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrCapacityExceeded   = errors.New("table capacity exceeded")
	ErrTableOccupied      = errors.New("table has assigned guests")
	ErrInvalidTransition  = errors.New("invalid invitation status transition")
	ErrChannelUnavailable = errors.New("channel is not configured")
	ErrRateLimited        = errors.New("too many requests")
	ErrTransport          = errors.New("messaging transport rejected the message")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrStorage            = errors.New("storage unavailable")
)

// ValidationError reports malformed or missing input. It is never retried.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validation is a shorthand for a field-level ValidationError.
func Validation(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// NotFoundError is returned when an entity is absent or outside the
// caller's wedding scope.
type NotFoundError struct {
	Entity string
	Id     int
}

func (e *NotFoundError) Error() string {
	if e.Id == 0 {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.Id)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NotFound(entity string, id int) error {
	return &NotFoundError{Entity: entity, Id: id}
}

// CapacityExceededError rejects an assignment that would overbook a table.
type CapacityExceededError struct {
	TableId   int `json:"table_id"`
	Capacity  int `json:"capacity"`
	Used      int `json:"used"`
	Requested int `json:"requested"`
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("table %d capacity %d exceeded: %d used, %d requested",
		e.TableId, e.Capacity, e.Used, e.Requested)
}

func (e *CapacityExceededError) Is(target error) bool { return target == ErrCapacityExceeded }

// DuplicateGuestError is advisory: it travels inside successful results and
// lists existing guests that look like the one being added.
type DuplicateGuestError struct {
	Row       int    `json:"row,omitempty"`
	GuestIds  []int  `json:"guest_ids"`
	MatchedOn string `json:"matched_on"`
}

func (e *DuplicateGuestError) Error() string {
	ids := make([]string, 0, len(e.GuestIds))
	for _, id := range e.GuestIds {
		ids = append(ids, fmt.Sprint(id))
	}
	return fmt.Sprintf("possible duplicate of guest(s) %s (matched on %s)", strings.Join(ids, ", "), e.MatchedOn)
}

// ConflictWarning is advisory: the assignment succeeded but the guest
// shares a table with someone they are flagged against.
type ConflictWarning struct {
	GuestId      int    `json:"guest_id"`
	OtherGuestId int    `json:"other_guest_id"`
	TableId      int    `json:"table_id"`
	Reason       string `json:"reason,omitempty"`
}

func (w ConflictWarning) Error() string {
	return fmt.Sprintf("guest %d conflicts with guest %d at table %d", w.GuestId, w.OtherGuestId, w.TableId)
}

// StorageError wraps failures of the underlying persistence. It is fatal for
// the operation and surfaced as-is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Storage wraps err as a StorageError unless it already carries a domain
// meaning that the caller must see unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsDomain reports whether err is one of the typed errors of this package.
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrValidation,
		ErrCapacityExceeded,
		ErrTableOccupied,
		ErrInvalidTransition,
		ErrChannelUnavailable,
		ErrRateLimited,
		ErrTransport,
		ErrUnauthorized,
		ErrStorage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
