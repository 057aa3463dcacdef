package dependency

//go:generate mockery --with-expecter --case underscore --name Transport --output=./mocks

import (
	"context"
	"database/sql"
	"iter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/wedsync/guestlist/internal/entity"
)

type (
	ContextStore interface {
		Tx(ctx context.Context, fn func(ctx context.Context, store Repository) error) error
	}

	Weddings interface {
		AddWedding(ctx context.Context, w *entity.WeddingInsert) (int, error)
		GetWeddingById(ctx context.Context, id int) (*entity.Wedding, error)
		// LockWedding reads the wedding row FOR UPDATE. Guest creation holds
		// it while checking duplicates.
		LockWedding(ctx context.Context, id int) (*entity.Wedding, error)
		ListWeddings(ctx context.Context) ([]entity.Wedding, error)
	}

	Guests interface {
		AddGuest(ctx context.Context, weddingId int, g *entity.GuestInsert, rsvpToken string) (int, error)
		// GetGuestById returns the guest regardless of its lifecycle state.
		GetGuestById(ctx context.Context, weddingId, id int) (*entity.Guest, error)
		GetGuestByToken(ctx context.Context, token string) (*entity.Guest, error)
		ListGuests(ctx context.Context, weddingId int, f entity.GuestFilter) ([]entity.Guest, error)
		// FindByNameKey returns active guests whose folded name equals nameKey.
		FindByNameKey(ctx context.Context, weddingId int, nameKey string) ([]entity.Guest, error)
		UpdateGuest(ctx context.Context, weddingId, id int, g *entity.GuestInsert) error
		SetRSVPState(ctx context.Context, weddingId, id int, st entity.GuestRSVPState) error
		SoftDeleteGuest(ctx context.Context, weddingId, id int) error
	}

	Responses interface {
		AddResponse(ctx context.Context, weddingId, guestId int, r *entity.ResponseInsert) (int, error)
		// LatestResponse orders by response_date, then id, both descending.
		LatestResponse(ctx context.Context, weddingId, guestId int) (*entity.RSVPResponse, error)
		ListResponses(ctx context.Context, weddingId, guestId int) ([]entity.RSVPResponse, error)
		// ListLatestResponses returns the latest response of every guest that
		// has one.
		ListLatestResponses(ctx context.Context, weddingId int) ([]entity.RSVPResponse, error)
	}

	Tables interface {
		AddTable(ctx context.Context, weddingId int, t *entity.TableInsert) (int, error)
		UpdateTable(ctx context.Context, weddingId, id int, t *entity.TableInsert) error
		DeleteTable(ctx context.Context, weddingId, id int) error
		GetTableById(ctx context.Context, weddingId, id int) (*entity.WeddingTable, error)
		// LockTable reads the table FOR UPDATE so concurrent assignments to it
		// serialise on capacity.
		LockTable(ctx context.Context, weddingId, id int) (*entity.WeddingTable, error)
		LockTables(ctx context.Context, weddingId int) ([]entity.WeddingTable, error)
		ListTablesWithUsage(ctx context.Context, weddingId int) ([]entity.TableWithUsage, error)
	}

	Seating interface {
		AddAssignment(ctx context.Context, a *entity.SeatingAssignment) (int, error)
		GetAssignmentByGuest(ctx context.Context, weddingId, guestId int) (*entity.SeatingAssignment, error)
		DeleteAssignment(ctx context.Context, weddingId, id int) error
		// ListSeated joins every assignment with its guest's party size.
		ListSeated(ctx context.Context, weddingId int) ([]entity.SeatedGuest, error)
		ListSeatedAtTable(ctx context.Context, weddingId, tableId int) ([]entity.SeatedGuest, error)
	}

	Conflicts interface {
		AddConflict(ctx context.Context, c *entity.GuestConflict) (int, error)
		DeleteConflict(ctx context.Context, weddingId, id int) error
		ListConflicts(ctx context.Context, weddingId int) ([]entity.GuestConflict, error)
	}

	Invitations interface {
		AddInvitation(ctx context.Context, inv *entity.Invitation) (int, error)
		// UpdateInvitation stores status, provider id, error and timestamps.
		UpdateInvitation(ctx context.Context, inv *entity.Invitation) error
		GetInvitationById(ctx context.Context, weddingId, id int) (*entity.Invitation, error)
		GetInvitationByProviderId(ctx context.Context, providerMessageId string) (*entity.Invitation, error)
		// ListInvitations lists every invitation of the wedding when guestId is 0.
		ListInvitations(ctx context.Context, weddingId, guestId int) ([]entity.Invitation, error)
		// CountReminders counts non-draft rsvp_reminder invitations per guest.
		CountReminders(ctx context.Context, weddingId int) (map[int]int, error)
		LastReminderAt(ctx context.Context, weddingId int) (*time.Time, error)
	}

	ChangeLog interface {
		AddEntries(ctx context.Context, entries []entity.ChangeLogEntry) error
		// ListEntries returns up to limit entries of ref with id > afterId,
		// oldest first.
		ListEntries(ctx context.Context, ref entity.EntityRef, afterId, limit int) ([]entity.ChangeLogEntry, error)
	}

	Repository interface {
		Weddings() Weddings
		Guests() Guests
		Responses() Responses
		Tables() Tables
		Seating() Seating
		Conflicts() Conflicts
		Invitations() Invitations
		ChangeLog() ChangeLog
		Tx(ctx context.Context, f func(context.Context, Repository) error) error
		TxBegin(ctx context.Context) (Repository, error)
		TxCommit(ctx context.Context) error
		TxRollback(ctx context.Context) error
		Now() time.Time
		InTx() bool
		Close()
		IsErrUniqueViolation(err error) bool
		IsErrorRepeat(err error) bool
	}

	// DB represents database interface.
	DB interface {
		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

		// sqlx methods
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
		QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	// Transport hands a rendered message to a messaging provider and returns
	// the provider's message id once it accepted the message.
	Transport interface {
		Send(ctx context.Context, msg *entity.OutboundMessage) (string, error)
	}

	Auditor interface {
		Log(ctx context.Context, rep Repository, entries ...entity.ChangeLogEntry) error
		History(ctx context.Context, ref entity.EntityRef) iter.Seq2[entity.ChangeLogEntry, error]
	}

	Dispatcher interface {
		SendInvitation(ctx context.Context, weddingId, guestId int, t entity.InvitationType, ch entity.Channel) (*entity.Invitation, error)
		SendBulkReminders(ctx context.Context, weddingId int, f entity.ReminderFilter) (*entity.ReminderReport, error)
		ApplyDeliveryEvent(ctx context.Context, ev *entity.DeliveryEvent) (*entity.Invitation, error)
		MarkResponded(ctx context.Context, rep Repository, weddingId, guestId int) error
	}

	RSVPCollector interface {
		ExpirePending(ctx context.Context, weddingId int) ([]int, error)
	}
)
