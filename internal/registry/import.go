package registry

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
	"golang.org/x/sync/errgroup"
)

type ImportOptions struct {
	// SkipDuplicates turns rows that look like an existing guest into skips
	// instead of creating them with a duplicate warning.
	SkipDuplicates bool `json:"skip_duplicates"`
}

// RowError reports a rejected row. Row numbers start at 1.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type ImportReport struct {
	Created    []int                       `json:"created"`
	Skipped    int                         `json:"skipped"`
	Duplicates []*gerr.DuplicateGuestError `json:"duplicates"`
	Errors     []RowError                  `json:"errors"`
}

// BulkImport validates rows concurrently, then creates each valid row in its
// own transaction. A failing row never aborts the batch. The report lists
// rows in input order.
func (r *Registry) BulkImport(ctx context.Context, weddingId int, rows []entity.GuestInsert, opts ImportOptions) (*ImportReport, error) {
	if _, err := r.repo.Weddings().GetWeddingById(ctx, weddingId); err != nil {
		return nil, gerr.Storage("bulk import", err)
	}

	prepared := make([]entity.GuestInsert, len(rows))
	invalid := make([]error, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.c.ImportWorkers)
	for i := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			in := rows[i]
			entity.NormalizeGuestInsert(&in)
			in.DietaryRequirements = in.DietaryRequirements.Clone()
			in.PlusOneDietary = in.PlusOneDietary.Clone()
			invalid[i] = entity.ValidateGuestInsert(&in)
			prepared[i] = in
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &ImportReport{
		Created:    []int{},
		Duplicates: []*gerr.DuplicateGuestError{},
		Errors:     []RowError{},
	}
	for i := range prepared {
		row := i + 1
		if invalid[i] != nil {
			report.Errors = append(report.Errors, rowError(row, invalid[i]))
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var res *CreateResult
		err := r.repo.Tx(ctx, func(ctx context.Context, rep dependency.Repository) error {
			var err error
			res, err = r.createGuest(ctx, rep, weddingId, &prepared[i], opts.SkipDuplicates)
			return err
		})
		if err != nil {
			logFailure(ctx, "can't import guest row", err, slog.Int("row", row), slog.Int("wedding_id", weddingId))
			report.Errors = append(report.Errors, rowError(row, err))
			continue
		}
		if res.Duplicates != nil {
			res.Duplicates.Row = row
			report.Duplicates = append(report.Duplicates, res.Duplicates)
		}
		if res.Guest == nil {
			report.Skipped++
			continue
		}
		report.Created = append(report.Created, res.Guest.Id)
	}
	return report, nil
}

func rowError(row int, err error) RowError {
	var ve *gerr.ValidationError
	if errors.As(err, &ve) {
		return RowError{Row: row, Field: ve.Field, Message: ve.Message}
	}
	return RowError{Row: row, Message: err.Error()}
}
