// Package audit keeps the append-only change log of every mutation made to
// guests, tables, seating and invitations.
package audit

import (
	"context"
	"iter"

	"github.com/wedsync/guestlist/internal/dependency"
	"github.com/wedsync/guestlist/internal/entity"
	gerr "github.com/wedsync/guestlist/internal/errors"
	"github.com/wedsync/guestlist/internal/middleware"
)

const defaultPageSize = 100

type Config struct {
	PageSize int `mapstructure:"page_size"`
}

// Auditor appends change log entries and replays an entity's history.
type Auditor struct {
	repo     dependency.Repository
	pageSize int
}

var _ dependency.Auditor = (*Auditor)(nil)

func New(repo dependency.Repository, c Config) *Auditor {
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	return &Auditor{repo: repo, pageSize: c.PageSize}
}

// Log appends entries through rep, which is normally the repository of the
// transaction doing the mutation, so the entries commit or roll back with
// it. Entries without an actor get the one carried by ctx.
func (a *Auditor) Log(ctx context.Context, rep dependency.Repository, entries ...entity.ChangeLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	actor := middleware.GetActor(ctx)
	for i := range entries {
		if entries[i].Actor == "" {
			entries[i].Actor = actor
		}
	}
	if err := rep.ChangeLog().AddEntries(ctx, entries); err != nil {
		return gerr.Storage("append change log", err)
	}
	return nil
}

// History yields the entries of ref oldest first. Pages are fetched lazily
// by id, and every range over the sequence starts from the beginning.
func (a *Auditor) History(ctx context.Context, ref entity.EntityRef) iter.Seq2[entity.ChangeLogEntry, error] {
	return func(yield func(entity.ChangeLogEntry, error) bool) {
		after := 0
		for {
			page, err := a.repo.ChangeLog().ListEntries(ctx, ref, after, a.pageSize)
			if err != nil {
				yield(entity.ChangeLogEntry{}, gerr.Storage("list change log", err))
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
				after = e.Id
			}
			if len(page) < a.pageSize {
				return
			}
		}
	}
}

// Collect drains History into a slice.
func (a *Auditor) Collect(ctx context.Context, ref entity.EntityRef) ([]entity.ChangeLogEntry, error) {
	var out []entity.ChangeLogEntry
	for e, err := range a.History(ctx, ref) {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
