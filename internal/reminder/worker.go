package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wedsync/guestlist/internal/entity"
	"github.com/wedsync/guestlist/internal/middleware"
)

const actor = "reminder-worker"

func (w *Worker) worker(ctx context.Context) {
	ticker := time.NewTicker(w.c.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.runOnce(ctx); err != nil {
				slog.Default().ErrorContext(ctx, "reminder run failed",
					slog.String("err", err.Error()),
				)
			}
		case <-ctx.Done():
			return
		}
	}
}

// runOnce visits every wedding once. A failing wedding is logged and does
// not stop the others.
func (w *Worker) runOnce(ctx context.Context) error {
	ctx = middleware.WithActor(ctx, actor)
	weddings, err := w.repo.Weddings().ListWeddings(ctx)
	if err != nil {
		return fmt.Errorf("can't list weddings: %w", err)
	}

	now := w.repo.Now()
	for _, wd := range weddings {
		if err := ctx.Err(); err != nil {
			return err
		}
		if wd.DeadlinePassed(now) {
			if _, err := w.collector.ExpirePending(ctx, wd.Id); err != nil {
				slog.Default().ErrorContext(ctx, "can't expire pending rsvps",
					slog.String("err", err.Error()),
					slog.Int("wedding_id", wd.Id),
				)
			}
			continue
		}
		if !wd.AutoReminders {
			continue
		}
		if err := w.remind(ctx, &wd, now); err != nil {
			slog.Default().ErrorContext(ctx, "can't send automatic reminders",
				slog.String("err", err.Error()),
				slog.Int("wedding_id", wd.Id),
			)
		}
	}
	return nil
}

func (w *Worker) remind(ctx context.Context, wd *entity.Wedding, now time.Time) error {
	last, err := w.repo.Invitations().LastReminderAt(ctx, wd.Id)
	if err != nil {
		return fmt.Errorf("can't get last reminder time: %w", err)
	}
	if last != nil && now.Sub(*last) < w.c.ReminderSpacing {
		return nil
	}
	report, err := w.dispatcher.SendBulkReminders(ctx, wd.Id, entity.ReminderFilter{})
	if err != nil {
		return err
	}
	slog.Default().InfoContext(ctx, "sent automatic reminders",
		slog.Int("wedding_id", wd.Id),
		slog.Int("sent", report.Sent),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
	)
	return nil
}
