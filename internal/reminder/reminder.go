package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/wedsync/guestlist/internal/dependency"
)

// Config holds configuration for the reminder worker.
type Config struct {
	WorkerInterval  time.Duration `mapstructure:"worker_interval"`
	ReminderSpacing time.Duration `mapstructure:"reminder_spacing"` // minimum gap between automatic reminder runs of one wedding
}

// DefaultConfig returns default configuration values.
func DefaultConfig() Config {
	return Config{
		WorkerInterval:  time.Hour,
		ReminderSpacing: 7 * 24 * time.Hour,
	}
}

// Worker closes RSVPs of weddings past their deadline and sends automatic
// reminders for weddings that opted in.
type Worker struct {
	repo       dependency.Repository
	collector  dependency.RSVPCollector
	dispatcher dependency.Dispatcher
	c          *Config
	ctx        context.Context
	stop       context.CancelFunc
}

// New creates a new reminder worker.
func New(c *Config, repo dependency.Repository, collector dependency.RSVPCollector, dispatcher dependency.Dispatcher) *Worker {
	if c == nil {
		dc := DefaultConfig()
		c = &dc
	}
	if c.WorkerInterval == 0 {
		c.WorkerInterval = DefaultConfig().WorkerInterval
	}
	if c.ReminderSpacing == 0 {
		c.ReminderSpacing = DefaultConfig().ReminderSpacing
	}
	return &Worker{
		repo:       repo,
		collector:  collector,
		dispatcher: dispatcher,
		c:          c,
	}
}

// Start starts the worker.
func (w *Worker) Start(ctx context.Context) error {
	if w.ctx != nil && w.stop != nil {
		return fmt.Errorf("reminder worker already started")
	}
	w.ctx, w.stop = context.WithCancel(ctx)
	go w.worker(w.ctx)
	return nil
}

// Stop stops the worker gracefully.
func (w *Worker) Stop() error {
	if w.stop == nil {
		return fmt.Errorf("reminder worker already stopped or not started")
	}
	w.stop()
	w.stop = nil
	return nil
}
