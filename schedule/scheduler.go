package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/Spiderbuttons/autosort/id"
)

// TriggerFunc is the callback the scheduler uses to start a sort.
// The root Sorter provides the implementation; this indirection breaks
// the import cycle.
type TriggerFunc func(ctx context.Context, site string) (id.SortID, error)

// Emitter emits schedule lifecycle events.
// ext.Registry satisfies this interface via EmitScheduleFired.
type Emitter interface {
	EmitScheduleFired(ctx context.Context, entryName string, sortID id.SortID)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due entries.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithEmitter sets the lifecycle event emitter.
func WithEmitter(e Emitter) Option {
	return func(s *Scheduler) { s.emitter = e }
}

// scheduleParser supports standard 5-field cron and descriptors like "@every 30s".
var scheduleParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseExpr parses a cron expression and returns the schedule.
// Exported for validation at registration time.
func ParseExpr(expr string) (cronlib.Schedule, error) {
	return scheduleParser.Parse(expr)
}

// Scheduler fires schedule entries on a tick loop. It runs in a single
// process; cross-process double-firing is prevented by the per-site gate
// and the container leases, not by leader election.
type Scheduler struct {
	store   Store
	trigger TriggerFunc
	emitter Emitter
	logger  *slog.Logger

	tickInterval time.Duration

	// parsed caches parsed cron expressions.
	parsedMu sync.RWMutex
	parsed   map[string]cronlib.Schedule

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler.
func NewScheduler(store Store, trigger TriggerFunc, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		store:        store,
		trigger:      trigger,
		logger:       logger,
		tickInterval: 1 * time.Second,
		parsed:       make(map[string]cronlib.Schedule),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the tick goroutine.
func (s *Scheduler) Start(_ context.Context) error {
	s.wg.Add(1)
	go s.tickLoop()
	s.logger.Info("sort scheduler started",
		slog.Duration("tick_interval", s.tickInterval),
	)
	return nil
}

// Stop signals the scheduler to stop and waits for goroutines to finish.
func (s *Scheduler) Stop(_ context.Context) error {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("sort scheduler stopped")
	return nil
}

// tickLoop fires on each tick interval and processes due entries.
func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	ctx := context.Background()

	entries, err := s.store.ListSchedules(ctx)
	if err != nil {
		s.logger.Error("list schedules error", slog.String("error", err.Error()))
		return
	}

	now := time.Now().UTC()
	for _, entry := range entries {
		if !entry.Enabled {
			continue
		}
		if entry.NextRunAt == nil || entry.NextRunAt.After(now) {
			continue
		}
		s.fireEntry(ctx, entry, now)
	}
}

func (s *Scheduler) fireEntry(ctx context.Context, entry *Entry, now time.Time) {
	sortID, trigErr := s.trigger(ctx, entry.Site)
	if trigErr != nil {
		// A denied gate or busy site is expected; the entry fires again
		// on its next scheduled slot.
		s.logger.Warn("scheduled sort not started",
			slog.String("schedule_name", entry.Name),
			slog.String("site", entry.Site),
			slog.String("error", trigErr.Error()),
		)
	} else if s.emitter != nil {
		s.emitter.EmitScheduleFired(ctx, entry.Name, sortID)
	}

	// Advance the entry regardless of outcome so a stuck site cannot
	// make the scheduler spin on every tick.
	entry.LastRunAt = &now
	sched, parseErr := s.getOrParse(entry.Expr)
	if parseErr != nil {
		// No next run can be computed from a broken expression; disable
		// the entry so it does not re-fire on every tick.
		s.logger.Error("parse schedule expression error, disabling entry",
			slog.String("schedule_name", entry.Name),
			slog.String("expr", entry.Expr),
			slog.String("error", parseErr.Error()),
		)
		entry.Enabled = false
		entry.NextRunAt = nil
	} else {
		next := sched.Next(now)
		entry.NextRunAt = &next
	}
	entry.UpdatedAt = now

	if updateErr := s.store.UpdateSchedule(ctx, entry); updateErr != nil {
		s.logger.Error("update schedule error",
			slog.String("schedule_id", entry.ID.String()),
			slog.String("error", updateErr.Error()),
		)
	}
}

func (s *Scheduler) getOrParse(expr string) (cronlib.Schedule, error) {
	s.parsedMu.RLock()
	sched, ok := s.parsed[expr]
	s.parsedMu.RUnlock()
	if ok {
		return sched, nil
	}

	sched, err := ParseExpr(expr)
	if err != nil {
		return nil, err
	}

	s.parsedMu.Lock()
	s.parsed[expr] = sched
	s.parsedMu.Unlock()
	return sched, nil
}
