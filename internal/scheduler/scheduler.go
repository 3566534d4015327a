// Package scheduler arms the three recurring enforcement jobs: the minute
// untime enforcer, the 30 second alert sweep, and the end-of-day forced
// logout. Jobs are registered by name so a configuration change can re-arm
// them atomically without restarting the process.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/evn/attendance_backendl/internal/clockutil"
	"github.com/evn/attendance_backendl/internal/models"
	"github.com/evn/attendance_backendl/internal/notify"
)

const (
	jobEnforcer = "untime-enforcer"
	jobAlert    = "shift-alert"
	jobLogout   = "shift-logout"
)

type Enforcer interface {
	EnforceExpirations(ctx context.Context) ([]string, error)
}

type LedgerCloser interface {
	ForceCloseOpenToday(ctx context.Context) ([]string, error)
	OpenToday(ctx context.Context) ([]models.AttendanceRecord, error)
}

type SessionRevoker interface {
	Revoke(ctx context.Context, staffIDs ...string) error
	RevokeAll(ctx context.Context) error
}

type WindowResolver interface {
	Resolve(ctx context.Context, staffID string, date time.Time) (*models.ShiftWindow, error)
}

// ExceptionSource lists the currently active untime exceptions by staff id.
type ExceptionSource interface {
	ActiveExceptions(ctx context.Context) (map[string]models.UnTimeException, error)
}

type GlobalSource interface {
	Global(ctx context.Context) (*models.GlobalSchedule, error)
}

type Notifier interface {
	Send(staffID string, ev notify.Event)
}

type Scheduler struct {
	cron       *cron.Cron
	engine     Enforcer
	ledger     LedgerCloser
	sessions   SessionRevoker
	windows    WindowResolver
	exceptions ExceptionSource
	global     GlobalSource
	notifier   Notifier
	clock      *clockutil.Clock

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func New(engine Enforcer, ledger LedgerCloser, sessions SessionRevoker, windows WindowResolver,
	exceptions ExceptionSource, global GlobalSource, notifier Notifier, clock *clockutil.Clock) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(clock.Location()),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		engine:     engine,
		ledger:     ledger,
		sessions:   sessions,
		windows:    windows,
		exceptions: exceptions,
		global:     global,
		notifier:   notifier,
		clock:      clock,
		entries:    make(map[string]cron.EntryID),
	}
}

// Start arms all jobs from the current configuration and begins ticking.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.RearmAll(ctx); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Rearm replaces the named job: the previous entry is cancelled before the
// new spec is registered, so a name never runs under two schedules.
func (s *Scheduler) Rearm(name, spec string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("arm %s (%s): %w", name, spec, err)
	}
	s.entries[name] = id
	return nil
}

// RearmAll recomputes every job from the global schedule. Called at startup
// and again whenever the global schedule changes.
func (s *Scheduler) RearmAll(ctx context.Context) error {
	g, err := s.global.Global(ctx)
	if err != nil {
		return err
	}
	if err := s.Rearm(jobEnforcer, "0 * * * * *", s.runEnforcer); err != nil {
		return err
	}
	if err := s.Rearm(jobAlert, "*/30 * * * * *", s.runAlerts); err != nil {
		return err
	}
	return s.Rearm(jobLogout, logoutSpec(g), s.runLogout)
}

// logoutSpec is the daily trigger at global shift end plus margin, wrapped
// past midnight when the sum crosses it.
func logoutSpec(g *models.GlobalSchedule) string {
	total := (int(g.End) + g.MarginMinutes) % (24 * 60)
	return fmt.Sprintf("0 %d %d * * *", total%60, total/60)
}

func (s *Scheduler) runEnforcer() {
	ctx := context.Background()
	expired, err := s.engine.EnforceExpirations(ctx)
	if err != nil {
		log.Printf("[untime-enforcer] %v", err)
		return
	}
	if len(expired) == 0 {
		return
	}
	log.Printf("[untime-enforcer] expired %d exception(s)", len(expired))
	if err := s.sessions.Revoke(ctx, expired...); err != nil {
		log.Printf("[untime-enforcer] revoke sessions: %v", err)
	}
}

func (s *Scheduler) runLogout() {
	ctx := context.Background()
	closed, err := s.ledger.ForceCloseOpenToday(ctx)
	if err != nil {
		log.Printf("[shift-logout] %v", err)
		return
	}
	log.Printf("[shift-logout] force-closed %d open shift(s)", len(closed))
	if err := s.sessions.RevokeAll(ctx); err != nil {
		log.Printf("[shift-logout] revoke sessions: %v", err)
	}
}

func (s *Scheduler) runAlerts() {
	ctx := context.Background()
	now := s.clock.Now()

	g, err := s.global.Global(ctx)
	if err != nil {
		log.Printf("[shift-alert] global schedule: %v", err)
		return
	}

	exceptions, err := s.exceptions.ActiveExceptions(ctx)
	if err != nil {
		log.Printf("[shift-alert] active exceptions: %v", err)
		return
	}

	// Approaching exception timeouts.
	for staffID, exc := range exceptions {
		if due, end := untimeAlertDue(now, exc, g.AlertMinutes); due {
			s.notifier.Send(staffID, s.event(notify.EventUnTimeAlert, end, g.AlertMinutes))
		}
	}

	// Approaching forced logout for clocked-in staff without an exception.
	open, err := s.ledger.OpenToday(ctx)
	if err != nil {
		log.Printf("[shift-alert] open records: %v", err)
		return
	}
	for _, rec := range open {
		if _, hasException := exceptions[rec.StaffID]; hasException {
			continue
		}
		win, err := s.windows.Resolve(ctx, rec.StaffID, now)
		if err != nil || win == nil {
			continue
		}
		if due, end := shiftAlertDue(now, s.clock, win); due {
			s.notifier.Send(rec.StaffID, s.event(notify.EventShiftAlert, end, win.AlertMinutes))
		}
	}
}

// shiftAlertDue reports whether now falls in the alert span preceding the
// forced logout instant, shift end plus margin.
func shiftAlertDue(now time.Time, clock *clockutil.Clock, win *models.ShiftWindow) (bool, time.Time) {
	_, closeAt := clock.Window(now, models.DayShift{Start: win.Start, End: win.End}, win.MarginMinutes)
	from := closeAt.Add(-time.Duration(win.AlertMinutes) * time.Minute)
	return !now.Before(from) && !now.After(closeAt), closeAt
}

// untimeAlertDue reports whether now falls in the alert span preceding the
// exception timeout.
func untimeAlertDue(now time.Time, exc models.UnTimeException, alertMins int) (bool, time.Time) {
	end := exc.End()
	from := end.Add(-time.Duration(alertMins) * time.Minute)
	return !now.Before(from) && !now.After(end), end
}

func (s *Scheduler) event(kind string, end time.Time, alertMins int) notify.Event {
	end = end.In(s.clock.Location())
	return notify.Event{
		Type:         kind,
		EndLocalTime: end.Format("15:04"),
		EndAt:        end.Format(time.RFC3339),
		Timezone:     s.clock.Location().String(),
		AlertMinutes: alertMins,
	}
}
