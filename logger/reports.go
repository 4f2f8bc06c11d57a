// reports.go schedules the recurring tree-stats lines an instance.Instance
// registers (SPEC_FULL.md §2.1): each report's interval backs off from a
// Schedule's Min towards its Max via github.com/cenkalti/backoff, the same
// shape the teacher's logger package used for its own periodic loggers, but
// with the backoff bounds threaded in from instance.Config at registration
// time instead of living as a package constant.
package logger

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	// reportWakeSlop groups reports due within this much of each other into
	// one scheduler wake-up, so they share a single Composer instead of
	// fighting over the write lock one at a time.
	reportWakeSlop = 2 * time.Second
	// reportSchedulerIdle is how long the scheduler's own wake timer sleeps
	// when no report is registered. The timer is rearmed by every AddReport
	// call and after every scheduler wake-up; RemoveReport leaves it as it
	// is, so a removed report's pending wake-up still fires once and runs
	// nothing.
	reportSchedulerIdle = 365 * 24 * time.Hour
)

// DebugReportIntervals enables logging of the tree-stats scheduler's
// timing: after each report runs, the time until its next run is printed,
// as well as the time until any other report if that is sooner.
var DebugReportIntervals = false

// ReportFunc renders one tree-stats line; instance.Instance's logStats is
// the only implementation in this repo. It receives a Composer already
// holding the logger's write lock and sinceLast, the time since this
// report's own last run.
type ReportFunc func(c *Composer, sinceLast time.Duration)

// Schedule shapes how often a registered report runs: starting at Min and
// backing off by Multiplier each run, capped at Max. instance.Config carries
// one of these (via Config.StatsMinInterval/StatsMaxInterval) so the
// backoff shape is part of an Instance's construction-time configuration
// (spec.md §6.1) rather than a logger-package constant.
type Schedule struct {
	Min        time.Duration
	Max        time.Duration
	Multiplier float64 // 0 defaults to 3.0
}

func (s Schedule) expBackoff() backoff.ExponentialBackOff {
	mult := s.Multiplier
	if mult == 0 {
		mult = 3.0
	}
	b := backoff.ExponentialBackOff{
		InitialInterval:     s.Min,
		MaxInterval:         s.Max,
		Multiplier:          mult,
		RandomizationFactor: 0.0,
		MaxElapsedTime:      0, // disabled: reports run for the life of the Instance
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

// statReport is one registered tree-stats report: its rendering closure
// plus the backoff state tracking when it next runs.
type statReport struct {
	id      string
	render  ReportFunc
	backoff backoff.ExponentialBackOff
	nextRun time.Time
	lastRun time.Time
}

// reportScheduler groups the fields Logger needs to run registered reports
// on their own goroutine; embedded as Logger.reports.
type reportScheduler struct {
	timer   *time.Timer
	entries []*statReport
	m       sync.Mutex
	stop    bool // tell reportRunner() to exit
}

func newReportScheduler() reportScheduler {
	return reportScheduler{
		timer: time.NewTimer(reportSchedulerIdle),
	}
	// NewLogger starts reportRunner()
}

func (s *reportScheduler) Close() {
	s.m.Lock()
	defer s.m.Unlock()

	s.stop = true
	s.timer.Stop()
	s.timer.Reset(0)
}

// resetWakeTimer finds the report with the least time remaining until it
// should run, and reschedules the scheduler's wake timer to fire then.
func resetWakeTimer(l *Logger, now time.Time) {
	next := now.Add(reportSchedulerIdle)
	for _, r := range l.reports.entries {
		if next.After(r.nextRun) {
			next = r.nextRun
		}
	}
	if DebugReportIntervals {
		l.Debug("(%s until next tree-stats report)", FormatSinceLast(next.Sub(now)))
	}
	l.reports.timer.Stop() // the channel is immediately drained by reportRunner().
	l.reports.timer.Reset(next.Sub(now))
}

// runDueReports renders every report due before (now + within).
func runDueReports(l *Logger, within time.Duration, started time.Time) {
	c := l.Compose(Info)
	defer c.Close()
	limit := started.Add(within)
	for _, r := range l.reports.entries {
		if limit.After(r.nextRun) {
			r.render(&c, started.Sub(r.lastRun))
			r.lastRun = started
			next := r.backoff.NextBackOff()
			if next <= 0 {
				// Cannot use l.Warning() because l.writeLock is locked by c
				l.prefixMessage(Warning)
				c.Writeln("Stopping tree-stats report %s", r.id)
				next = reportSchedulerIdle
			}
			if DebugReportIntervals {
				c.Writeln("(%s until next %s)", FormatSinceLast(next), r.id)
			}
			r.nextRun = started.Add(next)
		}
	}
}

// Runs until l.reports.stop is true
func reportRunner(l *Logger) {
	for {
		now := <-l.reports.timer.C
		// Somebody else could take the lock here, but then no reports run.
		l.reports.m.Lock()
		if l.reports.stop {
			l.reports.m.Unlock()
			break
		}
		runDueReports(l, reportWakeSlop, now)
		resetWakeTimer(l, now)
		l.reports.m.Unlock()
	}
}

// RunAllReports runs every registered report right now, ignoring its Schedule.
func (l *Logger) RunAllReports() {
	l.reports.m.Lock()
	defer l.reports.m.Unlock()
	n := time.Now()
	runDueReports(l, reportSchedulerIdle, n)
	resetWakeTimer(l, n)
}

// AddReport registers f to run on sched, rendering id's tree-stats line
// (SPEC_FULL.md §2.1). instance.New is the only caller, passing
// cfg.StatsMinInterval/StatsMaxInterval through a Schedule rather than a
// package-level constant, so the backoff shape is part of Config.
func (l *Logger) AddReport(id string, sched Schedule, f ReportFunc) {
	l.reports.m.Lock()
	defer l.reports.m.Unlock()

	for _, r := range l.reports.entries {
		if r.id == id {
			l.Error("A tree-stats report with ID %s already exists", id)
			return
		}
	}
	b := sched.expBackoff()
	added := time.Now()
	l.reports.entries = append(l.reports.entries, &statReport{
		id:      id,
		render:  f,
		backoff: b,
		lastRun: added,
		nextRun: added.Add(b.NextBackOff()),
	})
	resetWakeTimer(l, added)
}

// RemoveReport removes a registered report so it never runs again.
// If it doesn't exist an error is printed to the logger.
func (l *Logger) RemoveReport(id string) {
	l.reports.m.Lock()
	defer l.reports.m.Unlock()
	n := len(l.reports.entries)
	for i := 0; i < n; i++ {
		if id == l.reports.entries[i].id {
			l.reports.entries[i] = l.reports.entries[n-1] // no-op if last
			l.reports.entries = l.reports.entries[:n-1]
			return
		}
	}
	l.Error("There is no tree-stats report with ID %s to remove", id)
}
