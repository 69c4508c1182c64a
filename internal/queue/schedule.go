package queue

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Periodic repeats a start/stop window daily on the given weekdays, minute
// resolution, expressed as "HH:MM".
type Periodic struct {
	StartTime string        `json:"start_time"`
	StopTime  string        `json:"stop_time"`
	Weekdays  []time.Weekday `json:"weekdays"`
}

// Schedule is a queue's optional time-window activation, grounded on the
// teacher's cron-based Scheduler but generalized from a single daily
// start/stop hour to spec's absolute-datetime-or-periodic contract.
type Schedule struct {
	Enabled       bool       `json:"enabled"`
	StartDatetime *time.Time `json:"start_datetime,omitempty"`
	StopDatetime  *time.Time `json:"stop_datetime,omitempty"`
	Periodic      *Periodic  `json:"periodic,omitempty"`
}

// SetSchedule stores the schedule for name; the once-a-minute tick started
// by StartScheduler evaluates it. Only a matching minute triggers; missed
// ticks (clock skew, suspend/resume) are never replayed.
func (m *Manager) SetSchedule(name string, s Schedule) error {
	m.mu.Lock()
	q, ok := m.queues[name]
	if !ok {
		m.mu.Unlock()
		return ErrQueueNotFound
	}
	q.schedule = s
	m.mu.Unlock()
	return nil
}

// StartScheduler begins the once-a-minute tick that evaluates every queue's
// schedule. Call StopScheduler to halt it.
func (m *Manager) StartScheduler() {
	c := cron.New()
	c.AddFunc("* * * * *", func() { m.tick(time.Now()) })
	c.Start()
	m.cronStop = func() { c.Stop() }
}

// StopScheduler halts the schedule timer, if one was started.
func (m *Manager) StopScheduler() {
	if m.cronStop != nil {
		m.cronStop()
	}
}

// tick evaluates every queue's schedule against now, starting or stopping
// queues whose window boundary falls in the current minute.
func (m *Manager) tick(now time.Time) {
	m.mu.Lock()
	var toStart, toStop []string
	for name, q := range m.queues {
		s := q.schedule
		if !s.Enabled {
			continue
		}
		if matchesStart(s, now) {
			toStart = append(toStart, name)
		}
		if matchesStop(s, now) {
			toStop = append(toStop, name)
		}
	}
	m.mu.Unlock()

	for _, name := range toStart {
		m.StartQueue(name)
		if m.logger != nil {
			m.logger.Info("queue scheduler starting queue", "queue", name)
		}
	}
	for _, name := range toStop {
		m.StopQueue(name)
		if m.logger != nil {
			m.logger.Info("queue scheduler stopping queue", "queue", name)
		}
	}
}

func matchesStart(s Schedule, now time.Time) bool {
	if s.StartDatetime != nil && sameMinute(*s.StartDatetime, now) {
		return true
	}
	if s.Periodic != nil && matchesPeriodic(s.Periodic.StartTime, s.Periodic.Weekdays, now) {
		return true
	}
	return false
}

func matchesStop(s Schedule, now time.Time) bool {
	if s.StopDatetime != nil && sameMinute(*s.StopDatetime, now) {
		return true
	}
	if s.Periodic != nil && matchesPeriodic(s.Periodic.StopTime, s.Periodic.Weekdays, now) {
		return true
	}
	return false
}

func sameMinute(a, b time.Time) bool {
	return a.Truncate(time.Minute).Equal(b.Truncate(time.Minute))
}

func matchesPeriodic(hhmm string, weekdays []time.Weekday, now time.Time) bool {
	if hhmm == "" {
		return false
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return false
	}
	if now.Hour() != t.Hour() || now.Minute() != t.Minute() {
		return false
	}
	if len(weekdays) == 0 {
		return true
	}
	for _, wd := range weekdays {
		if wd == now.Weekday() {
			return true
		}
	}
	return false
}
