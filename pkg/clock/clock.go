package clock

import "time"

// DayKeyFormat is the canonical UTC calendar-date key used by the usage table.
const DayKeyFormat = "20060102"

// Clock is the single source of "now" and "current day" for the ledger.
// Every component reads time through it so that a consume decision and the
// counter row it touches always agree on the day.
type Clock interface {
	Now() time.Time
	DayKey() string
}

type systemClock struct{}

// System returns a Clock backed by the wall clock, normalized to UTC.
func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func (systemClock) DayKey() string {
	return time.Now().UTC().Format(DayKeyFormat)
}

// Fixed is a settable Clock for tests.
type Fixed struct {
	Time time.Time
}

// NewFixed pins the clock at t (interpreted in UTC).
func NewFixed(t time.Time) *Fixed {
	return &Fixed{Time: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	return f.Time
}

func (f *Fixed) DayKey() string {
	return f.Time.UTC().Format(DayKeyFormat)
}

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.Time = f.Time.Add(d)
}
