package domain

import "time"

// State is the delivery state of a ForecastRecord. Records are created as
// StatePrimed by the pre-primer; the only transition is primed → sent,
// performed by the dispatcher through a conditional write.
type State string

const (
	StatePrimed State = "primed"
	StateSent   State = "sent"
)

// Day is a calendar date key in the reference timezone, formatted YYYY-MM-DD.
type Day string

const dayLayout = "2006-01-02"

// DayOf returns the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	return Day(t.In(loc).Format(dayLayout))
}

// ParseDay validates a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	if _, err := time.Parse(dayLayout, s); err != nil {
		return "", err
	}
	return Day(s), nil
}

// ForecastRecord is one pre-primed forecast for a (user, day) pair.
// Weather and Content are opaque payloads produced by the forecast
// generator; this core never interprets them beyond message derivation.
type ForecastRecord struct {
	UserID    string
	Day       Day
	Weather   []byte
	Content   []byte
	State     State
	SentAt    *time.Time // set exactly once, on transition to sent
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ForecastBundle is what the generator returns for one user: the raw
// weather snapshot plus the derived content payload.
type ForecastBundle struct {
	Weather []byte
	Content []byte
}
