package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WallClock is a time of day as minutes since midnight (0..1439),
// interpreted in the pipeline's reference timezone.
type WallClock int

// ParseWallClock parses "HH:MM" into minutes since midnight.
func ParseWallClock(s string) (WallClock, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, errors.New("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, errors.New("invalid hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, errors.New("invalid minute")
	}
	return WallClock(h*60 + m), nil
}

// String returns HH:MM.
func (w WallClock) String() string {
	return fmt.Sprintf("%02d:%02d", int(w)/60, int(w)%60)
}

// Minutes returns minutes since midnight.
func (w WallClock) Minutes() int { return int(w) }

// NextOccurrence returns the earliest instant strictly after now at which
// the wall clock reads w in loc. Built with time.Date in loc so daylight
// saving shifts resolve the way the zone does: on a spring-forward day a
// skipped wall-clock time lands on the adjusted instant. Past instants are
// never returned, so a process that was down over a trigger simply waits
// for the next future one.
func NextOccurrence(now time.Time, w WallClock, loc *time.Location) time.Time {
	local := now.In(loc)
	cand := time.Date(local.Year(), local.Month(), local.Day(), int(w)/60, int(w)%60, 0, 0, loc)
	if cand.After(now) {
		return cand
	}
	return time.Date(local.Year(), local.Month(), local.Day()+1, int(w)/60, int(w)%60, 0, 0, loc)
}

// ValidateTZ checks that tz is a valid IANA location and returns it.
func ValidateTZ(tz string) (*time.Location, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	return loc, nil
}
