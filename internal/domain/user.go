package domain

import "time"

// Location is a resolvable point on the globe for forecast lookups.
type Location struct {
	Lat float64
	Lon float64
}

// User is a directory entry as seen by this pipeline. The User Directory
// owns the data; everything here is read-only.
type User struct {
	ID                   string
	Location             *Location // nil when the user has no resolvable location
	PushToken            string    // empty when no device token is registered
	NotificationsEnabled bool
	LastActiveAt         time.Time
	Profile              []byte // opaque profile payload passed to the generator
}

// EligibleAt reports whether the user qualifies for the daily pipeline:
// a resolvable location, a device token, notifications enabled, and
// activity within the trailing window. Ineligible users are skipped,
// never errored.
func (u *User) EligibleAt(asOf time.Time, activeWithin time.Duration) bool {
	if u.Location == nil || u.PushToken == "" || !u.NotificationsEnabled {
		return false
	}
	if activeWithin <= 0 {
		return true
	}
	return u.LastActiveAt.After(asOf.Add(-activeWithin))
}
