package store

import "time"

// timeNow is a package-level variable for testability.
// Tests can replace this to control time in assertions.
var timeNow = time.Now

// Now returns the current time as an RFC3339 UTC string, the format every
// timestamp column uses.
func Now() string {
	return timeNow().UTC().Format(time.RFC3339)
}
