package engine

import "time"

// FreezeTime pins the engine clock and returns a restore func.
// This file only compiles during `go test`.
func FreezeTime(t time.Time) func() {
	old := timeNow
	timeNow = func() time.Time { return t }
	return func() { timeNow = old }
}
