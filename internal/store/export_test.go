package store

import (
	"database/sql"
	"time"
)

// DB exposes the internal *sql.DB for test helpers in store_test.
// This file only compiles during `go test`.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FreezeTime pins the store clock and returns a restore func.
func FreezeTime(t time.Time) func() {
	old := timeNow
	timeNow = func() time.Time { return t }
	return func() { timeNow = old }
}

// SetOpenDB swaps the database opener and returns a restore func.
func SetOpenDB(fn func(driver, dsn string) (*sql.DB, error)) func() {
	old := openDB
	openDB = fn
	return func() { openDB = old }
}
