package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/persistence/sqlite"
	"github.com/example/seminar-scheduler/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style tests.
type SQLiteHarness struct {
	Storage  *sqlite.Storage
	Bookings persistence.BookingRepository
	Requests persistence.RequestRepository
	Admins   persistence.AdminRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "seminars.db")

	storage, err := sqlite.OpenWithConfig(migration.TempFileTestSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:  storage,
		Bookings: storage,
		Requests: storage,
		Admins:   storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedBookings inserts bookings and fails the test on the first error.
func (h *SQLiteHarness) SeedBookings(tb testing.TB, bookings ...persistence.Booking) {
	tb.Helper()
	for _, b := range bookings {
		if err := h.Bookings.InsertBooking(context.Background(), b); err != nil {
			tb.Fatalf("failed to seed booking %s: %v", b.ID, err)
		}
	}
}

// SeedRequests inserts requests and fails the test on the first error.
func (h *SQLiteHarness) SeedRequests(tb testing.TB, requests ...persistence.Request) {
	tb.Helper()
	for _, r := range requests {
		if err := h.Requests.InsertRequest(context.Background(), r); err != nil {
			tb.Fatalf("failed to seed request %s: %v", r.ID, err)
		}
	}
}
