package sqlite

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leadfive-network/leadfive/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testEvent(typ domain.EventType, user domain.Address) domain.Event {
	return domain.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		User:      user,
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	db := newTestDB(t)

	var count int
	err := db.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='events'`,
	).Scan(&count)
	if err != nil {
		t.Fatalf("checking events table: %v", err)
	}
	if count != 1 {
		t.Error("events table not found in database")
	}
}

func TestAppend_AssignsDenseSequence(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < 3; i++ {
		ev := testEvent(domain.EventUserRegistered, domain.Address("0xa"))
		if err := db.Append(ev); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}

	events, err := db.Events()
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, ev := range events {
		if ev.Seq != int64(i+1) {
			t.Errorf("event %d has seq %d, want %d", i, ev.Seq, i+1)
		}
	}
}

func TestAppend_RejectsDuplicateID(t *testing.T) {
	db := newTestDB(t)

	ev := testEvent(domain.EventUserRegistered, "0xa")
	if err := db.Append(ev); err != nil {
		t.Fatalf("first Append: %v", err)
	}
	if err := db.Append(ev); err == nil {
		t.Error("duplicate event ID accepted")
	}
}

func TestEvents_RoundTripsAllFields(t *testing.T) {
	db := newTestDB(t)

	want := domain.Event{
		ID:           uuid.NewString(),
		Type:         domain.EventWithdrawalProcessed,
		Timestamp:    time.Date(2025, 6, 1, 12, 30, 15, 123456000, time.UTC),
		User:         "0xalice",
		Counterparty: "0xroot",
		Amount:       domain.USDT(100),
		PackageTier:  3,
		Source:       "direct",
		Pool:         domain.PoolHelp,
		Weighting:    "team_weighted",
		Reinvested:   domain.USDT(30),
		Fee:          domain.USDT(3) + 500000,
	}
	if err := db.Append(want); err != nil {
		t.Fatalf("Append: %v", err)
	}

	events, err := db.Events()
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	got := events[0]
	got.Seq = 0 // store-assigned
	if got != want {
		t.Errorf("round trip mismatch:\ngot:  %+v\nwant: %+v", got, want)
	}
}

func TestEventsByUser(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < 5; i++ {
		user := domain.Address("0xa")
		if i%2 == 1 {
			user = "0xb"
		}
		if err := db.Append(testEvent(domain.EventCommissionDistributed, user)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	events, err := db.EventsByUser("0xA", 10) // mixed case resolves
	if err != nil {
		t.Fatalf("EventsByUser: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events for 0xa, want 3", len(events))
	}
	// Newest first.
	if events[0].Seq < events[1].Seq {
		t.Error("events not ordered newest first")
	}
}

func TestRecentEvents_HonorsLimit(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < 10; i++ {
		if err := db.Append(testEvent(domain.EventUserRegistered, "0xa")); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	events, err := db.RecentEvents(4)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	if events[0].Seq != 10 {
		t.Errorf("newest seq = %d, want 10", events[0].Seq)
	}

	n, err := db.EventCount()
	if err != nil {
		t.Fatalf("EventCount: %v", err)
	}
	if n != 10 {
		t.Errorf("EventCount = %d, want 10", n)
	}
}
