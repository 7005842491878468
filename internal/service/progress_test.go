package service

import (
	"errors"
	"testing"
	"time"

	"wablast/internal/model"
)

func testContacts(n int) []model.Contact {
	contacts := make([]model.Contact, 0, n)
	for i := 0; i < n; i++ {
		contacts = append(contacts, model.Contact{
			ID:          string(rune('a' + i)),
			FirstName:   "Kontak",
			PhoneNumber: "6285148107612",
		})
	}
	return contacts
}

func TestLedgerInitializePending(t *testing.T) {
	l := NewProgressLedger(time.Minute)
	contacts := testContacts(3)
	l.Initialize("s1", "job-1", contacts)

	snap, err := l.Snapshot("s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.TotalContacts != 3 || snap.ProcessedCount != 0 {
		t.Errorf("got total=%d processed=%d, want 3/0", snap.TotalContacts, snap.ProcessedCount)
	}
	if snap.IsComplete {
		t.Error("fresh ledger must not be complete")
	}
	for i, entry := range snap.Entries {
		if entry.Status != model.StatusPending {
			t.Errorf("entry %d status = %s, want pending", i, entry.Status)
		}
		if entry.ContactID != contacts[i].ID {
			t.Errorf("entry %d out of input order", i)
		}
	}
}

func TestLedgerCountConservation(t *testing.T) {
	l := NewProgressLedger(time.Minute)
	contacts := testContacts(5)
	l.Initialize("s1", "job-1", contacts)

	_ = l.Upsert("s1", contacts[0], model.StatusSuccess, "")
	_ = l.Upsert("s1", contacts[1], model.StatusError, "boom")
	_ = l.Upsert("s1", contacts[2], model.StatusInvalidNumber, "")

	snap, err := l.Snapshot("s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending := 0
	for _, e := range snap.Entries {
		if e.Status == model.StatusPending {
			pending++
		}
	}
	if snap.SuccessCount+snap.ErrorCount+snap.InvalidCount+pending != snap.TotalContacts {
		t.Errorf("count conservation violated: %d+%d+%d+%d != %d",
			snap.SuccessCount, snap.ErrorCount, snap.InvalidCount, pending, snap.TotalContacts)
	}
	if snap.ProcessedCount != 3 {
		t.Errorf("processed = %d, want 3", snap.ProcessedCount)
	}
	if snap.IsComplete {
		t.Error("job with pending contacts must not be complete")
	}
}

func TestLedgerUpsertIdempotent(t *testing.T) {
	l := NewProgressLedger(time.Minute)
	contacts := testContacts(2)
	l.Initialize("s1", "job-1", contacts)

	// Update yang sama dua kali tidak boleh dobel hitung
	_ = l.Upsert("s1", contacts[0], model.StatusSuccess, "")
	_ = l.Upsert("s1", contacts[0], model.StatusSuccess, "")

	snap, _ := l.Snapshot("s1")
	if snap.SuccessCount != 1 || snap.ProcessedCount != 1 {
		t.Errorf("got success=%d processed=%d, want 1/1", snap.SuccessCount, snap.ProcessedCount)
	}
}

func TestLedgerSendingNotProcessed(t *testing.T) {
	l := NewProgressLedger(time.Minute)
	contacts := testContacts(1)
	l.Initialize("s1", "job-1", contacts)

	_ = l.Upsert("s1", contacts[0], model.StatusSending, "")

	snap, _ := l.Snapshot("s1")
	if snap.ProcessedCount != 0 {
		t.Errorf("sending counted as processed: %d", snap.ProcessedCount)
	}
	if snap.IsComplete {
		t.Error("in-flight job must not be complete")
	}
}

func TestLedgerUnknownSession(t *testing.T) {
	l := NewProgressLedger(time.Minute)

	if _, err := l.Snapshot("ghost"); !errors.Is(err, ErrNoProgress) {
		t.Errorf("Snapshot error = %v, want ErrNoProgress", err)
	}
	if err := l.Upsert("ghost", model.Contact{ID: "x"}, model.StatusSuccess, ""); !errors.Is(err, ErrNoProgress) {
		t.Errorf("Upsert error = %v, want ErrNoProgress", err)
	}
}

func TestLedgerCompleteEvictsAfterRetention(t *testing.T) {
	l := NewProgressLedger(30 * time.Millisecond)
	contacts := testContacts(1)
	l.Initialize("s1", "job-1", contacts)
	_ = l.Upsert("s1", contacts[0], model.StatusSuccess, "")
	l.Complete("s1")

	if !waitFor(200*time.Millisecond, func() bool {
		_, err := l.Snapshot("s1")
		return errors.Is(err, ErrNoProgress)
	}) {
		t.Error("ledger not evicted after retention window")
	}
}

func TestLedgerClear(t *testing.T) {
	l := NewProgressLedger(time.Minute)
	l.Initialize("s1", "job-1", testContacts(1))

	if !l.Clear("s1") {
		t.Error("Clear on existing ledger should return true")
	}
	if l.Clear("s1") {
		t.Error("Clear on missing ledger should return false")
	}
}

func TestLedgerNewJobReplacesOld(t *testing.T) {
	l := NewProgressLedger(time.Minute)
	old := testContacts(3)
	l.Initialize("s1", "job-1", old)
	_ = l.Upsert("s1", old[0], model.StatusSuccess, "")

	l.Initialize("s1", "job-2", testContacts(2))

	snap, _ := l.Snapshot("s1")
	if snap.JobID != "job-2" {
		t.Errorf("jobID = %s, want job-2", snap.JobID)
	}
	if snap.TotalContacts != 2 || snap.SuccessCount != 0 {
		t.Errorf("stale counts leaked into new job: total=%d success=%d", snap.TotalContacts, snap.SuccessCount)
	}
}
