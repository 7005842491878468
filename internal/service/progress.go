package service

import (
	"sync"
	"time"

	"wablast/internal/model"
)

// ProgressLedger satu-satunya sumber kebenaran status blast per session.
// Satu writer (DispatchEngine), banyak reader (HTTP poller). In-memory saja,
// dengan retention window supaya tidak tumbuh tanpa batas lintas session.
type ProgressLedger struct {
	retention time.Duration

	mu       sync.RWMutex
	sessions map[string]*ledgerState
}

type ledgerState struct {
	jobID    string
	entries  []model.ProgressEntry
	index    map[string]int // contactId -> posisi di entries
	complete bool
	evict    *time.Timer
}

func NewProgressLedger(retention time.Duration) *ProgressLedger {
	return &ProgressLedger{
		retention: retention,
		sessions:  make(map[string]*ledgerState),
	}
}

// Initialize ganti ledger session dengan yang baru: satu entry pending per
// kontak, urutan input dipertahankan. Atomic dari sisi reader (tidak ada
// window di mana totalContacts campur aduk antara job lama dan baru).
func (l *ProgressLedger) Initialize(sessionID, jobID string, contacts []model.Contact) {
	state := &ledgerState{
		jobID:   jobID,
		entries: make([]model.ProgressEntry, 0, len(contacts)),
		index:   make(map[string]int, len(contacts)),
	}
	now := time.Now().UTC()
	for _, c := range contacts {
		state.index[c.ID] = len(state.entries)
		state.entries = append(state.entries, model.ProgressEntry{
			ContactID:   c.ID,
			ContactName: c.FullName(),
			PhoneNumber: c.PhoneNumber,
			Status:      model.StatusPending,
			Timestamp:   now,
		})
	}

	l.mu.Lock()
	if prev, ok := l.sessions[sessionID]; ok && prev.evict != nil {
		prev.evict.Stop()
	}
	l.sessions[sessionID] = state
	l.mu.Unlock()
}

// Upsert overwrite status satu kontak in place. Idempotent terhadap
// re-delivery: semua count diturunkan dari entries saat Snapshot, jadi update
// yang sama dikirim dua kali tidak pernah dobel hitung. Kontak yang belum ada
// entry-nya di-append (fallback defensif kalau update datang sebelum
// initialize).
func (l *ProgressLedger) Upsert(sessionID string, contact model.Contact, status model.SendStatus, errMsg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.sessions[sessionID]
	if !ok {
		return ErrNoProgress
	}

	now := time.Now().UTC()
	pos, ok := state.index[contact.ID]
	if !ok {
		state.index[contact.ID] = len(state.entries)
		state.entries = append(state.entries, model.ProgressEntry{
			ContactID:   contact.ID,
			ContactName: contact.FullName(),
			PhoneNumber: contact.PhoneNumber,
			Status:      status,
			Error:       errMsg,
			Timestamp:   now,
		})
		return nil
	}

	entry := &state.entries[pos]
	entry.Status = status
	entry.Error = errMsg
	entry.Timestamp = now
	return nil
}

// Snapshot view turunan, dihitung ulang dari entries setiap dipanggil.
// Session tanpa ledger dibedakan dari ledger kosong: ErrNoProgress.
func (l *ProgressLedger) Snapshot(sessionID string) (model.ProgressSnapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	state, ok := l.sessions[sessionID]
	if !ok {
		return model.ProgressSnapshot{}, ErrNoProgress
	}

	snap := model.ProgressSnapshot{
		SessionID:     sessionID,
		JobID:         state.jobID,
		TotalContacts: len(state.entries),
		Entries:       make([]model.ProgressEntry, len(state.entries)),
	}
	copy(snap.Entries, state.entries)

	for _, entry := range state.entries {
		switch entry.Status {
		case model.StatusSuccess:
			snap.SuccessCount++
		case model.StatusError:
			snap.ErrorCount++
		case model.StatusInvalidNumber:
			snap.InvalidCount++
		}
	}
	snap.ProcessedCount = snap.SuccessCount + snap.ErrorCount + snap.InvalidCount
	snap.IsComplete = snap.TotalContacts > 0 && snap.ProcessedCount == snap.TotalContacts
	return snap, nil
}

// Complete tandai job selesai dan jadwalkan eviction setelah retention window.
func (l *ProgressLedger) Complete(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.sessions[sessionID]
	if !ok || state.complete {
		return
	}
	state.complete = true
	if state.evict != nil {
		state.evict.Stop()
	}
	state.evict = time.AfterFunc(l.retention, func() {
		l.Clear(sessionID)
	})
}

// Clear hapus ledger session. Dipanggil eksplisit (DELETE /progress) dan oleh
// timer retention. Return false kalau memang tidak ada.
func (l *ProgressLedger) Clear(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.sessions[sessionID]
	if !ok {
		return false
	}
	if state.evict != nil {
		state.evict.Stop()
	}
	delete(l.sessions, sessionID)
	return true
}
