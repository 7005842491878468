package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"wablast/config"
	"wablast/internal/ws"
)

// SessionRegistry memetakan session id ke tepat satu ConnectionManager.
// Lazy create, dipakai ulang lintas request. Dua manager untuk id yang sama
// adalah bug correctness (dua-duanya bakal rebutan restart client yang sama),
// makanya semua pembuatan lewat sini.
type SessionRegistry struct {
	cfg      *config.Config
	store    SessionStore
	realtime ws.RealtimePublisher
	factory  func(sessionID string, fresh bool, onEvent func(ClientEvent)) (WaClient, error)

	mu       sync.RWMutex
	managers map[string]*ConnectionManager
}

func NewSessionRegistry(
	cfg *config.Config,
	store SessionStore,
	realtime ws.RealtimePublisher,
	factory func(sessionID string, fresh bool, onEvent func(ClientEvent)) (WaClient, error),
) *SessionRegistry {
	return &SessionRegistry{
		cfg:      cfg,
		store:    store,
		realtime: realtime,
		factory:  factory,
		managers: make(map[string]*ConnectionManager),
	}
}

// Get ambil manager untuk session id, create kalau belum ada.
func (r *SessionRegistry) Get(sessionID string) *ConnectionManager {
	r.mu.RLock()
	mgr, ok := r.managers[sessionID]
	r.mu.RUnlock()
	if ok {
		return mgr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Cek ulang setelah upgrade lock
	if mgr, ok := r.managers[sessionID]; ok {
		return mgr
	}

	mgr = NewConnectionManager(
		sessionID,
		r.cfg,
		func(fresh bool, onEvent func(ClientEvent)) (WaClient, error) {
			return r.factory(sessionID, fresh, onEvent)
		},
		r.store,
		r.realtime,
	)
	r.managers[sessionID] = mgr
	return mgr
}

// Lookup tanpa create.
func (r *SessionRegistry) Lookup(sessionID string) (*ConnectionManager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mgr, ok := r.managers[sessionID]
	return mgr, ok
}

// All copy dari map manager aktif.
func (r *SessionRegistry) All() map[string]*ConnectionManager {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*ConnectionManager, len(r.managers))
	for k, v := range r.managers {
		result[k] = v
	}
	return result
}

// Evict buang manager dari registry. Hanya dipanggil setelah reset eksplisit.
func (r *SessionRegistry) Evict(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.managers[sessionID]; ok {
		delete(r.managers, sessionID)
		log.Println("Session removed from registry:", sessionID)
	}
}

// RestoreAll load semua session record yang tersimpan dan reconnect device-nya.
// Dipanggil sekali saat boot.
func (r *SessionRegistry) RestoreAll(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	records, err := r.store.All()
	if err != nil {
		return fmt.Errorf("failed to load session records: %w", err)
	}

	fmt.Printf("Found %d saved sessions in database\n", len(records))

	for _, rec := range records {
		if rec.JID == "" {
			continue
		}
		mgr := r.Get(rec.SessionID)
		if err := mgr.Initialize(ctx); err != nil {
			fmt.Printf("Failed to restore session %s: %v\n", rec.SessionID, err)
			continue
		}
		fmt.Printf("✓ Restored session: %s (jid: %s)\n", rec.SessionID, rec.JID)
	}
	return nil
}
