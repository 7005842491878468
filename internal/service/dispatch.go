package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"wablast/config"
	"wablast/internal/helper"
	"wablast/internal/model"
	"wablast/internal/ws"

	"github.com/google/uuid"
)

var (
	ErrNoContacts      = errors.New("contact list is empty")
	ErrEmptyTemplate   = errors.New("message template is empty")
	ErrTooManyContacts = errors.New("contact list exceeds the configured maximum")
	ErrBadAttachment   = errors.New("attachment is not a valid base64 image")
)

// DispatchEngine mengubah satu DispatchJob jadi rangkaian kirim + update
// progress. Kontak dipartisi per batch; dalam batch dikirim paralel (bounded
// = batch size), antar batch sequential dengan delay tetap supaya beban burst
// ke transport terkendali.
type DispatchEngine struct {
	cfg      *config.Config
	registry *SessionRegistry
	ledger   *ProgressLedger
	realtime ws.RealtimePublisher

	mu     sync.Mutex
	active map[string]bool
}

func NewDispatchEngine(cfg *config.Config, registry *SessionRegistry, ledger *ProgressLedger, realtime ws.RealtimePublisher) *DispatchEngine {
	return &DispatchEngine{
		cfg:      cfg,
		registry: registry,
		ledger:   ledger,
		realtime: realtime,
		active:   make(map[string]bool),
	}
}

// Submit validasi job lalu jalankan di background. Return cepat dengan job id;
// progress dibaca via ledger atau event bus.
//
// Maksimal satu job aktif per session: submit kedua sebelum yang pertama
// complete ditolak dengan ErrJobRunning, tidak pernah di-queue diam-diam.
func (e *DispatchEngine) Submit(ctx context.Context, sessionID string, req model.DispatchRequest) (*model.DispatchJob, error) {
	if len(req.Contacts) == 0 {
		return nil, ErrNoContacts
	}
	if strings.TrimSpace(req.Template) == "" {
		return nil, ErrEmptyTemplate
	}
	if len(req.Contacts) > e.cfg.BlastMaxContacts {
		// Cap eksplisit, bukan truncate diam-diam
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyContacts, len(req.Contacts), e.cfg.BlastMaxContacts)
	}

	mgr := e.registry.Get(sessionID)
	// Cek kebenaran koneksi saat ini, bukan state basi
	if !mgr.ForceConnectionCheck().IsConnected {
		return nil, ErrNotConnected
	}

	var attachment []byte
	var mimetype string
	if req.Attachment != "" {
		raw, err := decodeAttachmentBase64(req.Attachment)
		if err != nil {
			return nil, err
		}
		attachment, mimetype, err = helper.PrepareAttachment(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadAttachment, err)
		}
	}

	e.mu.Lock()
	if e.active[sessionID] {
		e.mu.Unlock()
		return nil, ErrJobRunning
	}
	e.active[sessionID] = true
	e.mu.Unlock()

	job := &model.DispatchJob{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		Contacts:       normalizeContactIDs(req.Contacts),
		Template:       req.Template,
		Attachment:     attachment,
		AttachmentMime: mimetype,
		BatchSize:      e.cfg.BlastBatchSize,
		BatchDelay:     e.cfg.BlastBatchDelay,
		CreatedAt:      time.Now().UTC(),
	}

	e.ledger.Initialize(sessionID, job.ID, job.Contacts)

	if e.realtime != nil {
		e.realtime.Publish(ws.WsEvent{
			Event: ws.EventDispatchStarted,
			Data: map[string]interface{}{
				"session_id": sessionID,
				"job_id":     job.ID,
				"total":      len(job.Contacts),
			},
		})
	}

	go e.run(job, mgr)
	return job, nil
}

func (e *DispatchEngine) run(job *model.DispatchJob, mgr *ConnectionManager) {
	defer func() {
		e.mu.Lock()
		delete(e.active, job.SessionID)
		e.mu.Unlock()
	}()

	log.Printf("Blast started: session=%s job=%s contacts=%d batchSize=%d",
		job.SessionID, job.ID, len(job.Contacts), job.BatchSize)

	for start := 0; start < len(job.Contacts); start += job.BatchSize {
		end := min(start+job.BatchSize, len(job.Contacts))
		batch := job.Contacts[start:end]

		var wg sync.WaitGroup
		for _, contact := range batch {
			wg.Add(1)
			go func(c model.Contact) {
				defer wg.Done()
				e.sendOne(job, mgr, c)
			}(contact)
		}
		// Batch N+1 tidak pernah mulai sebelum semua kirim batch N settle
		wg.Wait()

		if end < len(job.Contacts) {
			time.Sleep(job.BatchDelay)
		}
	}

	e.ledger.Complete(job.SessionID)

	snap, err := e.ledger.Snapshot(job.SessionID)
	if err == nil {
		fmt.Printf("✓ Blast completed: session=%s job=%s success=%d error=%d invalid=%d\n",
			job.SessionID, job.ID, snap.SuccessCount, snap.ErrorCount, snap.InvalidCount)

		if e.realtime != nil {
			e.realtime.Publish(ws.WsEvent{
				Event: ws.EventDispatchCompleted,
				Data: ws.DispatchCompletedData{
					SessionID:    job.SessionID,
					JobID:        job.ID,
					Total:        snap.TotalContacts,
					SuccessCount: snap.SuccessCount,
					ErrorCount:   snap.ErrorCount,
					InvalidCount: snap.InvalidCount,
				},
			})
		}
	}
}

// sendOne proses satu kontak. Error transport dicatat di ledger dan tidak
// pernah menggagalkan batch atau job; retry berarti submit job baru, eksplisit.
func (e *DispatchEngine) sendOne(job *model.DispatchJob, mgr *ConnectionManager, contact model.Contact) {
	// Nomor di bawah ambang digit tidak pernah menyentuh transport
	if !helper.IsSendablePhone(contact.PhoneNumber) {
		_ = e.ledger.Upsert(job.SessionID, contact, model.StatusInvalidNumber, "")
		return
	}

	_ = e.ledger.Upsert(job.SessionID, contact, model.StatusSending, "")

	text := helper.RenderTemplate(job.Template, contact)

	err := mgr.SendMessage(context.Background(), contact.PhoneNumber, text, job.Attachment, job.AttachmentMime)
	if err != nil {
		_ = e.ledger.Upsert(job.SessionID, contact, model.StatusError, err.Error())
		return
	}
	_ = e.ledger.Upsert(job.SessionID, contact, model.StatusSuccess, "")
}

// normalizeContactIDs kasih id baru ke kontak yang id-nya kosong atau duplikat.
// Ledger di-key pakai id ini; id ganda bikin entry lama tertimpa dan job tidak
// pernah complete.
func normalizeContactIDs(contacts []model.Contact) []model.Contact {
	out := make([]model.Contact, len(contacts))
	seen := make(map[string]bool, len(contacts))
	for i, c := range contacts {
		if c.ID == "" || seen[c.ID] {
			c.ID = uuid.NewString()
		}
		seen[c.ID] = true
		out[i] = c
	}
	return out
}

// decodeAttachmentBase64 terima base64 polos maupun data URL.
func decodeAttachmentBase64(s string) ([]byte, error) {
	if idx := strings.Index(s, ";base64,"); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadAttachment, err)
	}
	return raw, nil
}
