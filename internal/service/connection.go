package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sync"
	"time"

	"wablast/config"
	"wablast/internal/helper"
	"wablast/internal/model"
	"wablast/internal/ws"

	qrcode "github.com/skip2/go-qrcode"
)

// ConnectionManager memegang satu session transport yang terautentikasi dan
// menjalankan state machine koneksinya. Satu instance per session id, dimiliki
// SessionRegistry; semua caller untuk id yang sama lewat instance yang sama.
//
// Semua transisi state lewat satu channel event internal yang dikonsumsi
// berurutan, jadi callback transport tidak pernah mutasi state bersamaan.
type ConnectionManager struct {
	sessionID string
	cfg       *config.Config
	factory   func(fresh bool, onEvent func(ClientEvent)) (WaClient, error)
	store     SessionStore         // boleh nil (tanpa persistence)
	realtime  ws.RealtimePublisher // boleh nil

	mu          sync.Mutex
	state       model.ConnState
	client      WaClient
	jid         string
	phoneNumber string
	pairingCode string
	failReason  string
	lastSeenAt  *time.Time

	// In-flight guards: initialize() dan requestPairing() tidak reentrant dan
	// saling eksklusif — dua-duanya restart client handle yang sama, jadi cuma
	// boleh ada satu flow yang jalan.
	initializing bool
	pairing      bool
	loggingOut   bool

	// Reconnect policy: maksimal satu timer pending; event disconnect baru
	// mengganti timer lama, bukan menumpuk.
	reconnectTimer   *time.Timer
	lastReconnectReq time.Time

	events chan ClientEvent
}

func NewConnectionManager(
	sessionID string,
	cfg *config.Config,
	factory func(fresh bool, onEvent func(ClientEvent)) (WaClient, error),
	store SessionStore,
	realtime ws.RealtimePublisher,
) *ConnectionManager {
	m := &ConnectionManager{
		sessionID: sessionID,
		cfg:       cfg,
		factory:   factory,
		store:     store,
		realtime:  realtime,
		state:     model.StateDisconnected,
		events:    make(chan ClientEvent, 64),
	}
	go m.runEvents()
	return m
}

// enqueue dipanggil dari callback transport. Non-blocking: kalau buffer penuh
// event dibuang dengan log, supaya transport tidak pernah ke-block oleh kita.
func (m *ConnectionManager) enqueue(evt ClientEvent) {
	select {
	case m.events <- evt:
	default:
		log.Printf("⚠ Event buffer full for session %s, dropping %s", m.sessionID, evt.Type)
	}
}

func (m *ConnectionManager) runEvents() {
	for evt := range m.events {
		m.applyEvent(evt)
	}
}

func (m *ConnectionManager) applyEvent(evt ClientEvent) {
	switch evt.Type {
	case EvtConnected:
		m.mu.Lock()
		if m.loggingOut {
			m.mu.Unlock()
			fmt.Println("⚠ Ignoring reconnect during logout:", m.sessionID)
			return
		}
		now := time.Now().UTC()
		m.state = model.StateConnected
		m.jid = evt.JID
		m.phoneNumber = helper.ExtractPhoneFromJID(evt.JID)
		m.lastSeenAt = &now
		m.pairingCode = ""
		m.failReason = ""
		m.cancelReconnectLocked()
		phone := m.phoneNumber
		m.mu.Unlock()

		fmt.Println("✓ Connected! Session:", m.sessionID, "JID:", evt.JID)
		if m.store != nil {
			if err := m.store.SaveConnected(m.sessionID, evt.JID, phone); err != nil {
				log.Printf("Warning: failed to persist session on connected: %v", err)
			}
		}
		m.publishStatus("")

	case EvtPairSuccess:
		m.mu.Lock()
		m.state = model.StateAuthenticating
		m.mu.Unlock()
		fmt.Println("✓ Pair Success! Session:", m.sessionID)
		m.publishStatus("")

	case EvtLoggedOut:
		// Credential sudah tidak valid: terminal sampai reset + pairing baru.
		m.mu.Lock()
		cli := m.client
		m.client = nil
		m.state = model.StateFailed
		m.failReason = "logged out: " + evt.Reason
		m.jid = ""
		m.phoneNumber = ""
		m.pairingCode = ""
		m.lastSeenAt = nil
		m.cancelReconnectLocked()
		m.mu.Unlock()

		fmt.Println("✗ Logged out! Session:", m.sessionID)
		if cli != nil {
			if err := cli.DeleteCredentials(context.Background()); err != nil {
				fmt.Println("⚠ Failed to delete device store:", err)
			}
			cli.Disconnect()
		}
		if m.store != nil {
			if err := m.store.Delete(m.sessionID); err != nil {
				log.Printf("Warning: failed to delete session record: %v", err)
			}
		}
		m.publishStatus(evt.Reason)

	case EvtDisconnected:
		m.mu.Lock()
		if m.loggingOut {
			m.mu.Unlock()
			return
		}
		now := time.Now().UTC()
		m.state = model.StateDisconnected
		m.lastSeenAt = &now
		// Debounce: satu timer pending saja, event baru mengganti yang lama.
		m.cancelReconnectLocked()
		m.reconnectTimer = time.AfterFunc(m.cfg.ReconnectDelay, m.tryReconnect)
		m.mu.Unlock()

		fmt.Println("⚠ Disconnected! Session:", m.sessionID)
		if m.store != nil {
			if err := m.store.MarkDisconnected(m.sessionID); err != nil {
				log.Printf("Warning: failed to mark session disconnected: %v", err)
			}
		}
		m.publishStatus(evt.Reason)

	case EvtAuthFailure:
		m.mu.Lock()
		m.state = model.StateFailed
		m.failReason = evt.Reason
		m.jid = ""
		m.phoneNumber = ""
		m.pairingCode = ""
		m.lastSeenAt = nil
		m.cancelReconnectLocked()
		m.mu.Unlock()

		fmt.Println("✗ Auth failure! Session:", m.sessionID, "->", evt.Reason)
		m.publishSessionError(evt.Reason)
		m.publishStatus(evt.Reason)
	}
}

// cancelReconnectLocked harus dipanggil dengan m.mu held.
func (m *ConnectionManager) cancelReconnectLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

func (m *ConnectionManager) tryReconnect() {
	m.mu.Lock()
	m.reconnectTimer = nil
	cli := m.client
	loggingOut := m.loggingOut
	m.mu.Unlock()

	if cli == nil || loggingOut || cli.IsConnected() {
		return
	}
	fmt.Println("↻ Attempting reconnect for session:", m.sessionID)
	if err := cli.Connect(); err != nil {
		log.Printf("Warning: reconnect failed for session %s: %v", m.sessionID, err)
	}
}

// Initialize membangun client handle baru dan start koneksinya.
// Idempotent: kalau sudah connected, initialize lain sedang jalan, atau pairing
// sedang in-flight, no-op — tidak boleh ada dua client hidup untuk satu manager.
func (m *ConnectionManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initializing || m.pairing || m.state == model.StateConnected {
		m.mu.Unlock()
		return nil
	}
	m.initializing = true
	old := m.client
	m.client = nil
	m.state = model.StateInitializing
	m.mu.Unlock()

	if old != nil {
		old.Disconnect()
	}

	cli, err := m.factory(false, m.enqueue)
	if err != nil {
		m.markFailed(err)
		return fmt.Errorf("create client: %w", err)
	}

	if err := cli.Connect(); err != nil {
		m.markFailed(err)
		return fmt.Errorf("connect: %w", err)
	}

	m.mu.Lock()
	m.client = cli
	m.initializing = false
	m.mu.Unlock()
	return nil
}

// markFailed pindah ke failed dan kosongkan semua field session.
func (m *ConnectionManager) markFailed(cause error) {
	m.mu.Lock()
	m.state = model.StateFailed
	m.failReason = cause.Error()
	m.jid = ""
	m.phoneNumber = ""
	m.pairingCode = ""
	m.lastSeenAt = nil
	m.initializing = false
	m.pairing = false
	m.mu.Unlock()
	m.publishSessionError(cause.Error())
	m.publishStatus(cause.Error())
}

// RequestPairing restart client dari nol (credential lama dibuang) lalu tunggu
// pairing code pertama, maksimal cfg.PairingTimeout. Persis satu code per
// restart; code berikutnya dari channel diabaikan.
// Kalau transport ternyata sudah logged in, balikannya ErrAlreadyConnected
// supaya caller bisa short-circuit ke sukses.
func (m *ConnectionManager) RequestPairing(ctx context.Context) (code string, imageDataURL string, err error) {
	m.mu.Lock()
	if m.pairing || m.initializing {
		// Initialize yang sedang jalan juga memblokir: dua flow yang sama-sama
		// restart client bakal meninggalkan client yatim yang masih kirim event.
		m.mu.Unlock()
		return "", "", ErrAlreadyPairing
	}
	if m.client != nil && m.client.IsConnected() && m.client.IsLoggedIn() {
		m.mu.Unlock()
		return "", "", ErrAlreadyConnected
	}
	m.pairing = true
	old := m.client
	m.client = nil
	m.state = model.StateInitializing
	m.pairingCode = ""
	m.mu.Unlock()

	if old != nil {
		old.Disconnect()
	}
	if m.store != nil {
		_ = m.store.Delete(m.sessionID)
	}

	cli, err := m.factory(true, m.enqueue)
	if err != nil {
		m.markFailed(err)
		return "", "", fmt.Errorf("create client: %w", err)
	}

	pairCtx, cancel := context.WithTimeout(ctx, m.cfg.PairingTimeout)

	pairChan, err := cli.PairingChannel(pairCtx)
	if err != nil {
		cancel()
		if err == ErrAlreadyConnected {
			// Device ternyata masih punya credential valid; connect saja.
			_ = cli.Connect()
			m.mu.Lock()
			m.client = cli
			m.pairing = false
			m.mu.Unlock()
			return "", "", ErrAlreadyConnected
		}
		m.markFailed(err)
		return "", "", fmt.Errorf("pairing channel: %w", err)
	}

	if err := cli.Connect(); err != nil {
		cancel()
		m.markFailed(err)
		return "", "", fmt.Errorf("connect: %w", err)
	}

	m.mu.Lock()
	m.client = cli
	m.mu.Unlock()

	for evt := range pairChan {
		switch evt.Event {
		case "code":
			expiresAt := time.Now().Add(m.cfg.PairingTimeout)
			image := renderPairingImage(evt.Code)

			m.mu.Lock()
			m.state = model.StatePairingReady
			m.pairingCode = evt.Code
			m.mu.Unlock()

			if m.realtime != nil {
				m.realtime.Publish(ws.WsEvent{
					Event: ws.EventPairingCodeGenerated,
					Data: ws.PairingCodeData{
						SessionID: m.sessionID,
						Code:      evt.Code,
						Image:     image,
						ExpiresAt: expiresAt,
					},
				})
			}

			// Sisa lifecycle (scan / timeout) jalan di background.
			go m.watchPairing(pairChan, cancel)
			return evt.Code, image, nil

		case "success":
			// Ready tanpa code: akun sudah terautentikasi.
			cancel()
			m.mu.Lock()
			m.state = model.StateAuthenticating
			m.pairing = false
			m.mu.Unlock()
			return "", "", ErrAlreadyConnected

		case "timeout":
			cancel()
			m.mu.Lock()
			m.state = model.StateDisconnected
			m.pairing = false
			m.mu.Unlock()
			m.publishPairingTimeout()
			return "", "", ErrPairingTimeout

		default:
			// "err-*" dari transport
			cancel()
			failErr := fmt.Errorf("pairing failed: %s", evt.Event)
			m.markFailed(failErr)
			return "", "", failErr
		}
	}

	cancel()
	m.mu.Lock()
	m.state = model.StateDisconnected
	m.pairing = false
	m.mu.Unlock()
	return "", "", fmt.Errorf("pairing channel closed unexpectedly")
}

// watchPairing consume sisa event pairing setelah code pertama dikembalikan.
// Code kedua sebelum resolve diabaikan (satu code per restart).
func (m *ConnectionManager) watchPairing(pairChan <-chan PairingEvent, cancel context.CancelFunc) {
	defer func() {
		cancel()
		m.mu.Lock()
		m.pairing = false
		m.mu.Unlock()
	}()

	for evt := range pairChan {
		switch evt.Event {
		case "code":
			// sudah ada code yang di-honor, skip
		case "success":
			fmt.Println("✓ Pairing code scanned! Session:", m.sessionID)
			m.mu.Lock()
			m.state = model.StateAuthenticating
			m.pairingCode = ""
			m.mu.Unlock()
			return
		case "timeout":
			fmt.Println("✗ Pairing timeout for session:", m.sessionID)
			m.mu.Lock()
			if m.state == model.StatePairingReady {
				m.state = model.StateDisconnected
			}
			m.pairingCode = ""
			m.mu.Unlock()
			m.publishPairingTimeout()
			return
		default:
			fmt.Println("✗ Pairing error for session:", m.sessionID, "->", evt.Event)
			m.mu.Lock()
			m.state = model.StateFailed
			m.failReason = evt.Event
			m.pairingCode = ""
			m.mu.Unlock()
			return
		}
	}
}

func renderPairingImage(code string) string {
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		log.Printf("Warning: failed to render pairing code image: %v", err)
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// GetStatus pure read dari field in-memory. Tidak pernah block atau I/O.
func (m *ConnectionManager) GetStatus() model.ConnStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.ConnStatus{
		SessionID:   m.sessionID,
		State:       m.state,
		IsConnected: m.state == model.StateConnected,
		PhoneNumber: m.phoneNumber,
		JID:         m.jid,
		LastSeenAt:  m.lastSeenAt,
		PairingCode: m.pairingCode,
		FailReason:  m.failReason,
	}
}

// ForceConnectionCheck ambil kebenaran koneksi dari client handle yang hidup.
// Kalau handle sudah hilang tapi pernah tercatat connected, pakai state
// in-memory terakhir — recovery visibilitas tanpa pairing ulang.
func (m *ConnectionManager) ForceConnectionCheck() model.ConnStatus {
	m.mu.Lock()
	if m.client != nil {
		live := m.client.IsConnected() && m.client.IsLoggedIn()
		if live && m.state != model.StateConnected {
			now := time.Now().UTC()
			m.state = model.StateConnected
			m.lastSeenAt = &now
			if jid := m.client.AccountJID(); jid != "" {
				m.jid = jid
				m.phoneNumber = helper.ExtractPhoneFromJID(jid)
			}
		} else if !live && m.state == model.StateConnected {
			m.state = model.StateDisconnected
		}
	}
	// Client handle sudah hilang: state in-memory terakhir dibiarkan apa adanya
	m.mu.Unlock()
	return m.GetStatus()
}

// Reconnect trigger eksternal, dibatasi cooldown supaya transport tidak
// digedor. Di dalam cooldown: tolak dengan sisa waktunya.
func (m *ConnectionManager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	if since := time.Since(m.lastReconnectReq); since < m.cfg.ReconnectCooldown {
		remaining := m.cfg.ReconnectCooldown - since
		m.mu.Unlock()
		return &CooldownError{Remaining: remaining}
	}
	m.lastReconnectReq = time.Now()
	cli := m.client
	m.mu.Unlock()

	if cli == nil {
		return m.Initialize(ctx)
	}
	if cli.IsConnected() {
		return nil
	}
	return cli.Connect()
}

// Disconnect teardown client tapi credential tetap disimpan,
// jadi Initialize berikutnya bisa silent resume.
func (m *ConnectionManager) Disconnect() {
	m.mu.Lock()
	m.loggingOut = true
	cli := m.client
	m.state = model.StateDisconnected
	m.pairingCode = ""
	m.cancelReconnectLocked()
	m.mu.Unlock()

	if cli != nil {
		cli.Disconnect()
	}

	m.mu.Lock()
	m.loggingOut = false
	m.mu.Unlock()
	m.publishStatus("disconnected by request")
}

// Reset logout penuh: unlink device, hapus credential persistence, balik ke
// disconnected. Setelah ini pairing baru wajib.
func (m *ConnectionManager) Reset(ctx context.Context) error {
	m.mu.Lock()
	m.loggingOut = true
	cli := m.client
	m.client = nil
	m.cancelReconnectLocked()
	m.mu.Unlock()

	if cli != nil {
		if err := cli.Logout(ctx); err != nil {
			fmt.Printf("Warning: failed to logout session %s: %v\n", m.sessionID, err)
		}
		cli.Disconnect()
		if err := cli.DeleteCredentials(ctx); err != nil {
			fmt.Println("⚠ Failed to delete device store:", err)
		}
	}
	if m.store != nil {
		if err := m.store.Delete(m.sessionID); err != nil {
			log.Printf("Warning: failed to delete session record: %v", err)
		}
	}

	m.mu.Lock()
	m.state = model.StateDisconnected
	m.jid = ""
	m.phoneNumber = ""
	m.pairingCode = ""
	m.failReason = ""
	m.lastSeenAt = nil
	m.loggingOut = false
	m.mu.Unlock()

	fmt.Println("✓ Device logged out, session reset:", m.sessionID)
	m.publishStatus("reset")
	return nil
}

// SendMessage kirim satu pesan. Ditolak langsung kalau tidak connected;
// error dari transport diteruskan apa adanya (retry policy urusan dispatch).
func (m *ConnectionManager) SendMessage(ctx context.Context, phone, text string, attachment []byte, mimetype string) error {
	m.mu.Lock()
	cli := m.client
	connected := m.state == model.StateConnected
	m.mu.Unlock()

	if cli == nil || !connected || !cli.IsConnected() {
		return ErrNotConnected
	}

	recipient, err := helper.FormatPhoneNumber(phone, m.cfg.DefaultCountryCode)
	if err != nil {
		return err
	}

	if len(attachment) > 0 {
		_, err = cli.SendImage(ctx, recipient, attachment, mimetype, text)
	} else {
		_, err = cli.SendText(ctx, recipient, text)
	}
	return err
}

func (m *ConnectionManager) publishStatus(reason string) {
	if m.realtime == nil {
		return
	}
	status := m.GetStatus()
	m.realtime.Publish(ws.WsEvent{
		Event: ws.EventConnectionStatusChanged,
		Data: ws.ConnectionStatusData{
			SessionID:   m.sessionID,
			State:       string(status.State),
			IsConnected: status.IsConnected,
			PhoneNumber: status.PhoneNumber,
			LastSeenAt:  status.LastSeenAt,
			Reason:      reason,
		},
	})
}

func (m *ConnectionManager) publishPairingTimeout() {
	if m.realtime == nil {
		return
	}
	m.realtime.Publish(ws.WsEvent{
		Event: ws.EventPairingTimeout,
		Data:  map[string]interface{}{"session_id": m.sessionID},
	})
}

func (m *ConnectionManager) publishSessionError(reason string) {
	if m.realtime == nil {
		return
	}
	m.realtime.Publish(ws.WsEvent{
		Event: ws.EventSessionError,
		Data: map[string]interface{}{
			"session_id": m.sessionID,
			"reason":     reason,
		},
	})
}
