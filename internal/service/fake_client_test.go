package service

import (
	"context"
	"sync"
	"time"

	"wablast/config"
	"wablast/internal/ws"

	"go.mau.fi/whatsmeow/types"
)

// fakeClient adalah WaClient in-memory untuk test: mencatat apa yang dikirim
// dan berapa kali Connect dipanggil, tanpa menyentuh jaringan.
type fakeClient struct {
	mu          sync.Mutex
	connected   bool
	loggedIn    bool
	jid         string
	connectErr  error
	sendErr     map[string]error // JID user -> error
	sendDelay   time.Duration
	sent        []string // JID user, urutan kirim
	connects    int
	inFlight    int
	maxInFlight int
	credDeleted bool
	pairEvents  chan PairingEvent
}

func newFakeClient(jid string) *fakeClient {
	return &fakeClient{
		connected:  true,
		loggedIn:   true,
		jid:        jid,
		pairEvents: make(chan PairingEvent, 8),
	}
}

func (f *fakeClient) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeClient) Disconnect() {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
}

func (f *fakeClient) Logout(ctx context.Context) error {
	f.mu.Lock()
	f.loggedIn = false
	f.connected = false
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) IsLoggedIn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedIn
}

func (f *fakeClient) AccountJID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jid
}

func (f *fakeClient) PairingChannel(ctx context.Context) (<-chan PairingEvent, error) {
	return f.pairEvents, nil
}

func (f *fakeClient) SendText(ctx context.Context, to types.JID, text string) (string, error) {
	return f.record(to)
}

func (f *fakeClient) SendImage(ctx context.Context, to types.JID, data []byte, mimetype, caption string) (string, error) {
	return f.record(to)
}

func (f *fakeClient) record(to types.JID) (string, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.sendDelay
	err := f.sendErr[to.User]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	f.inFlight--
	if err == nil {
		f.sent = append(f.sent, to.User)
	}
	f.mu.Unlock()

	if err != nil {
		return "", err
	}
	return "MSGID", nil
}

func (f *fakeClient) DeleteCredentials(ctx context.Context) error {
	f.mu.Lock()
	f.credDeleted = true
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) sentNumbers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeClient) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

var _ WaClient = (*fakeClient)(nil)

func fakeFactory(f *fakeClient) func(sessionID string, fresh bool, onEvent func(ClientEvent)) (WaClient, error) {
	return func(sessionID string, fresh bool, onEvent func(ClientEvent)) (WaClient, error) {
		return f, nil
	}
}

// fakePublisher mencatat event realtime yang dipublish service.
type fakePublisher struct {
	mu     sync.Mutex
	events []ws.WsEvent
}

func (p *fakePublisher) Publish(evt ws.WsEvent) {
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
}

func (p *fakePublisher) countByName(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, evt := range p.events {
		if evt.Event == name {
			n++
		}
	}
	return n
}

var _ ws.RealtimePublisher = (*fakePublisher)(nil)

func testConfig() *config.Config {
	return &config.Config{
		BlastBatchSize:         2,
		BlastBatchDelay:        10 * time.Millisecond,
		BlastMaxContacts:       10,
		BlastProgressRetention: time.Minute,
		PairingTimeout:         time.Second,
		ReconnectDelay:         30 * time.Millisecond,
		ReconnectCooldown:      200 * time.Millisecond,
		PairRequestMinInterval: time.Second,
	}
}

// waitFor polling sederhana untuk kondisi async.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
