package service

import (
	"context"
	"errors"
	"fmt"

	"wablast/database"
	"wablast/internal/model"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

// ClientEventType adalah transisi yang dilaporkan transport ke state machine.
type ClientEventType string

const (
	EvtConnected    ClientEventType = "connected"
	EvtPairSuccess  ClientEventType = "pair_success"
	EvtLoggedOut    ClientEventType = "logged_out"
	EvtDisconnected ClientEventType = "disconnected"
	EvtAuthFailure  ClientEventType = "auth_failure"
)

type ClientEvent struct {
	Type   ClientEventType
	JID    string
	Reason string
}

// PairingEvent satu item dari pairing channel ("code", "success", "timeout", "err-*").
type PairingEvent struct {
	Event string
	Code  string
}

// WaClient adalah kontrak transport yang dikonsumsi ConnectionManager.
// Client inilah satu-satunya sumber kebenaran "akun benar-benar connected".
type WaClient interface {
	Connect() error
	Disconnect()
	Logout(ctx context.Context) error
	IsConnected() bool
	IsLoggedIn() bool
	AccountJID() string
	PairingChannel(ctx context.Context) (<-chan PairingEvent, error)
	SendText(ctx context.Context, to types.JID, text string) (string, error)
	SendImage(ctx context.Context, to types.JID, data []byte, mimetype, caption string) (string, error)
	DeleteCredentials(ctx context.Context) error
}

// meowClient implementasi WaClient di atas whatsmeow.
type meowClient struct {
	cli *whatsmeow.Client
}

// NewWhatsmeowFactory membuat client factory untuk satu session id.
// fresh=true berarti device baru (dipakai requestPairing: credential lama dibuang);
// fresh=false coba restore device dari record session yang tersimpan.
func NewWhatsmeowFactory(sessionStore SessionStore) func(sessionID string, fresh bool, onEvent func(ClientEvent)) (WaClient, error) {
	return func(sessionID string, fresh bool, onEvent func(ClientEvent)) (WaClient, error) {
		ctx := context.Background()

		var device *store.Device
		if !fresh && sessionStore != nil {
			rec, err := sessionStore.Find(sessionID)
			if err != nil {
				return nil, fmt.Errorf("lookup session record: %w", err)
			}
			if rec != nil && rec.JID != "" {
				jid, err := types.ParseJID(rec.JID)
				if err == nil {
					device, err = database.Container.GetDevice(ctx, jid)
					if err != nil {
						return nil, fmt.Errorf("get device: %w", err)
					}
				}
			}
		}
		if device == nil {
			// Set device name sebelum create device (global setting whatsmeow)
			store.DeviceProps.Os = proto.String("WABLAST")
			device = database.Container.NewDevice()
		}

		clientLog := waLog.Stdout("Client", "INFO", true)
		cli := whatsmeow.NewClient(device, clientLog)
		cli.AddEventHandler(bridgeEvents(cli, onEvent))

		return &meowClient{cli: cli}, nil
	}
}

// bridgeEvents menerjemahkan callback whatsmeow jadi ClientEvent tunggal,
// supaya state machine bisa consume secara berurutan lewat satu channel.
func bridgeEvents(cli *whatsmeow.Client, onEvent func(ClientEvent)) func(interface{}) {
	return func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Connected:
			jid := ""
			if cli.Store.ID != nil {
				jid = cli.Store.ID.String()
			}
			onEvent(ClientEvent{Type: EvtConnected, JID: jid})

		case *events.PairSuccess:
			onEvent(ClientEvent{Type: EvtPairSuccess, JID: v.ID.String()})

		case *events.LoggedOut:
			onEvent(ClientEvent{Type: EvtLoggedOut, Reason: v.Reason.String()})

		case *events.Disconnected:
			onEvent(ClientEvent{Type: EvtDisconnected, Reason: "transport disconnected"})

		case *events.StreamReplaced:
			onEvent(ClientEvent{Type: EvtDisconnected, Reason: "stream replaced by another client"})

		case *events.ConnectFailure:
			onEvent(ClientEvent{Type: EvtAuthFailure, Reason: v.Reason.String()})
		}
	}
}

func (m *meowClient) Connect() error { return m.cli.Connect() }

func (m *meowClient) Disconnect() { m.cli.Disconnect() }

func (m *meowClient) Logout(ctx context.Context) error { return m.cli.Logout(ctx) }

func (m *meowClient) IsConnected() bool { return m.cli.IsConnected() }

func (m *meowClient) IsLoggedIn() bool { return m.cli.Store.ID != nil }

func (m *meowClient) AccountJID() string {
	if m.cli.Store.ID == nil {
		return ""
	}
	return m.cli.Store.ID.String()
}

func (m *meowClient) PairingChannel(ctx context.Context) (<-chan PairingEvent, error) {
	qrChan, err := m.cli.GetQRChannel(ctx)
	if err != nil {
		if errors.Is(err, whatsmeow.ErrQRStoreContainsID) {
			return nil, ErrAlreadyConnected
		}
		return nil, err
	}

	out := make(chan PairingEvent, 8)
	go func() {
		defer close(out)
		for item := range qrChan {
			out <- PairingEvent{Event: item.Event, Code: item.Code}
		}
	}()
	return out, nil
}

func (m *meowClient) SendText(ctx context.Context, to types.JID, text string) (string, error) {
	msg := &waE2E.Message{
		Conversation: proto.String(text),
	}
	resp, err := m.cli.SendMessage(ctx, to, msg)
	if err != nil {
		return "", err
	}
	return string(resp.ID), nil
}

func (m *meowClient) SendImage(ctx context.Context, to types.JID, data []byte, mimetype, caption string) (string, error) {
	uploaded, err := m.cli.Upload(ctx, data, whatsmeow.MediaImage)
	if err != nil {
		return "", err
	}

	msg := &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{
			Caption:       proto.String(caption),
			Mimetype:      proto.String(mimetype),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uint64(len(data))),
		},
	}
	resp, err := m.cli.SendMessage(ctx, to, msg)
	if err != nil {
		return "", err
	}
	return string(resp.ID), nil
}

func (m *meowClient) DeleteCredentials(ctx context.Context) error {
	return m.cli.Store.Delete(ctx)
}

var _ WaClient = (*meowClient)(nil)

// SessionStore persistence mapping session id -> device (JID) + status terakhir.
// Implementasi produksi: model.PgSessionStore.
type SessionStore interface {
	SaveConnected(sessionID, jid, phoneNumber string) error
	MarkDisconnected(sessionID string) error
	Delete(sessionID string) error
	Find(sessionID string) (*model.SessionRecord, error)
	All() ([]model.SessionRecord, error)
}
