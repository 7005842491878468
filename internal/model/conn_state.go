package model

import "time"

type ConnState string

const (
	StateDisconnected   ConnState = "disconnected"
	StateInitializing   ConnState = "initializing"
	StatePairingReady   ConnState = "pairing_ready"
	StateAuthenticating ConnState = "authenticating"
	StateConnected      ConnState = "connected"
	StateFailed         ConnState = "failed"
)

// ConnStatus adalah potret in-memory dari satu session.
// Murni baca field, tidak pernah trigger I/O.
type ConnStatus struct {
	SessionID   string     `json:"sessionId"`
	State       ConnState  `json:"state"`
	IsConnected bool       `json:"isConnected"`
	PhoneNumber string     `json:"phoneNumber,omitempty"`
	JID         string     `json:"jid,omitempty"`
	LastSeenAt  *time.Time `json:"lastSeenAt,omitempty"`
	PairingCode string     `json:"pairingCode,omitempty"`
	FailReason  string     `json:"failReason,omitempty"`
}
