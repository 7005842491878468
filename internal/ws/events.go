package ws

import "time"

// Nama event yang dikirim ke subscriber.
const (
	EventConnectionStatusChanged = "CONNECTION_STATUS_CHANGED"
	EventPairingCodeGenerated    = "PAIRING_CODE_GENERATED"
	EventPairingTimeout          = "PAIRING_TIMEOUT"
	EventDispatchStarted         = "DISPATCH_STARTED"
	EventDispatchCompleted       = "DISPATCH_COMPLETED"
	EventSessionError            = "SESSION_ERROR"
)

// WsEvent envelope umum untuk semua event realtime.
type WsEvent struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ConnectionStatusData payload untuk CONNECTION_STATUS_CHANGED.
type ConnectionStatusData struct {
	SessionID   string     `json:"session_id"`
	State       string     `json:"state"`
	IsConnected bool       `json:"is_connected"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// PairingCodeData payload untuk PAIRING_CODE_GENERATED.
// Image adalah PNG data URL yang bisa langsung dirender FE.
type PairingCodeData struct {
	SessionID string    `json:"session_id"`
	Code      string    `json:"code"`
	Image     string    `json:"image,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DispatchCompletedData payload ringkas begitu blast selesai.
type DispatchCompletedData struct {
	SessionID    string `json:"session_id"`
	JobID        string `json:"job_id"`
	Total        int    `json:"total"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
	InvalidCount int    `json:"invalid_count"`
}
