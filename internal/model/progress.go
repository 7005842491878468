package model

import "time"

type SendStatus string

const (
	StatusPending       SendStatus = "pending"
	StatusSending       SendStatus = "sending"
	StatusSuccess       SendStatus = "success"
	StatusError         SendStatus = "error"
	StatusInvalidNumber SendStatus = "invalid_number"
)

// ProgressEntry hasil per-kontak di dalam satu blast job.
type ProgressEntry struct {
	ContactID   string     `json:"contactId"`
	ContactName string     `json:"contactName"`
	PhoneNumber string     `json:"phoneNumber"`
	Status      SendStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// ProgressSnapshot adalah view turunan, dihitung ulang dari entries setiap read.
// Entries selalu copy; caller bebas baca tanpa lock.
type ProgressSnapshot struct {
	SessionID      string          `json:"sessionId"`
	JobID          string          `json:"jobId"`
	TotalContacts  int             `json:"totalContacts"`
	ProcessedCount int             `json:"processedCount"`
	SuccessCount   int             `json:"successCount"`
	ErrorCount     int             `json:"errorCount"`
	InvalidCount   int             `json:"invalidCount"`
	IsComplete     bool            `json:"isComplete"`
	Entries        []ProgressEntry `json:"entries"`
}
