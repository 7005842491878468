package model

import "time"

// Contact adalah satu penerima blast. Datanya sudah divalidasi/dinormalisasi
// oleh pengirim request (core tidak parsing file spreadsheet).
type Contact struct {
	ID          string            `json:"id"`
	FirstName   string            `json:"firstName"`
	LastName    string            `json:"lastName,omitempty"`
	PhoneNumber string            `json:"phoneNumber"`
	Group       string            `json:"group,omitempty"`
	ExtraFields map[string]string `json:"extraFields,omitempty"`
}

// FullName gabungan first + last, trimmed.
func (c Contact) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// DispatchRequest adalah payload POST /dispatch/:sessionId.
// Attachment dikirim sebagai base64 (retrieval file bukan urusan core).
type DispatchRequest struct {
	Contacts   []Contact `json:"contacts"`
	Template   string    `json:"template"`
	Attachment string    `json:"attachment,omitempty"`
}

// DispatchJob satu blast job yang sudah diterima engine.
type DispatchJob struct {
	ID             string
	SessionID      string
	Contacts       []Contact
	Template       string
	Attachment     []byte
	AttachmentMime string

	BatchSize  int
	BatchDelay time.Duration
	CreatedAt  time.Time
}
