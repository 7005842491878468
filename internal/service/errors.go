package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrNotConnected     = errors.New("session is not connected")
	ErrAlreadyPairing   = errors.New("pairing already in progress")
	ErrAlreadyConnected = errors.New("session already connected")
	ErrPairingTimeout   = errors.New("pairing timed out before the code was scanned")
	ErrJobRunning       = errors.New("dispatch job already running for this session")
	ErrNoProgress       = errors.New("no progress recorded for this session")
)

// CooldownError dikembalikan kalau request kena cooldown/rate window.
// Remaining dikirim balik ke caller supaya bisa back off deterministik.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, retry in %s", e.Remaining.Round(time.Millisecond))
}

// AsCooldown helper untuk handler (429 + remaining_ms).
func AsCooldown(err error) (*CooldownError, bool) {
	var ce *CooldownError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
