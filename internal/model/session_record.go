package model

import (
	"database/sql"
	"time"

	"wablast/database"
)

// SessionRecord baris di tabel wablast_sessions: mapping session id ke device
// whatsmeow (JID) supaya device bisa di-restore setelah restart proses.
type SessionRecord struct {
	SessionID   string
	JID         string
	PhoneNumber string
	IsConnected bool
	LastSeenAt  sql.NullTime
}

// PgSessionStore implementasi persistence di Postgres.
type PgSessionStore struct{}

func (PgSessionStore) SaveConnected(sessionID, jid, phoneNumber string) error {
	_, err := database.DB.Exec(`
		INSERT INTO wablast_sessions (session_id, jid, phone_number, is_connected, last_seen_at)
		VALUES ($1, $2, $3, TRUE, $4)
		ON CONFLICT (session_id) DO UPDATE
		SET jid = $2, phone_number = $3, is_connected = TRUE, last_seen_at = $4`,
		sessionID, jid, phoneNumber, time.Now().UTC())
	return err
}

func (PgSessionStore) MarkDisconnected(sessionID string) error {
	_, err := database.DB.Exec(`
		UPDATE wablast_sessions
		SET is_connected = FALSE, last_seen_at = $2
		WHERE session_id = $1`,
		sessionID, time.Now().UTC())
	return err
}

func (PgSessionStore) Delete(sessionID string) error {
	_, err := database.DB.Exec(`DELETE FROM wablast_sessions WHERE session_id = $1`, sessionID)
	return err
}

func (PgSessionStore) Find(sessionID string) (*SessionRecord, error) {
	var rec SessionRecord
	err := database.DB.QueryRow(`
		SELECT session_id, jid, phone_number, is_connected, last_seen_at
		FROM wablast_sessions WHERE session_id = $1`, sessionID).
		Scan(&rec.SessionID, &rec.JID, &rec.PhoneNumber, &rec.IsConnected, &rec.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (PgSessionStore) All() ([]SessionRecord, error) {
	rows, err := database.DB.Query(`
		SELECT session_id, jid, phone_number, is_connected, last_seen_at
		FROM wablast_sessions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.SessionID, &rec.JID, &rec.PhoneNumber, &rec.IsConnected, &rec.LastSeenAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
