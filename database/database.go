package database

import (
	"context"
	"database/sql"
	"log"

	_ "github.com/lib/pq"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// Container menyimpan credential/device store milik whatsmeow.
// Core tidak pernah baca isinya langsung; hanya create/get/delete device.
var Container *sqlstore.Container

// DB koneksi Postgres untuk tabel custom wablast (mapping session -> device).
var DB *sql.DB

// InitWhatsmeow membuka sqlstore whatsmeow di Postgres dan upgrade schema-nya.
func InitWhatsmeow(dbURL string) {
	dbLog := waLog.Stdout("Database", "INFO", true)

	container, err := sqlstore.New(context.Background(), "postgres", dbURL, dbLog)
	if err != nil {
		log.Fatal("Failed to connect whatsmeow DB:", err)
	}
	Container = container
	log.Println("Whatsmeow store connected successfully")
}

// InitAppDB membuka koneksi database custom (bukan whatsmeow).
func InitAppDB(appDbURL string) {
	db, err := sql.Open("postgres", appDbURL)
	if err != nil {
		log.Fatal("Failed to connect app DB:", err)
	}
	DB = db
	if err := DB.Ping(); err != nil {
		log.Fatal("Failed to ping app DB:", err)
	}
	log.Println("App DB (custom) connected successfully")
}

// EnsureSchema membuat tabel custom kalau belum ada.
func EnsureSchema() {
	const ddl = `
	CREATE TABLE IF NOT EXISTS wablast_sessions (
		session_id   TEXT PRIMARY KEY,
		jid          TEXT NOT NULL DEFAULT '',
		phone_number TEXT NOT NULL DEFAULT '',
		is_connected BOOLEAN NOT NULL DEFAULT FALSE,
		last_seen_at TIMESTAMPTZ,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

	if _, err := DB.Exec(ddl); err != nil {
		log.Fatal("Failed to ensure wablast schema:", err)
	}
	log.Println("✓ wablast_sessions schema ensured")
}
