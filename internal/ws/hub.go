package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client merepresentasikan satu subscriber long-lived (koneksi WebSocket FE).
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Channel untuk mengirim event ke client ini.
	// Goroutine write akan membaca dari sini dan mengirim ke conn.
	send chan WsEvent
}

// Hub adalah notification bus: menyimpan semua subscriber aktif dan
// fan-out setiap event ke semuanya.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// broadcast adalah channel event yang akan dikirim ke semua subscriber.
	broadcast chan WsEvent

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan WsEvent, 256), // buffer kecil untuk mencegah blocking
	}
}

// Run harus dijalankan di goroutine terpisah.
// Loop ini menerima subscriber baru, menghapus yang putus, dan fan-out event.
// Subscriber yang buffer-nya penuh dianggap rusak dan dibuang; publish untuk
// subscriber lain tidak boleh ikut gagal.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- event:
				default:
					// buffer penuh, putuskan client ini saja
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register digunakan oleh handler WS saat subscriber baru masuk.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister dipanggil ketika koneksi ditutup. Idempotent.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SubscriberCount jumlah subscriber aktif saat ini.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish mengimplementasikan RealtimePublisher.
// ConnectionManager dan DispatchEngine cukup memanggil ini.
func (h *Hub) Publish(event WsEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	h.broadcast <- event
}

// RealtimePublisher dipegang service lain supaya tidak tergantung langsung ke Hub.
type RealtimePublisher interface {
	Publish(event WsEvent)
}

// NewClient membuat subscriber baru dari koneksi Gorilla WebSocket.
// Goroutine read/write dijalankan oleh handler, bukan di sini.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan WsEvent, 256),
	}
}

// Queue menaruh satu event langsung ke buffer client ini saja (bukan broadcast).
// Dipakai untuk initial state event saat subscribe. Return false kalau penuh.
func (c *Client) Queue(event WsEvent) bool {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// WritePump mengirim event dari channel send ke koneksi WS.
func (c *Client) WritePump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for event := range c.send {
		payload, err := json.Marshal(event)
		if err != nil {
			log.Printf("ws: failed to marshal event: %v", err)
			continue
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("ws: failed to write message: %v", err)
			return
		}
	}
}

// ReadPump hanya drain pesan masuk; subscriber tidak mengirim perintah apa pun.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)

	_ = c.conn.SetReadDeadline(time.Now().Add(15 * time.Minute))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(15 * time.Minute))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
	}
}
