package handler

import (
	"errors"
	"sync"
	"time"

	"wablast/config"
	"wablast/internal/service"

	"github.com/labstack/echo/v4"
)

//**********************************
//
// SESSION CONNECTION LIFECYCLE
//
//**********************************

type SessionHandler struct {
	cfg      *config.Config
	registry *service.SessionRegistry

	// Rate limit request pairing per session: simpan timestamp request
	// terakhir, tolak kalau belum lewat interval minimum.
	pairMu      sync.Mutex
	lastPairReq map[string]time.Time
}

func NewSessionHandler(cfg *config.Config, registry *service.SessionRegistry) *SessionHandler {
	return &SessionHandler{
		cfg:         cfg,
		registry:    registry,
		lastPairReq: make(map[string]time.Time),
	}
}

// GET /api/status/:sessionId
// Pure read dari state in-memory, tidak pernah block.
func (h *SessionHandler) GetStatus(c echo.Context) error {
	sessionID := c.Param("sessionId")
	mgr := h.registry.Get(sessionID)
	return SuccessResponse(c, 200, "Status retrieved", mgr.GetStatus())
}

// POST /api/check/:sessionId
// Re-derive kebenaran koneksi dari client handle yang hidup.
func (h *SessionHandler) ForceCheck(c echo.Context) error {
	sessionID := c.Param("sessionId")
	mgr := h.registry.Get(sessionID)
	return SuccessResponse(c, 200, "Connection re-checked", mgr.ForceConnectionCheck())
}

// POST /api/pair/:sessionId
func (h *SessionHandler) RequestPairing(c echo.Context) error {
	sessionID := c.Param("sessionId")

	// Cooldown kasar per session sebelum menyentuh manager sama sekali
	h.pairMu.Lock()
	if last, ok := h.lastPairReq[sessionID]; ok {
		if since := time.Since(last); since < h.cfg.PairRequestMinInterval {
			remaining := h.cfg.PairRequestMinInterval - since
			h.pairMu.Unlock()
			return ErrorResponse(c, 429, "Pairing requested too soon", "PAIRING_COOLDOWN",
				remaining.Round(time.Millisecond).String())
		}
	}
	h.lastPairReq[sessionID] = time.Now()
	h.pairMu.Unlock()

	mgr := h.registry.Get(sessionID)
	code, image, err := mgr.RequestPairing(c.Request().Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyConnected):
			// Short-circuit ke sukses: akun sudah terautentikasi
			return SuccessResponse(c, 200, "Already connected", mgr.GetStatus())
		case errors.Is(err, service.ErrAlreadyPairing):
			return ErrorResponse(c, 409, "Pairing already in progress, please wait", "PAIRING_IN_PROGRESS", "")
		case errors.Is(err, service.ErrPairingTimeout):
			return ErrorResponse(c, 408, "Pairing code was not scanned in time", "PAIRING_TIMEOUT", "")
		default:
			return ErrorResponse(c, 500, "Failed to start pairing", "PAIRING_FAILED", err.Error())
		}
	}

	return SuccessResponse(c, 200, "Pairing code generated", map[string]interface{}{
		"sessionId":    sessionID,
		"pairingCode":  code,
		"pairingImage": image,
		"expiresIn":    h.cfg.PairingTimeout.String(),
	})
}

// POST /api/reconnect/:sessionId
func (h *SessionHandler) Reconnect(c echo.Context) error {
	sessionID := c.Param("sessionId")
	mgr := h.registry.Get(sessionID)

	if err := mgr.Reconnect(c.Request().Context()); err != nil {
		if ce, ok := service.AsCooldown(err); ok {
			return ErrorResponse(c, 429, "Reconnect requested too soon", "RECONNECT_COOLDOWN",
				ce.Remaining.Round(time.Millisecond).String())
		}
		return ErrorResponse(c, 500, "Failed to reconnect", "RECONNECT_FAILED", err.Error())
	}
	return SuccessResponse(c, 200, "Reconnect triggered", mgr.GetStatus())
}

// POST /api/disconnect/:sessionId
func (h *SessionHandler) Disconnect(c echo.Context) error {
	sessionID := c.Param("sessionId")

	mgr, ok := h.registry.Lookup(sessionID)
	if !ok {
		return ErrorResponse(c, 404, "Session not found", "SESSION_NOT_FOUND", "")
	}
	mgr.Disconnect()
	return SuccessResponse(c, 200, "Disconnected", map[string]interface{}{
		"sessionId": sessionID,
	})
}

// POST /api/reset/:sessionId
// Logout penuh + hapus credential. Setelah ini session harus pairing ulang.
func (h *SessionHandler) Reset(c echo.Context) error {
	sessionID := c.Param("sessionId")

	mgr, ok := h.registry.Lookup(sessionID)
	if !ok {
		return ErrorResponse(c, 404, "Session not found", "SESSION_NOT_FOUND", "")
	}
	if err := mgr.Reset(c.Request().Context()); err != nil {
		return ErrorResponse(c, 500, "Failed to reset session", "RESET_FAILED", err.Error())
	}
	h.registry.Evict(sessionID)

	h.pairMu.Lock()
	delete(h.lastPairReq, sessionID)
	h.pairMu.Unlock()

	return SuccessResponse(c, 200, "Session reset", map[string]interface{}{
		"sessionId": sessionID,
	})
}
