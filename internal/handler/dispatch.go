package handler

import (
	"errors"

	"wablast/internal/model"
	"wablast/internal/service"

	"github.com/labstack/echo/v4"
)

type DispatchHandler struct {
	engine *service.DispatchEngine
	ledger *service.ProgressLedger
}

func NewDispatchHandler(engine *service.DispatchEngine, ledger *service.ProgressLedger) *DispatchHandler {
	return &DispatchHandler{engine: engine, ledger: ledger}
}

// POST /api/dispatch/:sessionId
// Terima blast job, jalan di background. Response cepat dengan job id;
// progress dipantau via GET /progress atau event bus.
func (h *DispatchHandler) Dispatch(c echo.Context) error {
	sessionID := c.Param("sessionId")

	var req model.DispatchRequest
	if err := c.Bind(&req); err != nil {
		return ErrorResponse(c, 400, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	job, err := h.engine.Submit(c.Request().Context(), sessionID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJobRunning):
			return ErrorResponse(c, 409, "A dispatch job is already running for this session", "JOB_ALREADY_RUNNING",
				"Wait for the current job to complete before submitting a new one")
		case errors.Is(err, service.ErrNotConnected):
			return ErrorResponse(c, 400, "Session is not connected", "NOT_CONNECTED", "Please pair or reconnect first")
		case errors.Is(err, service.ErrNoContacts),
			errors.Is(err, service.ErrEmptyTemplate),
			errors.Is(err, service.ErrTooManyContacts),
			errors.Is(err, service.ErrBadAttachment):
			return ErrorResponse(c, 400, "Invalid dispatch request", "VALIDATION_ERROR", err.Error())
		default:
			return ErrorResponse(c, 500, "Failed to submit dispatch job", "DISPATCH_FAILED", err.Error())
		}
	}

	return SuccessResponse(c, 200, "Dispatch job started", map[string]interface{}{
		"sessionId": sessionID,
		"jobId":     job.ID,
		"total":     len(job.Contacts),
		"batchSize": job.BatchSize,
	})
}

// GET /api/progress/:sessionId
func (h *DispatchHandler) GetProgress(c echo.Context) error {
	sessionID := c.Param("sessionId")

	snap, err := h.ledger.Snapshot(sessionID)
	if err != nil {
		// Dibedakan dari ledger kosong: memang tidak ada job tercatat
		return ErrorResponse(c, 404, "No progress recorded for this session", "PROGRESS_NOT_FOUND", "")
	}
	return SuccessResponse(c, 200, "Progress retrieved", snap)
}

// DELETE /api/progress/:sessionId
func (h *DispatchHandler) DeleteProgress(c echo.Context) error {
	sessionID := c.Param("sessionId")

	if !h.ledger.Clear(sessionID) {
		return ErrorResponse(c, 404, "No progress recorded for this session", "PROGRESS_NOT_FOUND", "")
	}
	return SuccessResponse(c, 200, "Progress cleared", map[string]interface{}{
		"sessionId": sessionID,
	})
}
