package handler

import "github.com/labstack/echo/v4"

// Envelope standar: {"success": true, "data": ...} atau {"success": false, "error": ...}.

func SuccessResponse(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func ErrorResponse(c echo.Context, code int, message string, errorCode string, detail string) error {
	body := map[string]interface{}{
		"success": false,
		"error":   message,
		"code":    errorCode,
	}
	if detail != "" {
		body["detail"] = detail
	}
	return c.JSON(code, body)
}
