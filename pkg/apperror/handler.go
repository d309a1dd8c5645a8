package apperror

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPErrorHandler returns an Echo error handler that renders application
// errors as {"error": {"code", "message", "details?"}} envelopes.
func HTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := map[string]any{
			"code":    "internal_error",
			"message": "An internal error occurred",
		}

		var appErr *Error
		var echoErr *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			status = appErr.HTTPStatus
			body["code"] = appErr.Code
			body["message"] = appErr.Message
			if len(appErr.Details) > 0 {
				body["details"] = appErr.Details
			}
		case errors.As(err, &echoErr):
			status = echoErr.Code
			if msg, ok := echoErr.Message.(string); ok {
				body["message"] = msg
				body["code"] = codeForStatus(status)
			}
		}

		if status >= 500 {
			log.Error("request error",
				slog.Int("status", status),
				slog.String("error", err.Error()),
			)
		}

		if c.Request().Method == http.MethodHead {
			c.NoContent(status)
			return
		}
		c.JSON(status, map[string]any{"error": body})
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_error"
	default:
		return "internal_error"
	}
}
