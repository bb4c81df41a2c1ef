package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var statusMessages = map[int]string{
	http.StatusBadRequest:            "Permintaan tidak valid",
	http.StatusUnauthorized:          "Silakan login terlebih dahulu",
	http.StatusForbidden:             "Akses ditolak",
	http.StatusNotFound:              "Endpoint tidak ditemukan",
	http.StatusMethodNotAllowed:      "Metode tidak diizinkan",
	http.StatusRequestEntityTooLarge: "Ukuran permintaan terlalu besar",
	http.StatusTooManyRequests:       "Terlalu banyak permintaan",
}

// ErrorHandler renders errors that escape handlers (unknown routes, bind
// failures, recovered panics) in the {message, error?} envelope.  The
// error detail is only included when debug is true.
func ErrorHandler(log *zap.Logger, debug bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}
		msg, ok := statusMessages[code]
		if !ok {
			msg = "Terjadi kesalahan pada server"
		}
		if code >= 500 {
			log.Error("unhandled error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		}
		body := echo.Map{"message": msg}
		if debug {
			body["error"] = err.Error()
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}
