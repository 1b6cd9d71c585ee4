package middleware

import (
	"crypto/subtle"
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"
)

// BasicAuth защищает API единственной учётной записью. Пароль хранится
// в конфиге как bcrypt-хеш.
func BasicAuth(log *slog.Logger, username, passwordHash string) echo.MiddlewareFunc {
	hash := []byte(passwordHash)

	return echomw.BasicAuth(func(user, password string, c echo.Context) (bool, error) {
		if subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 {
			log.Debug("basic auth: unknown user", slog.String("remote ip", c.RealIP()))
			return false, nil
		}

		if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
			log.Debug("basic auth: wrong password", slog.String("remote ip", c.RealIP()))
			return false, nil
		}

		return true, nil
	})
}
