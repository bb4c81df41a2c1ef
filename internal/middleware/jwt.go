package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warnet-bowar/internal/model"
	"github.com/iliyamo/warnet-bowar/internal/utils"
)

// JWTAuth validates the Bearer access token and stores the caller as a
// model.Identity (user id, role and, for operators, warnet) on the
// context.  Handlers read it back with IdentityFrom.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Token tidak ditemukan"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Token tidak valid atau kedaluwarsa"})
			}
			uid, err := claims.UserID()
			if err != nil || (claims.Role != model.RoleUser && claims.Role != model.RoleOperator) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Token tidak valid atau kedaluwarsa"})
			}
			SetIdentity(c, model.Identity{UserID: uid, Role: claims.Role, WarnetID: claims.WarnetID})
			return next(c)
		}
	}
}
