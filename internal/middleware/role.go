package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warnet-bowar/internal/model"
)

// RequireRole aborts with 403 unless the caller holds one of roles.  It
// must run after JWTAuth.  Operators additionally need an assigned warnet,
// since every operator action is scoped to it.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Silakan login terlebih dahulu"})
			}
			if !allowed[id.Role] || (id.Role == model.RoleOperator && id.WarnetID == nil) {
				return c.JSON(http.StatusForbidden, echo.Map{"message": "Akses ditolak"})
			}
			return next(c)
		}
	}
}
