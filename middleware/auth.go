package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/VictorRop4/alx-travel-app-0x02/utils"
)

// AuthMiddleware validates the bearer token and injects the user id into the
// request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		_, claims, err := utils.ValidateAccessToken(tokenStr)
		if err != nil {
			if strings.Contains(err.Error(), "expired") {
				utils.WriteError(w, http.StatusUnauthorized, "Session expired, please log in again")
				return
			}
			utils.WriteError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		var userID uint
		switch v := claims["id"].(type) {
		case float64:
			userID = uint(v)
		case int:
			userID = uint(v)
		case string:
			var n uint
			_, _ = fmt.Sscanf(v, "%d", &n)
			userID = n
		}
		if userID == 0 {
			utils.WriteError(w, http.StatusUnauthorized, "Invalid token payload")
			return
		}

		ctx := context.WithValue(r.Context(), utils.UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
