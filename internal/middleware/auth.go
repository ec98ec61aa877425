package middleware

import (
	"context"
	"net/http"
	"strings"

	"go-timetable-admin/internal/model"
)

type tokenValidator interface {
	ValidateToken(tokenString string, expectedType string) (*model.AuthClaims, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

// AuthMiddleware accepts an access token from the Authorization header or,
// for browser downloads, from the session cookie.
type AuthMiddleware struct {
	validator  tokenValidator
	cookieName string
}

func NewAuthMiddleware(validator tokenValidator, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{validator: validator, cookieName: cookieName}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.tokenFromRequest(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		claims, err := m.validator.ValidateToken(token, "access")
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authClaimsContextKey, claims)))
	})
}

// OptionalAuth attaches claims when a valid token is present and otherwise
// lets the request through anonymously.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := m.tokenFromRequest(r); token != "" {
			if claims, err := m.validator.ValidateToken(token, "access"); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), authClaimsContextKey, claims))
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...model.Role) func(http.Handler) http.Handler {
	roleSet := make(map[model.Role]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		roleSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			role, valid := model.ParseRole(claims.Role)
			if _, allowed := roleSet[role]; !valid || !allowed {
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) tokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}

	if m.cookieName == "" {
		return ""
	}
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func ClaimsFromContext(ctx context.Context) (*model.AuthClaims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*model.AuthClaims)
	return claims, ok
}

// IdentityFromRequest returns the authenticated caller, or nil for an
// anonymous request.
func IdentityFromRequest(r *http.Request) *model.Identity {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		return nil
	}

	return &model.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		IP:       ClientIP(r),
	}
}
