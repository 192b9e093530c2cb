package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/api/respond"
	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/auth"
)

// AccessTokenCookie carries the JWT for browser sessions.
const AccessTokenCookie = "access_token"

var (
	errUnauthorized = apperr.New(apperr.ErrUnauthenticated, "please log in to continue")
	errInvalidToken = apperr.New(apperr.ErrUnauthenticated, "session expired, please log in again")
	errForbidden    = apperr.Forbidden("forbidden")
)

// ExtractToken extracts JWT token from cookie or Authorization header
func ExtractToken(r *http.Request) string {
	// Try cookie first (for browser)
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	// Fall back to Authorization header (for API clients)
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

type contextKey string

const (
	UserContextKey    contextKey = "user"
	SessionContextKey contextKey = "session"
)

// AccountChecker confirms that the account behind a valid token may still
// act. It returns an apperr-kinded error for deactivated or removed accounts.
type AccountChecker interface {
	CheckActive(ctx context.Context, userID string) error
}

// authenticate validates the request token and, when accounts is set, the
// account it names.
func authenticate(r *http.Request, jwtService *auth.JWTService, accounts AccountChecker) (*auth.Claims, error) {
	tokenString := ExtractToken(r)
	if tokenString == "" {
		return nil, errUnauthorized
	}
	claims, err := jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, errInvalidToken
	}
	if accounts != nil {
		if err := accounts.CheckActive(r.Context(), claims.UserID); err != nil {
			return nil, err
		}
	}
	return claims, nil
}

// AuthMiddleware validates JWT tokens and adds user claims to context.
// Claims already placed by OptionalAuthMiddleware are trusted as is.
func AuthMiddleware(jwtService *auth.JWTService, accounts AccountChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetUserFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := authenticate(r, jwtService, accounts)
			if err != nil {
				if err != errUnauthorized && apperr.IsKnown(err) {
					ClearAccessToken(w)
				}
				respond.Error(w, r, err, respond.LoginPath)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware adds user claims to context if token is present, but doesn't require it
func OptionalAuthMiddleware(jwtService *auth.JWTService, accounts AccountChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ExtractToken(r) != "" {
				claims, err := authenticate(r, jwtService, accounts)
				if err == nil {
					r = r.WithContext(context.WithValue(r.Context(), UserContextKey, claims))
				} else if !apperr.IsKnown(err) {
					log.Printf("[Auth] Account check failed: %v", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClearAccessToken expires the browser's token cookie.
func ClearAccessToken(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// RequireRole checks if the user has one of the required roles
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserFromContext(r.Context())
			if !ok {
				respond.Error(w, r, errUnauthorized, respond.LoginPath)
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			respond.Error(w, r, errForbidden, "/")
		})
	}
}

// GetUserFromContext retrieves user claims from the request context
func GetUserFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*auth.Claims)
	return claims, ok
}

// PrincipalFrom returns the request's actor; the zero Principal when anonymous.
func PrincipalFrom(ctx context.Context) auth.Principal {
	claims, ok := GetUserFromContext(ctx)
	if !ok {
		return auth.Principal{}
	}
	return claims.Principal()
}

// GetUserID is a helper to get just the user ID from context
func GetUserID(ctx context.Context) string {
	return PrincipalFrom(ctx).ID
}
