package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/ashworth-collective/backend-club/internal/common"
	"github.com/ashworth-collective/backend-club/internal/member"
)

var errNoToken = errors.New("auth: token missing")

// Middleware wires authentication context into HTTP handlers. Verified
// subjects are resolved against the member directory so downstream handlers
// see a member id and roles, not raw provider claims.
type Middleware struct {
	Service *Service
	Members member.Directory
}

// Authenticate attaches member identity to the request context when a valid
// token is present, and passes the request through untouched otherwise.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth enforces that a valid token mapping to a known member is
// present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			if errors.Is(err, errNoToken) {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			var appErr *common.AppError
			if errors.As(err, &appErr) {
				status := appErr.HTTPStatus
				if status == 0 {
					status = http.StatusUnauthorized
				}
				common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
				return
			}
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole returns middleware enforcing that the authenticated member
// carries the given role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := common.MemberID(r.Context()); !ok {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "forbidden", nil)
				return
			}
			if !slices.Contains(common.Roles(r.Context()), role) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, error) {
	if m.Service == nil || m.Members == nil {
		return r.Context(), errors.New("auth: middleware not configured")
	}
	token := extractToken(r)
	if token == "" {
		return r.Context(), errNoToken
	}
	identity, err := m.Service.ParseBearer(r.Context(), token)
	if err != nil {
		return r.Context(), err
	}
	resolved, err := m.Members.GetBySubject(r.Context(), identity.Subject)
	if err != nil {
		return r.Context(), err
	}
	ctx := common.WithSubject(r.Context(), identity.Subject)
	ctx = common.WithMemberID(ctx, resolved.ID)
	ctx = common.WithRoles(ctx, resolved.Roles)
	return ctx, nil
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
