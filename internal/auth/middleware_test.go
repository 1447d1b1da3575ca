package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashworth-collective/backend-club/internal/common"
	"github.com/ashworth-collective/backend-club/internal/member"
)

type stubDirectory struct {
	members map[string]member.Member
}

func (s stubDirectory) GetBySubject(_ context.Context, subject string) (member.Member, error) {
	if m, ok := s.members[subject]; ok {
		return m, nil
	}
	return member.Member{}, common.NewAppError("NOT_FOUND", "member not found", http.StatusNotFound, nil)
}

func testMiddleware(t *testing.T) Middleware {
	t.Helper()
	return Middleware{
		Service: testService(t),
		Members: stubDirectory{members: map[string]member.Member{
			"idp|alex": {ID: "9f4a1c7e-0000-0000-0000-000000000001", Subject: "idp|alex", Roles: []string{"member", "admin"}},
		}},
	}
}

func TestRequireAuthMissingToken(t *testing.T) {
	mw := testMiddleware(t)
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a token")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestRequireAuthResolvesMember(t *testing.T) {
	mw := testMiddleware(t)
	var gotID string
	var gotRoles []string
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = common.MemberID(r.Context())
		gotRoles = common.Roles(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, nil))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d: %s", rr.Code, rr.Body.String())
	}
	if gotID != "9f4a1c7e-0000-0000-0000-000000000001" {
		t.Fatalf("unexpected member id %q", gotID)
	}
	if len(gotRoles) != 2 {
		t.Fatalf("unexpected roles %v", gotRoles)
	}
}

func TestRequireAuthUnknownSubject(t *testing.T) {
	mw := Middleware{Service: testService(t), Members: stubDirectory{}}
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run for unknown subject")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, nil))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequireRole("admin")(next)

	ctx := common.WithMemberID(context.Background(), "some-id")
	ctx = common.WithRoles(ctx, []string{"member"})
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rr.Code)
	}

	ctx = common.WithRoles(ctx, []string{"member", "admin"})
	req = httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for admin, got %d", rr.Code)
	}
}
