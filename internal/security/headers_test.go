package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHeadersSetOnTLS(t *testing.T) {
	mw := Headers{Enable: true, EnableHSTS: true, HSTSIncludeSubdomains: true}
	handler := mw.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "https://club.example/api/v1/events", nil)
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("Strict-Transport-Security = %q", got)
	}
}

func TestHeadersNoHSTSWithoutTLS(t *testing.T) {
	mw := Headers{Enable: true, EnableHSTS: true}
	rec := httptest.NewRecorder()
	mw.Middleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://club.example/", nil))
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be set on plaintext connections")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("expected frame options header")
	}
}

func TestHeadersDisabled(t *testing.T) {
	mw := Headers{EnableHSTS: true}
	rec := httptest.NewRecorder()
	mw.Middleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://club.example/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "" {
		t.Fatal("disabled middleware must not set headers")
	}
}

func TestAllowCORSAllowlist(t *testing.T) {
	handler := AllowCORS("https://members.club.example")(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "http://localhost/api/v1/events", nil)
	req.Header.Set("Origin", "https://members.club.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight for allowed origin: got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://members.club.example" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}

	denied := httptest.NewRequest(http.MethodOptions, "http://localhost/api/v1/events", nil)
	denied.Header.Set("Origin", "https://evil.example")
	deniedRec := httptest.NewRecorder()
	handler.ServeHTTP(deniedRec, denied)
	if deniedRec.Code != http.StatusForbidden {
		t.Fatalf("preflight for denied origin: got %d", deniedRec.Code)
	}
}
