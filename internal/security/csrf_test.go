package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCSRF(t *testing.T) {
	handler := CSRF{}.Middleware(okHandler())

	tests := []struct {
		name    string
		request func() *http.Request
		want    int
	}{
		{
			name: "safe method passes",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/protected", nil)
			},
			want: http.StatusOK,
		},
		{
			name: "post without token blocked",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/protected", nil)
			},
			want: http.StatusForbidden,
		},
		{
			name: "matching token and cookie pass",
			request: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/protected", nil)
				r.Header.Set("X-CSRF-Token", "tok-1")
				r.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "tok-1"})
				return r
			},
			want: http.StatusOK,
		},
		{
			name: "mismatched token blocked",
			request: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/protected", nil)
				r.Header.Set("X-CSRF-Token", "tok-1")
				r.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "tok-2"})
				return r
			},
			want: http.StatusForbidden,
		},
		{
			name: "bearer request exempt",
			request: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/protected", nil)
				r.Header.Set("Authorization", "Bearer abc.def")
				return r
			},
			want: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tt.request())
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
