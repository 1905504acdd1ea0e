package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireAuthorization(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{name: "valid token", token: "secret", header: "Bearer secret", want: http.StatusOK},
		{name: "wrong token", token: "secret", header: "Bearer wrong", want: http.StatusUnauthorized},
		{name: "missing header", token: "secret", header: "", want: http.StatusUnauthorized},
		{name: "missing bearer prefix", token: "secret", header: "secret", want: http.StatusOK},
		{name: "empty token disables check", token: "", header: "", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAuthorization(tt.token)(next)

			req := httptest.NewRequest(http.MethodGet, "/supported", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
