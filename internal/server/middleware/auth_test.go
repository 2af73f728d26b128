package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lunabets/fairydust/internal/server/middleware"
)

func TestAuthGuardsOperatorSurface(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := middleware.Auth("op-key")(next)

	tests := []struct {
		name       string
		method     string
		path       string
		header     func(*http.Request)
		wantStatus int
	}{
		{
			name:       "market read is public",
			method:     http.MethodGet,
			path:       "/api/markets/1",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wager placement is public",
			method:     http.MethodPost,
			path:       "/api/wagers",
			wantStatus: http.StatusOK,
		},
		{
			name:       "market creation without key",
			method:     http.MethodPost,
			path:       "/api/markets",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "resolve with wrong key",
			method:     http.MethodPost,
			path:       "/api/markets/1/resolve",
			header:     func(r *http.Request) { r.Header.Set("X-API-Key", "wrong") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "odds update with bearer key",
			method:     http.MethodPut,
			path:       "/api/markets/1/odds",
			header:     func(r *http.Request) { r.Header.Set("Authorization", "Bearer op-key") },
			wantStatus: http.StatusOK,
		},
		{
			name:       "annul with api key header",
			method:     http.MethodPost,
			path:       "/api/markets/1/annul",
			header:     func(r *http.Request) { r.Header.Set("X-API-Key", "op-key") },
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != nil {
				tt.header(req)
			}
			rec := httptest.NewRecorder()
			guarded.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	open := middleware.Auth("")(next)

	req := httptest.NewRequest(http.MethodPost, "/api/markets", nil)
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", rec.Code)
	}
}
