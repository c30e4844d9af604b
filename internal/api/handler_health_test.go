package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// --- Mock Pinger ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error {
	return m.err
}

// --- Livez ---

func TestLivez_ReturnsOK(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status: got %q, want %q", resp["status"], "ok")
	}
}

// --- Readyz ---

func TestReadyz_NoBackends_ReturnsOK(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusOK)
	}
}

func TestReadyz_AllHealthy(t *testing.T) {
	server := newTestServer(t, map[string]Pinger{
		"postgres": &mockPinger{},
		"blobs":    &mockPinger{},
	})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d\nbody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp readyzResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want %q", resp.Status, "ok")
	}
	if len(resp.Backends) != 2 {
		t.Fatalf("backends: got %d, want 2", len(resp.Backends))
	}
	for name, bs := range resp.Backends {
		if bs.Status != "ok" {
			t.Errorf("backend %s: got %q, want %q", name, bs.Status, "ok")
		}
	}
}

func TestReadyz_OneBackendDown(t *testing.T) {
	server := newTestServer(t, map[string]Pinger{
		"postgres": &mockPinger{},
		"blobs":    &mockPinger{err: errors.New("connection refused")},
	})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want %d\nbody: %s", w.Code, http.StatusServiceUnavailable, w.Body.String())
	}

	var resp readyzResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "unavailable" {
		t.Errorf("status: got %q, want %q", resp.Status, "unavailable")
	}
	if resp.Backends["postgres"].Status != "ok" {
		t.Errorf("postgres: got %q, want %q", resp.Backends["postgres"].Status, "ok")
	}
	if resp.Backends["blobs"].Status != "error" {
		t.Errorf("blobs: got %q, want %q", resp.Backends["blobs"].Status, "error")
	}
}
