package connection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func healthServer(t *testing.T, status string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"code":"OK","data":{"status":"` + status + `"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewManager(t *testing.T) {
	m := NewManager()
	if m.Current() != nil {
		t.Error("new manager should have no current connection")
	}
	if _, err := m.HTTP(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HTTP() error = %v, want ErrNotConnected", err)
	}
}

func TestManager_Connect(t *testing.T) {
	srv := healthServer(t, "healthy")
	m := NewManager()

	conn := &Connection{Name: "local", Server: srv.URL}
	if err := m.Connect(context.Background(), conn); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if m.Current() != conn || !m.IsConnected() {
		t.Error("Current() should return the connected connection")
	}
	client, err := m.HTTP()
	if err != nil || client.BaseURL() != srv.URL {
		t.Errorf("HTTP() = %v, %v", client, err)
	}

	m.Disconnect()
	if m.IsConnected() {
		t.Error("should not be connected after Disconnect")
	}
}

func TestManager_ConnectRejectsUnhealthy(t *testing.T) {
	srv := healthServer(t, "degraded")
	m := NewManager()

	if err := m.Connect(context.Background(), &Connection{Server: srv.URL}); err == nil {
		t.Fatal("Connect to unhealthy server should fail")
	}
	if err := m.Connect(context.Background(), &Connection{}); err == nil {
		t.Fatal("Connect without server should fail")
	}
	if m.IsConnected() {
		t.Error("failed Connect changed the current connection")
	}
}

func TestManager_SavedConnections(t *testing.T) {
	m := NewManager()

	if err := m.Add(Connection{Name: "prod", Server: "https://boards.example.com"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Add(Connection{Name: "dev", Server: "localhost:8080"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Add(Connection{Server: "x"}); err == nil {
		t.Error("Add without name should fail")
	}
	if err := m.Add(Connection{Name: "empty"}); err == nil {
		t.Error("Add without server should fail")
	}

	saved := m.Saved()
	if len(saved) != 2 || saved[0].Name != "dev" || saved[1].Name != "prod" {
		t.Fatalf("Saved() = %+v", saved)
	}

	if err := m.Use("missing"); err == nil {
		t.Error("Use of unknown connection should fail")
	}
	if err := m.Use("prod"); err != nil {
		t.Fatalf("Use: %v", err)
	}
	if c := m.Current(); c == nil || c.Server != "https://boards.example.com" {
		t.Fatalf("Current() = %+v", c)
	}

	if !m.Remove("prod") {
		t.Fatal("Remove returned false")
	}
	if m.IsConnected() {
		t.Error("removing the current connection should disconnect")
	}
	if m.Remove("prod") {
		t.Error("second Remove returned true")
	}
}
