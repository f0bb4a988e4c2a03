package connection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNotConnected is returned when no server is selected.
var ErrNotConnected = errors.New("connection: not connected")

// Connection names one server.
type Connection struct {
	Name   string
	Server string
}

// Manager tracks saved connections and the current one.
type Manager struct {
	mu      sync.RWMutex
	current *Connection
	saved   map[string]Connection
}

// NewManager creates a new connection manager.
func NewManager() *Manager {
	return &Manager{saved: make(map[string]Connection)}
}

// Add saves conn under its name, replacing an existing entry.
func (m *Manager) Add(conn Connection) error {
	if conn.Name == "" {
		return fmt.Errorf("connection name required")
	}
	if conn.Server == "" {
		return fmt.Errorf("connection %q has no server", conn.Name)
	}
	m.mu.Lock()
	m.saved[conn.Name] = conn
	m.mu.Unlock()
	return nil
}

// Remove deletes a saved connection. Removing the current connection
// disconnects.
func (m *Manager) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.saved[name]; !ok {
		return false
	}
	delete(m.saved, name)
	if m.current != nil && m.current.Name == name {
		m.current = nil
	}
	return true
}

// Saved returns the saved connections sorted by name.
func (m *Manager) Saved() []Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Connection, 0, len(m.saved))
	for _, c := range m.saved {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Use selects a saved connection without probing it.
func (m *Manager) Use(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.saved[name]
	if !ok {
		return fmt.Errorf("no saved connection %q", name)
	}
	m.current = &c
	return nil
}

// Connect probes conn's health endpoint and makes it current.
func (m *Manager) Connect(ctx context.Context, conn *Connection) error {
	if conn == nil || conn.Server == "" {
		return fmt.Errorf("server address required")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := NewHTTPClient(conn.Server).Get(ctx, "/health")
	if err != nil {
		return fmt.Errorf("probe %s: %w", conn.Server, err)
	}
	var health struct {
		Status string `json:"status"`
	}
	if err := ParseResponse(resp, &health); err != nil {
		return fmt.Errorf("probe %s: %w", conn.Server, err)
	}
	if health.Status != "healthy" {
		return fmt.Errorf("server %s reports %q", conn.Server, health.Status)
	}

	m.mu.Lock()
	m.current = conn
	m.mu.Unlock()
	return nil
}

// Disconnect clears the current connection.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

// Current returns the current connection.
func (m *Manager) Current() *Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsConnected returns true if a server is selected.
func (m *Manager) IsConnected() bool {
	return m.Current() != nil
}

// HTTP returns an API client for the current connection.
func (m *Manager) HTTP() (*HTTPClient, error) {
	c := m.Current()
	if c == nil {
		return nil, ErrNotConnected
	}
	return NewHTTPClient(c.Server), nil
}
