package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.HTTP.Port != DefaultHTTPPort {
		t.Errorf("HTTP.Port = %d, want %d", cfg.Server.HTTP.Port, DefaultHTTPPort)
	}
	if cfg.Storage.SaveInterval != 2*time.Second || cfg.Storage.MaxSaveDelay != time.Minute {
		t.Errorf("save policy = %v / %v", cfg.Storage.SaveInterval, cfg.Storage.MaxSaveDelay)
	}
	if cfg.Board.MaxItemCount != 32768 || cfg.Board.MaxChildren != 192 || cfg.Board.MaxBoardSize != 65536 {
		t.Errorf("board bounds = %+v", cfg.Board)
	}
	if cfg.Board.MaxEmitCount != 192 || cfg.Board.MaxEmitCountPeriod != 4096*time.Millisecond {
		t.Errorf("emit rate = %d / %v", cfg.Board.MaxEmitCount, cfg.Board.MaxEmitCountPeriod)
	}
	if !cfg.Board.AutoFingerWhiteout {
		t.Error("AutoFingerWhiteout should default to true")
	}
	if cfg.Storage.Backend != BackendFile {
		t.Errorf("Backend = %q", cfg.Storage.Backend)
	}
}

func TestHTTPConfig_Addr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8080, ":8080"},
		{"127.0.0.1", 80, "127.0.0.1:80"},
		{"::1", 8080, "[::1]:8080"},
	}
	for _, tt := range tests {
		if got := (HTTPConfig{Host: tt.host, Port: tt.port}).Addr(); got != tt.want {
			t.Errorf("Addr(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"defaults", func(*ServerConfig) {}, ""},
		{"bad backend", func(c *ServerConfig) { c.Storage.Backend = "s3" }, "storage.backend"},
		{"empty history dir", func(c *ServerConfig) { c.Storage.HistoryDir = "" }, "history_dir"},
		{"ceiling below debounce", func(c *ServerConfig) { c.Storage.MaxSaveDelay = time.Second }, "max_save_delay"},
		{"port out of range", func(c *ServerConfig) { c.Server.HTTP.Port = 70000 }, "port"},
		{"cert without key", func(c *ServerConfig) { c.Server.HTTP.TLSCertFile = "cert.pem" }, "tls"},
		{"zero item count", func(c *ServerConfig) { c.Board.MaxItemCount = 0 }, "max_item_count"},
		{"comma in tool", func(c *ServerConfig) { c.Board.BlockedTools = []string{"a,b"} }, "comma"},
		{"zero emit period", func(c *ServerConfig) { c.Board.MaxEmitCountPeriod = 0 }, "max_emit_count"},
		{"unknown log level", func(c *ServerConfig) { c.Log.Level = "verbose" }, "log.level"},
		{"unknown log format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Storage.HistoryDir = filepath.Join(t.TempDir(), "history")
			tt.mutate(cfg)

			err := Verify(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Verify() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Verify() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	cfg := Default()
	cfg.Server.HTTP.TLSKeyFile = "/etc/boardmesh/secret-key.pem"
	cfg.Storage.HistoryDir = "/srv/boards/history"
	cfg.Board.BlockedTools = []string{"Text"}

	sanitized := Sanitize(cfg)

	if cfg.Server.HTTP.TLSKeyFile != "/etc/boardmesh/secret-key.pem" || cfg.Storage.HistoryDir != "/srv/boards/history" {
		t.Error("original config should not be modified")
	}
	if sanitized.Server.HTTP.TLSKeyFile != "****.pem" {
		t.Errorf("TLSKeyFile = %q", sanitized.Server.HTTP.TLSKeyFile)
	}
	if sanitized.Storage.HistoryDir != "history" {
		t.Errorf("HistoryDir = %q", sanitized.Storage.HistoryDir)
	}
	sanitized.Board.BlockedTools[0] = "changed"
	if cfg.Board.BlockedTools[0] != "Text" {
		t.Error("blocked tools slice shared with the original")
	}
}

func TestBoardSection_Limits(t *testing.T) {
	lim := Default().Board.Limits()
	if lim.MaxBoardSize != 65536 || lim.MaxChildren != 192 {
		t.Fatalf("Limits = %+v", lim)
	}
}
