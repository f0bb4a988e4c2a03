package confloader

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/yndnr/boardmesh-go/internal/server/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestNewLoader_WithOptions(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix || !l.legacy {
		t.Errorf("defaults = %q legacy=%v", l.envPrefix, l.legacy)
	}

	l = NewLoader(
		WithEnvPrefix("TEST_"),
		WithConfigFile("/path/to/config.yaml"),
		WithLegacyEnv(false),
	)
	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.FilePath() != "/path/to/config.yaml" {
		t.Errorf("FilePath() = %q", l.FilePath())
	}
	if l.legacy {
		t.Error("legacy env should be disabled")
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    port: 9000
storage:
  history_dir: /srv/boards
  save_interval: 5s
board:
  blocked_tools: [Text, Ellipse]
`)

	l := NewLoader(WithConfigFile(path), WithLegacyEnv(false))
	cfg := config.Default()
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTP.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.HTTP.Port)
	}
	if cfg.Storage.HistoryDir != "/srv/boards" || cfg.Storage.SaveInterval != 5*time.Second {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if !reflect.DeepEqual(cfg.Board.BlockedTools, []string{"Text", "Ellipse"}) {
		t.Errorf("BlockedTools = %v", cfg.Board.BlockedTools)
	}
	// Untouched keys keep their defaults.
	if cfg.Storage.MaxSaveDelay != config.DefaultMaxSaveDelay || cfg.Board.MaxItemCount != 32768 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() should return error for nonexistent file")
	}
	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") should not error, got: %v", err)
	}
}

func TestLoader_Env_SectionSeparator(t *testing.T) {
	t.Setenv("BOARDMESH_STORAGE__HISTORY_DIR", "/data/history")
	t.Setenv("BOARDMESH_SERVER__HTTP__PORT", "7000")

	l := NewLoader(WithLegacyEnv(false))
	cfg := config.Default()
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.HistoryDir != "/data/history" {
		t.Errorf("storage.history_dir = %q", cfg.Storage.HistoryDir)
	}
	if cfg.Server.HTTP.Port != 7000 {
		t.Errorf("server.http.port = %d", cfg.Server.HTTP.Port)
	}
}

func TestLoader_Env_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_WEB__ROOT", "/opt/web")
	t.Setenv("BOARDMESH_WEB__ROOT", "/ignored")

	l := NewLoader(WithEnvPrefix("MYAPP_"), WithLegacyEnv(false))
	cfg := config.Default()
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Web.Root != "/opt/web" {
		t.Errorf("web.root = %q, want /opt/web", cfg.Web.Root)
	}
	if got := l.Get("web.root"); got != "/opt/web" {
		t.Errorf("Get(web.root) = %v", got)
	}
}

func TestLoader_LegacyEnvOverridesDefaults(t *testing.T) {
	t.Setenv("PORT", "5001")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("WBO_HISTORY_DIR", "/legacy/history")
	t.Setenv("WBO_WEBROOT", "/legacy/web")
	t.Setenv("WBO_SAVE_INTERVAL", "1500")
	t.Setenv("WBO_MAX_SAVE_DELAY", "30000")
	t.Setenv("WBO_MAX_ITEM_COUNT", "100")
	t.Setenv("WBO_MAX_CHILDREN", "50")
	t.Setenv("WBO_MAX_BOARD_SIZE", "1000")
	t.Setenv("WBO_MAX_EMIT_COUNT", "10")
	t.Setenv("WBO_MAX_EMIT_COUNT_PERIOD", "1000")
	t.Setenv("WBO_BLOCKED_TOOLS", "Text, Ellipse,")
	t.Setenv("AUTO_FINGER_WHITEOUT", "disabled")

	cfg := config.Default()
	if err := NewLoader().Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTP.Port != 5001 || cfg.Server.HTTP.Host != "127.0.0.1" {
		t.Errorf("HTTP = %+v", cfg.Server.HTTP)
	}
	if cfg.Storage.HistoryDir != "/legacy/history" || cfg.Web.Root != "/legacy/web" {
		t.Errorf("paths = %q %q", cfg.Storage.HistoryDir, cfg.Web.Root)
	}
	if cfg.Storage.SaveInterval != 1500*time.Millisecond || cfg.Storage.MaxSaveDelay != 30*time.Second {
		t.Errorf("save policy = %v / %v", cfg.Storage.SaveInterval, cfg.Storage.MaxSaveDelay)
	}
	b := cfg.Board
	if b.MaxItemCount != 100 || b.MaxChildren != 50 || b.MaxBoardSize != 1000 {
		t.Errorf("bounds = %+v", b)
	}
	if b.MaxEmitCount != 10 || b.MaxEmitCountPeriod != time.Second {
		t.Errorf("emit = %d / %v", b.MaxEmitCount, b.MaxEmitCountPeriod)
	}
	if !reflect.DeepEqual(b.BlockedTools, []string{"Text", "Ellipse"}) {
		t.Errorf("BlockedTools = %v", b.BlockedTools)
	}
	if b.AutoFingerWhiteout {
		t.Error("AUTO_FINGER_WHITEOUT=disabled should turn auto white-out off")
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, `
storage:
  history_dir: from-file
web:
  root: from-file
`)
	t.Setenv("BOARDMESH_STORAGE__HISTORY_DIR", "from-env")
	t.Setenv("BOARDMESH_WEB__ROOT", "from-env")
	t.Setenv("WBO_WEBROOT", "from-legacy")

	cfg := config.Default()
	if err := NewLoader(WithConfigFile(path)).Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.HistoryDir != "from-env" {
		t.Errorf("HistoryDir = %q, env should override file", cfg.Storage.HistoryDir)
	}
	if cfg.Web.Root != "from-legacy" {
		t.Errorf("Web.Root = %q, legacy should override prefixed env", cfg.Web.Root)
	}
}

func TestLoader_Reload(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	l := NewLoader(WithConfigFile(path), WithLegacyEnv(false))

	cfg := config.Default()
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg = config.Default()
	if err := l.Reload(cfg); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q after reload", cfg.Log.Level)
	}
}

func TestLoader_OverridesWin(t *testing.T) {
	path := writeConfig(t, "server:\n  http:\n    port: 9000\n")
	t.Setenv("PORT", "5001")
	t.Setenv("BOARDMESH_STORAGE__HISTORY_DIR", "from-env")

	l := NewLoader(WithConfigFile(path), WithOverrides(map[string]any{
		"server.http.port":    3000,
		"storage.history_dir": "from-flag",
	}))
	cfg := config.Default()
	if err := l.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTP.Port != 3000 {
		t.Errorf("port = %d, override should beat file and legacy env", cfg.Server.HTTP.Port)
	}
	if cfg.Storage.HistoryDir != "from-flag" {
		t.Errorf("history_dir = %q", cfg.Storage.HistoryDir)
	}
}

func TestWithOverrides_EmptyIsIgnored(t *testing.T) {
	if l := NewLoader(WithOverrides(map[string]any{})); l.overrides != nil {
		t.Errorf("overrides = %v", l.overrides)
	}
}

func TestLegacyValue(t *testing.T) {
	tests := []struct {
		name, value string
		wantKey     string
		want        any
	}{
		{"WBO_SAVE_INTERVAL", "2000", "storage.save_interval", "2000ms"},
		{"WBO_SAVE_INTERVAL", "3s", "storage.save_interval", "3s"},
		{"WBO_BLOCKED_TOOLS", "", "board.blocked_tools", []string{}},
		{"AUTO_FINGER_WHITEOUT", "enabled", "board.auto_finger_whiteout", true},
		{"PATH", "/usr/bin", "", nil},
	}
	for _, tt := range tests {
		key, got := legacyValue(tt.name, tt.value)
		if key != tt.wantKey || !reflect.DeepEqual(got, tt.want) {
			t.Errorf("legacyValue(%q, %q) = %q, %#v", tt.name, tt.value, key, got)
		}
	}
	if LegacyKeys()["WBO_WEBROOT"] != "web.root" {
		t.Error("LegacyKeys missing WBO_WEBROOT")
	}
}
