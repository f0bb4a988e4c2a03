package config

import (
	"net"
	"strconv"
	"time"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

// ServerConfig is the root configuration for boardmesh-server.
type ServerConfig struct {
	Server    ServerSection    `koanf:"server" json:"server"`
	Storage   StorageSection   `koanf:"storage" json:"storage"`
	Board     BoardSection     `koanf:"board" json:"board"`
	Web       WebSection       `koanf:"web" json:"web"`
	Discovery DiscoverySection `koanf:"discovery" json:"discovery"`
	Log       LogSection       `koanf:"log" json:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http" json:"http"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Host        string `koanf:"host" json:"host"`
	Port        int    `koanf:"port" json:"port"`
	TLSCertFile string `koanf:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file" json:"tls_key_file"`

	// RateLimit is the per-IP request rate in requests per second.
	// Zero disables the limiter.
	RateLimit float64 `koanf:"rate_limit" json:"rate_limit"`
	RateBurst int     `koanf:"rate_burst" json:"rate_burst"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// StorageSection configures board persistence.
type StorageSection struct {
	// Backend is "file" or "badger".
	Backend    string `koanf:"backend" json:"backend"`
	HistoryDir string `koanf:"history_dir" json:"history_dir"`

	// SaveInterval is the quiet period after the last edit before a board
	// is saved.
	SaveInterval time.Duration `koanf:"save_interval" json:"save_interval"`
	// MaxSaveDelay bounds how long an edited board may stay unsaved.
	MaxSaveDelay time.Duration `koanf:"max_save_delay" json:"max_save_delay"`
	FlushTick    time.Duration `koanf:"flush_tick" json:"flush_tick"`

	BadgerGCInterval time.Duration `koanf:"badger_gc_interval" json:"badger_gc_interval"`
	SyncWrites       bool          `koanf:"sync_writes" json:"sync_writes"`
}

// BoardSection configures board bounds and ingestion.
type BoardSection struct {
	MaxItemCount int     `koanf:"max_item_count" json:"max_item_count"`
	MaxChildren  int     `koanf:"max_children" json:"max_children"`
	MaxBoardSize float64 `koanf:"max_board_size" json:"max_board_size"`

	MaxEmitCount       int           `koanf:"max_emit_count" json:"max_emit_count"`
	MaxEmitCountPeriod time.Duration `koanf:"max_emit_count_period" json:"max_emit_count_period"`

	BlockedTools       []string `koanf:"blocked_tools" json:"blocked_tools"`
	AutoFingerWhiteout bool     `koanf:"auto_finger_whiteout" json:"auto_finger_whiteout"`
}

// Limits returns the element bounds.
func (b BoardSection) Limits() domain.Limits {
	return domain.Limits{MaxBoardSize: b.MaxBoardSize, MaxChildren: b.MaxChildren}
}

// WebSection configures static file serving.
type WebSection struct {
	Root string `koanf:"root" json:"root"`
}

// DiscoverySection configures LAN advertisement over mDNS.
type DiscoverySection struct {
	Enabled  bool   `koanf:"enabled" json:"enabled"`
	Instance string `koanf:"instance" json:"instance"`
	Service  string `koanf:"service" json:"service"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
}
