package config

import (
	"time"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

// Default configuration values.
const (
	DefaultHTTPPort        = 8080
	DefaultRateLimit       = 50
	DefaultRateBurst       = 100
	DefaultShutdownTimeout = 10 * time.Second

	BackendFile   = "file"
	BackendBadger = "badger"

	DefaultHistoryDir       = "./server-data"
	DefaultSaveInterval     = 2 * time.Second
	DefaultMaxSaveDelay     = 60 * time.Second
	DefaultFlushTick        = 250 * time.Millisecond
	DefaultBadgerGCInterval = 10 * time.Minute

	DefaultMaxEmitCount       = 192
	DefaultMaxEmitCountPeriod = 4096 * time.Millisecond

	DefaultWebRoot = "./client-data"

	DefaultDiscoveryService = "_boardmesh._tcp"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Port:            DefaultHTTPPort,
				RateLimit:       DefaultRateLimit,
				RateBurst:       DefaultRateBurst,
				ShutdownTimeout: DefaultShutdownTimeout,
			},
		},
		Storage: StorageSection{
			Backend:          BackendFile,
			HistoryDir:       DefaultHistoryDir,
			SaveInterval:     DefaultSaveInterval,
			MaxSaveDelay:     DefaultMaxSaveDelay,
			FlushTick:        DefaultFlushTick,
			BadgerGCInterval: DefaultBadgerGCInterval,
			SyncWrites:       true,
		},
		Board: BoardSection{
			MaxItemCount:       domain.DefaultMaxItemCount,
			MaxChildren:        domain.DefaultMaxChildren,
			MaxBoardSize:       domain.DefaultMaxBoardSize,
			MaxEmitCount:       DefaultMaxEmitCount,
			MaxEmitCountPeriod: DefaultMaxEmitCountPeriod,
			BlockedTools:       []string{},
			AutoFingerWhiteout: true,
		},
		Web: WebSection{
			Root: DefaultWebRoot,
		},
		Discovery: DiscoverySection{
			Service: DefaultDiscoveryService,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
