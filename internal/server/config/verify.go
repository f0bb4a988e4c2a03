package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyBoard(&cfg.Board); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.HTTP.Port < 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("server.http.port %d out of range", cfg.HTTP.Port)
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	if cfg.HTTP.RateLimit < 0 {
		return errors.New("server.http.rate_limit must not be negative")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case BackendFile, BackendBadger:
	default:
		return fmt.Errorf("storage.backend %q is not one of file, badger", cfg.Backend)
	}
	if cfg.HistoryDir == "" {
		return errors.New("storage.history_dir is required")
	}

	// Check if the directory exists or can be created
	if err := os.MkdirAll(cfg.HistoryDir, 0750); err != nil {
		return errors.New("cannot create history directory: " + err.Error())
	}

	if cfg.SaveInterval <= 0 {
		return errors.New("storage.save_interval must be positive")
	}
	if cfg.MaxSaveDelay < cfg.SaveInterval {
		return errors.New("storage.max_save_delay must not be shorter than storage.save_interval")
	}
	return nil
}

func verifyBoard(cfg *BoardSection) error {
	if cfg.MaxItemCount < 1 {
		return errors.New("board.max_item_count must be at least 1")
	}
	if cfg.MaxChildren < 0 {
		return errors.New("board.max_children must not be negative")
	}
	if cfg.MaxBoardSize <= 0 {
		return errors.New("board.max_board_size must be positive")
	}
	if cfg.MaxEmitCount < 1 || cfg.MaxEmitCountPeriod <= 0 {
		return errors.New("board.max_emit_count and max_emit_count_period must be positive")
	}
	for _, tool := range cfg.BlockedTools {
		if strings.Contains(tool, ",") {
			return fmt.Errorf("board.blocked_tools: tool name %q contains a comma", tool)
		}
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, ok := logger.ParseLevel(cfg.Level); !ok {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	if !logger.ValidFormat(cfg.Format) {
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}
