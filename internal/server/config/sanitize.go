package config

import "path/filepath"

// Sanitize returns a copy of the config that is safe to expose.
//
// Local paths are reduced to their base name and the key file path is
// hidden. This is used for the config dump endpoint and startup logs.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.Board.BlockedTools = append([]string(nil), cfg.Board.BlockedTools...)

	if sanitized.Server.HTTP.TLSKeyFile != "" {
		sanitized.Server.HTTP.TLSKeyFile = maskSecret(sanitized.Server.HTTP.TLSKeyFile)
	}
	sanitized.Storage.HistoryDir = baseName(sanitized.Storage.HistoryDir)
	sanitized.Web.Root = baseName(sanitized.Web.Root)

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func baseName(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Base(p)
}
