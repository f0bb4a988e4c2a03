package confloader

import (
	"strings"
)

type legacyKind int

const (
	legacyRaw legacyKind = iota
	legacyMillis
	legacyList
	legacyEnabled
)

type legacyVar struct {
	key  string
	kind legacyKind
}

// legacyVars maps the variables of earlier deployments onto config keys.
var legacyVars = map[string]legacyVar{
	"PORT":                      {"server.http.port", legacyRaw},
	"HOST":                      {"server.http.host", legacyRaw},
	"WBO_HISTORY_DIR":           {"storage.history_dir", legacyRaw},
	"WBO_WEBROOT":               {"web.root", legacyRaw},
	"WBO_SAVE_INTERVAL":         {"storage.save_interval", legacyMillis},
	"WBO_MAX_SAVE_DELAY":        {"storage.max_save_delay", legacyMillis},
	"WBO_MAX_ITEM_COUNT":        {"board.max_item_count", legacyRaw},
	"WBO_MAX_CHILDREN":          {"board.max_children", legacyRaw},
	"WBO_MAX_BOARD_SIZE":        {"board.max_board_size", legacyRaw},
	"WBO_MAX_EMIT_COUNT":        {"board.max_emit_count", legacyRaw},
	"WBO_MAX_EMIT_COUNT_PERIOD": {"board.max_emit_count_period", legacyMillis},
	"WBO_BLOCKED_TOOLS":         {"board.blocked_tools", legacyList},
	"AUTO_FINGER_WHITEOUT":      {"board.auto_finger_whiteout", legacyEnabled},
}

// LegacyKeys returns the config key each legacy variable maps onto.
func LegacyKeys() map[string]string {
	out := make(map[string]string, len(legacyVars))
	for name, v := range legacyVars {
		out[name] = v.key
	}
	return out
}

// legacyValue is the env.ProviderWithValue callback. Unknown variables get
// an empty key, which the provider skips.
func legacyValue(name, value string) (string, any) {
	v, ok := legacyVars[name]
	if !ok {
		return "", nil
	}
	value = strings.TrimSpace(value)

	switch v.kind {
	case legacyMillis:
		// Bare numbers are milliseconds. Anything else is left for the
		// duration decoder ("5s").
		if isDigits(value) {
			return v.key, value + "ms"
		}
		return v.key, value
	case legacyList:
		tools := []string{}
		for _, t := range strings.Split(value, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tools = append(tools, t)
			}
		}
		return v.key, tools
	case legacyEnabled:
		return v.key, value != "disabled"
	default:
		return v.key, value
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
