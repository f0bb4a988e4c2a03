package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("snapshot: backend closed")

// Backend persists whole-board snapshots.
type Backend interface {
	// Save writes the full element mapping of board. An empty mapping
	// removes the stored snapshot.
	Save(board string, elements map[string]*domain.Element) (SaveResult, error)

	// Load reads the snapshot of board. It never fails: problems are
	// reported through LoadResult and yield an empty board.
	Load(board string) (map[string]*domain.Element, LoadResult)

	// List describes every stored snapshot.
	List() ([]Info, error)

	Close() error
}

// LoadStatus describes how a board was loaded.
type LoadStatus string

const (
	StatusLoaded      LoadStatus = "loaded"
	StatusMissing     LoadStatus = "missing"
	StatusQuarantined LoadStatus = "quarantined"
	StatusUnreadable  LoadStatus = "unreadable"
)

// LoadResult reports the outcome of a Load.
type LoadResult struct {
	Status LoadStatus
	// Path locates the snapshot that was read.
	Path string
	// QuarantinePath locates the copy of a corrupt snapshot, if one was made.
	QuarantinePath string
	// Dropped counts loaded elements rejected for an unrecognized type.
	Dropped int
	// Err holds the read, parse or quarantine error, if any.
	Err error
}

// SaveResult reports the outcome of a successful Save.
type SaveResult struct {
	Path    string
	Bytes   int
	Removed bool
}

// Info describes one stored snapshot.
type Info struct {
	Board      string    `json:"board"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	Path       string    `json:"path,omitempty"`
}

// Encode serializes an element mapping.
func Encode(elements map[string]*domain.Element) ([]byte, error) {
	data, err := json.Marshal(elements)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot and sanitizes every element. Elements with an
// unrecognized type are dropped and counted.
func Decode(data []byte, lim domain.Limits) (map[string]*domain.Element, int, error) {
	var raw map[string]*domain.Element
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("snapshot: decode: %w", err)
	}

	dropped := 0
	elements := make(map[string]*domain.Element, len(raw))
	for id, e := range raw {
		if e == nil || domain.CheckType(e) != nil {
			dropped++
			continue
		}
		e.ID = id
		domain.Sanitize(e, lim)
		elements[id] = e
	}
	return elements, dropped, nil
}

// timestampSuffix formats t for staging and quarantine names: ISO 8601 in
// UTC with millisecond precision and without colons.
func timestampSuffix(t time.Time) string {
	return strings.ReplaceAll(t.UTC().Format("2006-01-02T15:04:05.000Z"), ":", "")
}

// LogLoad writes the standard log line for a load outcome.
func LogLoad(logger *slog.Logger, board string, elements int, res LoadResult) {
	switch res.Status {
	case StatusLoaded:
		logger.Info("board loaded", "board", board, "elements", elements, "dropped", res.Dropped)
	case StatusMissing:
		logger.Info("empty board created", "board", board)
	case StatusQuarantined:
		logger.Error("corrupt board snapshot quarantined",
			"board", board,
			"path", res.Path,
			"quarantine_path", res.QuarantinePath,
			"error", res.Err)
	case StatusUnreadable:
		logger.Error("board snapshot unreadable, starting empty",
			"board", board,
			"path", res.Path,
			"error", res.Err)
	}
}
