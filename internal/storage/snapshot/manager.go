package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

const (
	filePrefix    = "board-"
	fileExtension = ".json"
	backupSuffix  = ".bak"
)

// Config configures the file snapshot manager.
type Config struct {
	Dir    string
	Limits domain.Limits
	// Now supplies timestamps for staging and quarantine file names.
	Now    func() time.Time
	Logger *slog.Logger
}

// DefaultConfig returns a configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:    dir,
		Limits: domain.DefaultLimits(),
	}
}

// Manager stores each board as one JSON file in a directory.
type Manager struct {
	cfg    Config
	logger *slog.Logger
}

var _ Backend = (*Manager)(nil)

// NewManager creates the snapshot directory if needed and returns a manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("snapshot: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Limits == (domain.Limits{}) {
		cfg.Limits = domain.DefaultLimits()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{cfg: cfg, logger: logger}, nil
}

// Path returns the snapshot file of board.
func (m *Manager) Path(board string) string {
	return filepath.Join(m.cfg.Dir, filePrefix+url.PathEscape(board)+fileExtension)
}

func (m *Manager) backupName(path string) string {
	return path + "." + timestampSuffix(m.cfg.Now()) + backupSuffix
}

// Save writes the element mapping of board atomically. If the staging file
// already exists Save fails with an error wrapping os.ErrExist and leaves
// the current snapshot untouched.
func (m *Manager) Save(board string, elements map[string]*domain.Element) (SaveResult, error) {
	path := m.Path(board)

	if len(elements) == 0 {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return SaveResult{}, fmt.Errorf("snapshot: remove empty board: %w", err)
		}
		return SaveResult{Path: path, Removed: true}, nil
	}

	data, err := Encode(elements)
	if err != nil {
		return SaveResult{}, err
	}

	tmp := m.backupName(path)
	if err := writeExclusive(tmp, data); err != nil {
		return SaveResult{}, fmt.Errorf("snapshot: write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return SaveResult{}, fmt.Errorf("snapshot: rename: %w", err)
	}

	return SaveResult{Path: path, Bytes: len(data)}, nil
}

// writeExclusive creates path, failing if it exists, and syncs data to it.
// A partially written file is removed.
func writeExclusive(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// Load reads and sanitizes the snapshot of board.
func (m *Manager) Load(board string) (map[string]*domain.Element, LoadResult) {
	path := m.Path(board)
	res := LoadResult{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Status = StatusMissing
		} else {
			res.Status = StatusUnreadable
			res.Err = err
		}
		return map[string]*domain.Element{}, res
	}

	elements, dropped, err := Decode(data, m.cfg.Limits)
	if err != nil {
		res.Status = StatusQuarantined
		res.Err = err
		backup := m.backupName(path)
		if werr := writeExclusive(backup, data); werr != nil {
			res.Err = errors.Join(err, fmt.Errorf("snapshot: quarantine copy: %w", werr))
		} else {
			res.QuarantinePath = backup
		}
		return map[string]*domain.Element{}, res
	}

	res.Status = StatusLoaded
	res.Dropped = dropped
	return elements, res
}

// List describes the snapshot files in the directory, ordered by board name.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: list: %w", err)
	}

	var out []Info
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExtension) {
			continue
		}
		board, err := url.PathUnescape(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExtension))
		if err != nil {
			m.logger.Warn("skipping snapshot with invalid name", "file", name)
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			Board:      board,
			Size:       fi.Size(),
			ModifiedAt: fi.ModTime(),
			Path:       filepath.Join(m.cfg.Dir, name),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Board < out[j].Board })
	return out, nil
}

// Close implements Backend. The file backend holds no resources.
func (m *Manager) Close() error {
	return nil
}
