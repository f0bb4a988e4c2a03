package domain

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// MaxBoardNameLength bounds board names so snapshot file names stay within
// common file system limits after escaping.
const MaxBoardNameLength = 128

// Element id prefixes used by the built-in tools.
const (
	LinePrefix = "l"
	RectPrefix = "r"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewElementID generates an element id: prefix followed by a lowercase
// monotonic ULID. Ids generated by one process sort by creation time.
func NewElementID(prefix string) string {
	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	if err != nil {
		// Monotonic entropy overflowed within one millisecond.
		id = ulid.Make()
	}
	return prefix + strings.ToLower(id.String())
}

// ValidateBoardName checks that name is usable as a board identity.
func ValidateBoardName(name string) error {
	if name == "" {
		return ErrInvalidBoardName.WithDetails("name is empty")
	}
	if len(name) > MaxBoardNameLength {
		return ErrInvalidBoardName.WithDetails("name is too long")
	}
	if !utf8.ValidString(name) {
		return ErrInvalidBoardName.WithDetails("name is not valid UTF-8")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return ErrInvalidBoardName.WithDetails("name contains control characters")
		}
	}
	return nil
}
