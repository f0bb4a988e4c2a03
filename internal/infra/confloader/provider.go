package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// mapProvider feeds flag overrides to koanf. Keys are dotted paths.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("confloader: overrides have no byte form")
}

// Read unflattens a copy, so the caller's map is left as given.
func (m mapProvider) Read() (map[string]any, error) {
	flat := make(map[string]any, len(m))
	for k, v := range m {
		flat[k] = v
	}
	return maps.Unflatten(flat, "."), nil
}
