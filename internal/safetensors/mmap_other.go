//go:build !unix

package safetensors

import (
	"fmt"
	"os"
)

func mapFile(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	if len(data) < 8 {
		return nil, false, fmt.Errorf("%w: %s: %d bytes", ErrCorruptFile, path, len(data))
	}
	return data, false, nil
}

func unmapFile([]byte) error { return nil }
