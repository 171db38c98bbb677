//go:build unix

package safetensors

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps path read-only. It falls back to reading the file when mmap
// is refused (e.g. some FUSE mounts).
func mapFile(path string) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, false, err
	}
	size := st.Size()
	if size < 8 {
		return nil, false, fmt.Errorf("%w: %s: %d bytes", ErrCorruptFile, path, size)
	}
	if size > int64(int(^uint(0)>>1)) {
		return nil, false, fmt.Errorf("%w: %s: too large to map", ErrCorruptFile, path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		return data, true, nil
	}
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	return data, false, nil
}

func unmapFile(data []byte) error {
	return unix.Munmap(data)
}
