//go:build linux

package fs

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncData flushes file data without forcing a metadata-only inode update.
// Non-OS files (test wrappers) fall back to their own Sync.
func syncData(file File) error {
	if _, ok := file.(*os.File); !ok {
		return file.Sync()
	}

	for {
		err := unix.Fdatasync(int(file.Fd()))
		if err != unix.EINTR {
			return err
		}
	}
}
