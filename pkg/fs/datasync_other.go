//go:build !linux

package fs

func syncData(file File) error {
	return file.Sync()
}
