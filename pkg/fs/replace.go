package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrStaleOld indicates the new table is in place but the ".old" sibling
// could not be removed. Callers can detect this with errors.Is and treat it
// as a warning.
var ErrStaleOld = errors.New("old table not removed")

// ErrDirSync indicates the parent directory could not be synced after rename.
//
// When returned, the new file is in place but durability is not guaranteed.
var ErrDirSync = errors.New("dir sync")

// Sibling suffixes used by [Replacer.Replace].
const (
	NewSuffix = ".new"
	OldSuffix = ".old"
)

// ReplaceStep identifies the step of [Replacer.Replace] that failed.
type ReplaceStep uint8

// Steps in execution order.
const (
	StepCreateNew ReplaceStep = iota + 1
	StepWriteNew
	StepRenameOld
	StepRenameNew
	StepSyncDir
	StepRemoveOld
)

func (s ReplaceStep) String() string {
	switch s {
	case StepCreateNew:
		return "create new"
	case StepWriteNew:
		return "write new"
	case StepRenameOld:
		return "rename current to old"
	case StepRenameNew:
		return "rename new to current"
	case StepSyncDir:
		return "sync dir"
	case StepRemoveOld:
		return "remove old"
	default:
		return fmt.Sprintf("step(%d)", uint8(s))
	}
}

// ReplaceError reports a failed [Replacer.Replace] together with which of
// the target and its siblings were present right after the failure, so the
// operator can recover by hand.
type ReplaceError struct {
	Step ReplaceStep
	Path string
	Err  error

	CurrentExists bool
	OldExists     bool
	NewExists     bool
}

func (e *ReplaceError) Error() string {
	return fmt.Sprintf("replace %q: %s: %v (%s)", e.Path, e.Step, e.Err, e.Hint())
}

func (e *ReplaceError) Unwrap() error {
	return e.Err
}

// Is makes post-commit failures match [ErrStaleOld] and [ErrDirSync].
func (e *ReplaceError) Is(target error) bool {
	switch target {
	case ErrStaleOld:
		return e.Step == StepRemoveOld
	case ErrDirSync:
		return e.Step == StepSyncDir
	default:
		return false
	}
}

// Hint describes the on-disk state and what the operator has to do.
func (e *ReplaceError) Hint() string {
	cur := filepath.Base(e.Path)
	oldName := cur + OldSuffix
	newName := cur + NewSuffix

	var advice string

	switch e.Step {
	case StepCreateNew:
		if e.NewExists {
			advice = fmt.Sprintf("a stale %s exists, inspect and remove it before retrying", newName)
		} else {
			advice = cur + " is untouched"
		}
	case StepWriteNew:
		advice = cur + " is untouched"
	case StepRenameOld:
		advice = fmt.Sprintf("%s is untouched and %s holds the complete new table", cur, newName)
	case StepRenameNew:
		advice = fmt.Sprintf("%s holds the pre-update table, rename it back to %s to restore", oldName, cur)
	case StepSyncDir:
		advice = cur + " holds the new table but may not survive a power loss"
	case StepRemoveOld:
		advice = fmt.Sprintf("%s holds the new table, remove %s by hand", cur, oldName)
	}

	return advice + "; " + e.state()
}

func (e *ReplaceError) state() string {
	cur := filepath.Base(e.Path)

	var present, missing []string

	for _, s := range []struct {
		name   string
		exists bool
	}{
		{cur, e.CurrentExists},
		{cur + OldSuffix, e.OldExists},
		{cur + NewSuffix, e.NewExists},
	} {
		if s.exists {
			present = append(present, s.name)
		} else {
			missing = append(missing, s.name)
		}
	}

	return "present: [" + strings.Join(present, " ") + "] missing: [" + strings.Join(missing, " ") + "]"
}

// Committed reports whether err leaves the new content in place at the target.
// A nil error is committed; so are [ErrStaleOld] and [ErrDirSync].
func Committed(err error) bool {
	return err == nil || errors.Is(err, ErrStaleOld) || errors.Is(err, ErrDirSync)
}

// Replacer swaps a file's contents using a ".new"/".old" rename sequence.
//
// A reader opening the target by path always sees either the old or the new
// complete content. A crash between renaming the target to ".old" and
// renaming ".new" into place leaves the target missing; that state is never
// repaired automatically.
type Replacer struct {
	fs   FS
	log  *slog.Logger
	perm os.FileMode
}

// NewReplacer creates a Replacer on fsys. Panics if fsys is nil.
// A nil logger discards log output.
func NewReplacer(fsys FS, logger *slog.Logger) *Replacer {
	if fsys == nil {
		panic("fs is nil")
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Replacer{fs: fsys, log: logger, perm: 0o644}
}

// Replace replaces the file at path with data.
//
// Steps:
//  1. create path.new exclusively (a stale path.new is an error)
//  2. write data, sync, close
//  3. rename path to path.old
//  4. rename path.new to path
//  5. sync the directory and remove path.old
//
// Every failure is a *[ReplaceError]. Failures of step 5 leave the new
// content in place; see [Committed].
func (r *Replacer) Replace(path string, data []byte) error {
	newPath := path + NewSuffix
	oldPath := path + OldSuffix

	r.log.Debug("create new table", "path", newPath, "bytes", len(data))

	file, err := r.fs.OpenFile(newPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, r.perm)
	if err != nil {
		return r.fail(StepCreateNew, path, err)
	}

	writeErr := writeSyncClose(file, newPath, data)
	if writeErr != nil {
		// The partial file is useless and would block the next attempt.
		removeErr := r.fs.Remove(newPath)
		if removeErr != nil && !os.IsNotExist(removeErr) {
			writeErr = errors.Join(writeErr, fmt.Errorf("remove partial %q: %w", newPath, removeErr))
		}

		return r.fail(StepWriteNew, path, writeErr)
	}

	r.log.Debug("move current table aside", "from", path, "to", oldPath)

	err = r.fs.Rename(path, oldPath)
	if err != nil {
		return r.fail(StepRenameOld, path, err)
	}

	r.log.Debug("move new table into place", "from", newPath, "to", path)

	err = r.fs.Rename(newPath, path)
	if err != nil {
		return r.fail(StepRenameNew, path, err)
	}

	var dirErr error

	err = fsyncDir(r.fs, filepath.Dir(path))
	if err != nil {
		dirErr = r.fail(StepSyncDir, path, err)
	}

	r.log.Debug("remove old table", "path", oldPath)

	err = r.fs.Remove(oldPath)
	if err != nil {
		return errors.Join(dirErr, r.fail(StepRemoveOld, path, err))
	}

	return dirErr
}

// Create writes data to a brand-new file at path, failing if it exists.
// The data is synced before Create returns.
func (r *Replacer) Create(path string, data []byte) error {
	r.log.Debug("create file", "path", path, "bytes", len(data))

	file, err := r.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, r.perm)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}

	err = writeSyncClose(file, path, data)
	if err != nil {
		return err
	}

	err = fsyncDir(r.fs, filepath.Dir(path))
	if err != nil {
		r.log.Warn("directory not synced", "path", path, "err", err)
	}

	return nil
}

func (r *Replacer) fail(step ReplaceStep, path string, err error) *ReplaceError {
	replaceErr := &ReplaceError{Step: step, Path: path, Err: err}
	replaceErr.CurrentExists = r.exists(path)
	replaceErr.OldExists = r.exists(path + OldSuffix)
	replaceErr.NewExists = r.exists(path + NewSuffix)

	level := slog.LevelError
	if step >= StepSyncDir {
		level = slog.LevelWarn
	}

	r.log.Log(context.Background(), level, "table replace failed", "path", path, "step", step.String(), "err", err)

	return replaceErr
}

func (r *Replacer) exists(path string) bool {
	ok, err := r.fs.Exists(path)

	return ok && err == nil
}

func writeSyncClose(file File, path string, data []byte) error {
	_, err := file.Write(data)
	if err != nil {
		return errors.Join(fmt.Errorf("write %q: %w", path, err), closeFile(path, file))
	}

	err = syncData(file)
	if err != nil {
		return errors.Join(fmt.Errorf("sync %q: %w", path, err), closeFile(path, file))
	}

	return closeFile(path, file)
}

func fsyncDir(fs FS, dirPath string) error {
	dirFd, err := fs.Open(dirPath)
	if err != nil {
		return errors.Join(ErrDirSync, fmt.Errorf("open dir %q: %w", dirPath, err))
	}

	syncErr := dirFd.Sync()
	if syncErr == nil {
		return closeFile(dirPath, dirFd)
	}

	return errors.Join(
		ErrDirSync,
		fmt.Errorf("%q: %w", dirPath, syncErr),
		closeFile(dirPath, dirFd),
	)
}

func closeFile(path string, file File) error {
	err := file.Close()
	if err == nil {
		return nil
	}

	return fmt.Errorf("close %q: %w", path, err)
}
