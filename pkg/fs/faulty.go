package fs

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"syscall"
)

// FaultOp identifies an operation [Faulty] can fail.
type FaultOp string

// Operations that can be failed.
const (
	FaultOpenFile FaultOp = "openfile"
	FaultRename   FaultOp = "rename"
	FaultRemove   FaultOp = "remove"
	FaultWrite    FaultOp = "file.write"
	FaultSync     FaultOp = "file.sync"
)

// InjectedError marks an error as intentionally injected by [Faulty].
//
// It wraps the underlying error so errors.Is/As continue to work.
type InjectedError struct {
	Op  FaultOp
	Err error
}

func (e *InjectedError) Error() string {
	return "injected " + string(e.Op) + ": " + e.Err.Error()
}

func (e *InjectedError) Unwrap() error {
	return e.Err
}

// IsInjected reports whether err (or any wrapped error) was injected by [Faulty].
func IsInjected(err error) bool {
	var injected *InjectedError

	return errors.As(err, &injected)
}

// Faulty wraps an [FS] and fails chosen operations deterministically.
//
// A fault is armed per operation with [Faulty.FailNth]: the nth call of that
// operation (1-indexed, counted from arming) fails with EIO, and later calls
// pass through again. Faulty stands in for a crash at a precise step: the
// state left on disk after the failed call is exactly what a crash at that
// point would leave, since nothing after it runs.
//
// Safe for concurrent use.
type Faulty struct {
	base FS

	mu     sync.Mutex
	armed  map[FaultOp]int
	counts map[FaultOp]int
	trace  []FaultOp
}

// NewFaulty wraps base. Panics if base is nil.
func NewFaulty(base FS) *Faulty {
	if base == nil {
		panic("base fs is nil")
	}

	return &Faulty{
		base:   base,
		armed:  make(map[FaultOp]int),
		counts: make(map[FaultOp]int),
	}
}

// FailNth arms op to fail on its nth call from now. n < 1 disarms op.
func (f *Faulty) FailNth(op FaultOp, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counts[op] = 0

	if n < 1 {
		delete(f.armed, op)

		return
	}

	f.armed[op] = n
}

// Trace returns the operations that were failed, in order.
func (f *Faulty) Trace() []FaultOp {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]FaultOp(nil), f.trace...)
}

func (f *Faulty) check(op FaultOp, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.armed[op]
	if !ok {
		return nil
	}

	f.counts[op]++
	if f.counts[op] != n {
		return nil
	}

	delete(f.armed, op)
	f.trace = append(f.trace, op)

	if op == FaultRename {
		return &InjectedError{Op: op, Err: &os.LinkError{Op: "rename", Old: path, New: path, Err: syscall.EIO}}
	}

	return &InjectedError{Op: op, Err: &fs.PathError{Op: string(op), Path: path, Err: syscall.EIO}}
}

func (f *Faulty) Open(path string) (File, error) {
	return f.base.Open(path)
}

func (f *Faulty) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	err := f.check(FaultOpenFile, path)
	if err != nil {
		return nil, err
	}

	file, err := f.base.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	return &faultyFile{File: file, fs: f, path: path}, nil
}

func (f *Faulty) ReadFile(path string) ([]byte, error) {
	return f.base.ReadFile(path)
}

func (f *Faulty) ReadDir(path string) ([]os.DirEntry, error) {
	return f.base.ReadDir(path)
}

func (f *Faulty) MkdirAll(path string, perm os.FileMode) error {
	return f.base.MkdirAll(path, perm)
}

func (f *Faulty) Stat(path string) (os.FileInfo, error) {
	return f.base.Stat(path)
}

func (f *Faulty) Exists(path string) (bool, error) {
	return f.base.Exists(path)
}

func (f *Faulty) Remove(path string) error {
	err := f.check(FaultRemove, path)
	if err != nil {
		return err
	}

	return f.base.Remove(path)
}

func (f *Faulty) Rename(oldpath, newpath string) error {
	err := f.check(FaultRename, oldpath)
	if err != nil {
		return err
	}

	return f.base.Rename(oldpath, newpath)
}

type faultyFile struct {
	File

	fs   *Faulty
	path string
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	err := ff.fs.check(FaultWrite, ff.path)
	if err != nil {
		return 0, err
	}

	return ff.File.Write(p)
}

func (ff *faultyFile) Sync() error {
	err := ff.fs.check(FaultSync, ff.path)
	if err != nil {
		return err
	}

	return ff.File.Sync()
}

var _ FS = (*Faulty)(nil)
