package staging

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/calvinalkan/reqtsv/pkg/fs"
)

// ErrNameExhausted is returned when no unused draft name was found.
var ErrNameExhausted = errors.New("draft names exhausted")

// ErrNotEditDocument is returned by [EditID] for names that do not follow
// the edit naming scheme.
var ErrNotEditDocument = errors.New("not an edit document")

// Ext is the staging document extension.
const Ext = ".toml"

const (
	suffixLen = 12
	alphabet  = "_+=^~0123456789abcdefghijklmnopqrstuvwxyz"

	// MaxDraftAttempts bounds the draft name search.
	MaxDraftAttempts = suffixLen * len(alphabet) * 10
)

// Kind names the file prefixes of one record kind.
type Kind struct {
	Name        string
	DraftPrefix string
	EditPrefix  string
}

var (
	Components   = Kind{Name: "component", DraftPrefix: "component_draft", EditPrefix: "component_edit"}
	Requirements = Kind{Name: "requirement", DraftPrefix: "requirement_draft", EditPrefix: "requirement_edit"}
)

// EditName returns the edit document name for id.
func (k Kind) EditName(id uint64) string {
	return k.EditPrefix + "-" + strconv.FormatUint(id, 10) + Ext
}

// Stager creates, lists and archives staging documents in one directory.
type Stager struct {
	fs  fs.FS
	dir string
	log *slog.Logger

	// intN picks a random index in [0, n).
	intN func(n int) int
}

// NewStager returns a Stager for documents in dir. A nil logger discards.
func NewStager(fsys fs.FS, dir string, logger *slog.Logger) *Stager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Stager{fs: fsys, dir: dir, log: logger, intN: rand.IntN}
}

// CreateDraft writes data to a new file named <prefix>-<random>.toml and
// returns its path. Existing files are never overwritten.
func (s *Stager) CreateDraft(prefix string, data []byte) (string, error) {
	for range MaxDraftAttempts {
		path := filepath.Join(s.dir, prefix+"-"+s.randomSuffix()+Ext)

		file, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}

		if err != nil {
			return "", fmt.Errorf("create draft %q: %w", path, err)
		}

		_, err = file.Write(data)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}

		if err != nil {
			return "", errors.Join(fmt.Errorf("write draft %q: %w", path, err), s.fs.Remove(path))
		}

		s.log.Debug("draft created", "path", path)

		return path, nil
	}

	return "", fmt.Errorf("%w: %d attempts with prefix %q", ErrNameExhausted, MaxDraftAttempts, prefix)
}

func (s *Stager) randomSuffix() string {
	b := make([]byte, suffixLen)
	for i := range b {
		b[i] = alphabet[s.intN(len(alphabet))]
	}

	return string(b)
}

// WriteEdit writes the edit document for id, replacing an earlier one.
func (s *Stager) WriteEdit(k Kind, id uint64, data []byte) (string, error) {
	path := filepath.Join(s.dir, k.EditName(id))

	err := atomic.WriteFile(path, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("write edit %q: %w", path, err)
	}

	s.log.Debug("edit document written", "path", path, "id", id)

	return path, nil
}

// Read returns a document's content. Relative paths resolve against the
// stager directory.
func (s *Stager) Read(path string) ([]byte, error) {
	data, err := s.fs.ReadFile(s.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("read staging document: %w", err)
	}

	return data, nil
}

// List returns the paths of documents with prefix, sorted by name.
func (s *Stager) List(prefix string) ([]string, error) {
	entries, err := s.fs.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list staging documents in %q: %w", s.dir, err)
	}

	var paths []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, Ext) {
			continue
		}

		paths = append(paths, filepath.Join(s.dir, name))
	}

	return paths, nil
}

// Archive moves a consumed document into archiveDir, prefixed with the time
// it was accepted, so it is no longer listed as pending.
func (s *Stager) Archive(path, archiveDir string, now time.Time) (string, error) {
	path = s.resolve(path)
	archiveDir = s.resolve(archiveDir)

	err := s.fs.MkdirAll(archiveDir, 0o755)
	if err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	dst := filepath.Join(archiveDir, now.UTC().Format("20060102T150405Z")+"-"+filepath.Base(path))

	err = s.fs.Rename(path, dst)
	if err != nil {
		return "", fmt.Errorf("archive %q: %w", path, err)
	}

	s.log.Debug("staging document archived", "from", path, "to", dst)

	return dst, nil
}

func (s *Stager) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(s.dir, path)
}

// EditID extracts the record id from an edit document name.
func EditID(path, prefix string) (uint64, error) {
	name := filepath.Base(path)

	rest, ok := strings.CutPrefix(name, prefix+"-")
	if !ok {
		return 0, fmt.Errorf("%w: %q lacks prefix %q", ErrNotEditDocument, name, prefix)
	}

	rest, ok = strings.CutSuffix(rest, Ext)
	if !ok {
		return 0, fmt.Errorf("%w: %q lacks extension %s", ErrNotEditDocument, name, Ext)
	}

	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q has no numeric id", ErrNotEditDocument, name)
	}

	return id, nil
}
