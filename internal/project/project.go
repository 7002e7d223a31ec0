// Package project owns both record stores of a project directory for the
// lifetime of one command.
package project

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/calvinalkan/reqtsv/internal/record"
	"github.com/calvinalkan/reqtsv/internal/store"
	"github.com/calvinalkan/reqtsv/pkg/fs"
)

var (
	// ErrNotInitialized is returned by [Open] when a table file is missing.
	ErrNotInitialized = errors.New("not a reqtsv project (run init)")

	// ErrAlreadyInitialized is returned by [Init] when a table file exists.
	ErrAlreadyInitialized = errors.New("project already initialized")

	// ErrInterrupted is returned by [Open] when a table is missing but its
	// ".old" sibling exists, the state a crash mid-replace leaves behind.
	ErrInterrupted = errors.New("interrupted table replace")

	// ErrClosed is returned when persisting through a closed project.
	ErrClosed = errors.New("project closed")
)

// Options configures [Open] and [Init].
type Options struct {
	// Deferred collects mutations in memory and writes the changed tables
	// on Close instead of after every mutation.
	Deferred bool

	// Title is the project title handed to consumers.
	Title string

	FS     fs.FS
	Logger *slog.Logger
	Clock  func() time.Time
}

func (o *Options) defaults() {
	if o.FS == nil {
		o.FS = fs.NewReal()
	}

	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}

	if o.Clock == nil {
		o.Clock = time.Now
	}
}

// Project is the loaded state of one project directory.
// Not safe for concurrent use.
type Project struct {
	dir      string
	title    string
	deferred bool
	closed   bool
	replacer *fs.Replacer
	log      *slog.Logger

	components   *store.Store[record.Component]
	requirements *store.Store[record.Requirement]

	componentFile   *tableFile
	requirementFile *tableFile
}

// tableFile tracks the on-disk state of one table.
type tableFile struct {
	path    string
	hash    string
	pending []byte // deferred mode only
}

// Open loads both tables of the project in dir.
func Open(dir string, opts Options) (*Project, error) {
	opts.defaults()

	p := &Project{
		dir:      dir,
		title:    opts.Title,
		deferred: opts.Deferred,
		replacer: fs.NewReplacer(opts.FS, opts.Logger),
		log:      opts.Logger,
	}

	storeOpts := []store.Option{store.WithClock(opts.Clock), store.WithLogger(opts.Logger)}

	compData, compFile, err := readTable(opts.FS, dir, record.ComponentTable)
	if err != nil {
		return nil, err
	}

	reqData, reqFile, err := readTable(opts.FS, dir, record.RequirementTable)
	if err != nil {
		return nil, err
	}

	p.componentFile = compFile
	p.requirementFile = reqFile

	p.components, err = store.Load(store.Components, compData, p.persister(compFile), storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", compFile.path, err)
	}

	p.requirements, err = store.Load(store.Requirements, reqData, p.persister(reqFile), storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", reqFile.path, err)
	}

	p.log.Debug("project opened",
		"dir", dir,
		"components", p.components.Len(),
		"requirements", p.requirements.Len(),
		"deferred", p.deferred,
	)

	return p, nil
}

func readTable(fsys fs.FS, dir, name string) ([]byte, *tableFile, error) {
	path := filepath.Join(dir, name)

	data, err := fsys.ReadFile(path)
	if err == nil {
		return data, &tableFile{path: path, hash: digest(data)}, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	oldExists, _ := fsys.Exists(path + fs.OldSuffix)
	if oldExists {
		return nil, nil, fmt.Errorf("%w: %s is missing but %s%s holds the previous table, rename it back to %s to restore",
			ErrInterrupted, name, name, fs.OldSuffix, name)
	}

	return nil, nil, fmt.Errorf("%w: %s not found in %s", ErrNotInitialized, name, dir)
}

func (p *Project) persister(tf *tableFile) store.Persister {
	return store.PersistFunc(func(data []byte) error {
		if p.closed {
			return ErrClosed
		}

		if p.deferred {
			tf.pending = data

			return nil
		}

		return p.write(tf, data)
	})
}

func (p *Project) write(tf *tableFile, data []byte) error {
	err := p.replacer.Replace(tf.path, data)
	if fs.Committed(err) {
		tf.hash = digest(data)
	}

	return err
}

// Close writes pending tables in deferred mode. It is a no-op otherwise.
// The project must not be used afterwards.
func (p *Project) Close() error {
	if p.closed {
		return nil
	}

	p.closed = true

	var errs []error

	for _, tf := range []*tableFile{p.componentFile, p.requirementFile} {
		if tf.pending == nil {
			continue
		}

		err := p.write(tf, tf.pending)
		tf.pending = nil

		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Dir returns the project directory.
func (p *Project) Dir() string {
	return p.dir
}

// Title returns the project title.
func (p *Project) Title() string {
	return p.title
}

// ComponentStore returns the component store for mutations.
func (p *Project) ComponentStore() *store.Store[record.Component] {
	return p.components
}

// RequirementStore returns the requirement store for mutations.
func (p *Project) RequirementStore() *store.Store[record.Requirement] {
	return p.requirements
}

// Components returns every component in table order, deleted ones included.
func (p *Project) Components() []record.Component {
	return p.components.All()
}

// Requirements returns every requirement in table order, deleted ones
// included.
func (p *Project) Requirements() []record.Requirement {
	return p.requirements.All()
}

// ComponentHash is the SHA-256 hex digest of component.tsv as last read or
// written.
func (p *Project) ComponentHash() string {
	return p.componentFile.hash
}

// RequirementHash is the SHA-256 hex digest of requirement.tsv as last read
// or written.
func (p *Project) RequirementHash() string {
	return p.requirementFile.hash
}

// ResolveComponent looks up the component a requirement points at. The
// reference may dangle, which is reported as ok=false.
func (p *Project) ResolveComponent(id uint64) (record.Component, bool) {
	return p.components.Lookup(id)
}

// RequirementsOf returns the requirements linked to component id.
func (p *Project) RequirementsOf(id uint64) []record.Requirement {
	var out []record.Requirement

	for _, r := range p.requirements.All() {
		if r.ComponentID == id {
			out = append(out, r)
		}
	}

	return out
}

// Init creates both tables in dir, each holding only its header. Nothing is
// created if either table already exists.
func Init(dir string, opts Options) error {
	opts.defaults()

	files := []struct {
		name   string
		header []byte
	}{
		{record.ComponentTable, record.ComponentSchema.Header()},
		{record.RequirementTable, record.RequirementSchema.Header()},
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)

		exists, err := opts.FS.Exists(path)
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}

		if exists {
			return fmt.Errorf("%w: %s exists", ErrAlreadyInitialized, path)
		}
	}

	err := opts.FS.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	replacer := fs.NewReplacer(opts.FS, opts.Logger)

	for _, f := range files {
		path := filepath.Join(dir, f.name)

		err := replacer.Create(path, f.header)
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}

		opts.Logger.Debug("table created", "path", path)
	}

	return nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}
