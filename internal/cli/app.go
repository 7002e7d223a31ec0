package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/calvinalkan/reqtsv/internal/config"
	"github.com/calvinalkan/reqtsv/internal/project"
	"github.com/calvinalkan/reqtsv/internal/staging"
	"github.com/calvinalkan/reqtsv/pkg/fs"
)

// app carries what every command needs for one invocation.
type app struct {
	cfg *config.Config
	env map[string]string
	log *slog.Logger
	in  io.Reader
	now func() time.Time

	// session, when set, is used by every command instead of opening the
	// project per command.
	session *project.Project
}

// title is the configured project title, or the directory name.
func (a *app) title() string {
	if a.cfg.Title != "" {
		return a.cfg.Title
	}

	return filepath.Base(a.cfg.WorkDir)
}

func (a *app) options() project.Options {
	return project.Options{Title: a.title(), Logger: a.log, Clock: a.now}
}

// withProject opens the project, runs fn and closes the project again.
func (a *app) withProject(fn func(p *project.Project) error) (err error) {
	if a.session != nil {
		return fn(a.session)
	}

	p, err := project.Open(a.cfg.WorkDir, a.options())
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, p.Close())
	}()

	return fn(p)
}

func (a *app) stager() *staging.Stager {
	return staging.NewStager(fs.NewReal(), a.cfg.WorkDir, a.log)
}

// archive moves a consumed staging document out of the way. A failure only
// warns: the record change is already stored.
func (a *app) archive(o *IO, path string) {
	dst, err := a.stager().Archive(path, a.cfg.ArchiveDirAbs, a.now())
	if err != nil {
		o.Warn(err.Error(), "remove the document by hand so it is not applied twice")

		return
	}

	a.log.Debug("document consumed", "archived", dst)
}

// settle reports a persisted change whose cleanup failed as a warning.
func settle(o *IO, err error) error {
	if err == nil {
		return nil
	}

	if fs.Committed(err) {
		o.Warn(err.Error(), "the change was saved, clean up the leftover file")

		return nil
	}

	return err
}

func parseID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidID, arg)
	}

	return id, nil
}
