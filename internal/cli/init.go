package cli

import (
	"context"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/reqtsv/internal/config"
	"github.com/calvinalkan/reqtsv/internal/project"
)

// InitCmd returns the init command.
func InitCmd(a *app) *Command {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	title := flags.String("title", "", "Project title (default: directory name)")

	return &Command{
		Flags: flags,
		Usage: "init [--title <title>]",
		Short: "Create empty component and requirement tables",
		Long: `Create component.tsv and requirement.tsv holding only their header rows,
plus a project config with the title. Fails if either table already exists.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) > 0 {
				return errTooManyArgs
			}

			return execInit(o, a, *title)
		},
	}
}

func execInit(o *IO, a *app, title string) error {
	dir := a.cfg.WorkDir

	err := project.Init(dir, a.options())
	if err != nil {
		return err
	}

	if title == "" {
		title = a.title()
	}

	written, err := config.WriteProjectFile(dir, title)
	if err != nil {
		o.Warn(err.Error(), "create "+config.FileName+" by hand to set the title")
	}

	o.Println("Initialized project in", dir)

	if written {
		o.Println("Wrote", filepath.Join(dir, config.FileName))
	}

	return nil
}
