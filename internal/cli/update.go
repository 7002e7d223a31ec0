package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/reqtsv/internal/project"
	"github.com/calvinalkan/reqtsv/internal/staging"
)

// UpdateCmd returns the update command.
func UpdateCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("update", flag.ContinueOnError),
		Usage: "update <kind> <file>",
		Short: "Apply an edited edit document",
		Long: `Apply an edit document written by 'reqtsv edit' to the record named in its
file name. The record becomes Accepted; requirements get a new version.
The document is archived afterwards.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			k, rest, err := kindArgs(args, 1, errFileRequired)
			if err != nil {
				return err
			}

			return execUpdate(o, a, k, rest[0])
		},
	}
}

func execUpdate(o *IO, a *app, k kind, path string) error {
	id, err := staging.EditID(path, k.Files().EditPrefix)
	if err != nil {
		return err
	}

	doc, err := a.stager().Read(path)
	if err != nil {
		return err
	}

	return a.withProject(func(p *project.Project) error {
		err := settle(o, k.Update(p, id, doc))
		if err != nil {
			return err
		}

		a.archive(o, path)
		o.Printf("Updated %s %d\n", k.Name(), id)

		return nil
	})
}
