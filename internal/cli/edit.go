package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/reqtsv/internal/project"
)

// EditCmd returns the edit command.
func EditCmd(a *app) *Command {
	flags := flag.NewFlagSet("edit", flag.ContinueOnError)
	launch := flags.Bool("launch", false, "Open the document in the editor and apply it on exit")

	return &Command{
		Flags: flags,
		Usage: "edit <kind> <id> [--launch]",
		Short: "Write an edit document for a record",
		Long: `Write the edit document for a record and print its path. An earlier edit
document for the same record is replaced. Apply it with 'reqtsv update'.
With --launch the document is opened in the editor (editor config,
$EDITOR, vi, nano) and applied when the editor exits successfully.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			k, rest, err := kindArgs(args, 1, errIDRequired)
			if err != nil {
				return err
			}

			id, err := parseID(rest[0])
			if err != nil {
				return err
			}

			path, err := writeEditDoc(a, k, id)
			if err != nil {
				return err
			}

			if !*launch {
				o.Println(path)

				return nil
			}

			editor, err := resolveEditor(a.cfg, a.env)
			if err != nil {
				return err
			}

			err = runEditor(ctx, editor, path)
			if err != nil {
				return err
			}

			return execUpdate(o, a, k, path)
		},
	}
}

func writeEditDoc(a *app, k kind, id uint64) (string, error) {
	var doc []byte

	err := a.withProject(func(p *project.Project) error {
		var err error

		doc, err = k.EditDoc(p, id)

		return err
	})
	if err != nil {
		return "", err
	}

	return a.stager().WriteEdit(k.Files(), id, doc)
}
