package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/reqtsv/internal/project"
)

// InsertCmd returns the insert command.
func InsertCmd(a *app) *Command {
	flags := flag.NewFlagSet("insert", flag.ContinueOnError)
	componentID := flags.Uint64("component", 0, "Component the requirement belongs to (requirements only)")

	return &Command{
		Flags: flags,
		Usage: "insert <kind> <file> [--component <id>]",
		Short: "Add a record from a filled-in draft",
		Long: `Parse a draft document, add it as a new Accepted record with the next free
id and archive the document. Requirements need --component. A component that
is missing or deleted is accepted with a warning.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			k, rest, err := kindArgs(args, 1, errFileRequired)
			if err != nil {
				return err
			}

			linked := flags.Changed("component")

			switch {
			case k.Linked() && !linked:
				return errComponentRequired
			case !k.Linked() && linked:
				return errComponentNotKind
			}

			return execInsert(o, a, k, rest[0], *componentID)
		},
	}
}

func execInsert(o *IO, a *app, k kind, path string, componentID uint64) error {
	doc, err := a.stager().Read(path)
	if err != nil {
		return err
	}

	return a.withProject(func(p *project.Project) error {
		if k.Linked() {
			if state := componentState(p, componentID); state != "" {
				o.Warn(state, "link the requirement with 'reqtsv relink'")
			}
		}

		id, err := k.Insert(p, doc, componentID)

		err = settle(o, err)
		if err != nil {
			return err
		}

		a.archive(o, path)
		o.Printf("Inserted %s %d\n", k.Name(), id)

		return nil
	})
}
