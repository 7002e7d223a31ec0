package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/reqtsv/internal/project"
)

// ShowCmd returns the show command.
func ShowCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("show", flag.ContinueOnError),
		Usage: "show <kind> <id>",
		Short: "Print a record",
		Long: `Print a record as TOML with multi-line fields unescaped. Components list the
ids of their requirements; requirements show their component's name, or
"(not found)" if the reference dangles.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			k, rest, err := kindArgs(args, 1, errIDRequired)
			if err != nil {
				return err
			}

			id, err := parseID(rest[0])
			if err != nil {
				return err
			}

			return a.withProject(func(p *project.Project) error {
				out, err := k.Show(p, id)
				if err != nil {
					return err
				}

				o.Printf("%s", out)

				return nil
			})
		},
	}
}
