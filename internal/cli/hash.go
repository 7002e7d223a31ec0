package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/reqtsv/internal/project"
	"github.com/calvinalkan/reqtsv/internal/record"
)

// HashCmd returns the hash command.
func HashCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("hash", flag.ContinueOnError),
		Usage: "hash",
		Short: "Print the project title and table digests",
		Long: `Print the project title and the SHA-256 digest of each table file's bytes,
as used by site generators to detect changes.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) > 0 {
				return errTooManyArgs
			}

			return a.withProject(func(p *project.Project) error {
				o.Println("title=" + p.Title())
				o.Println(record.ComponentTable + "=" + p.ComponentHash())
				o.Println(record.RequirementTable + "=" + p.RequirementHash())

				return nil
			})
		},
	}
}
