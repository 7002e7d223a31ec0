package cli

import (
	"context"
	"path/filepath"

	flag "github.com/spf13/pflag"
)

// PendingCmd returns the pending command.
func PendingCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("pending", flag.ContinueOnError),
		Usage: "pending <kind>",
		Short: "List staging documents not yet applied",
		Exec: func(_ context.Context, o *IO, args []string) error {
			k, _, err := kindArgs(args, 0, nil)
			if err != nil {
				return err
			}

			s := a.stager()

			for _, prefix := range []string{k.Files().DraftPrefix, k.Files().EditPrefix} {
				paths, err := s.List(prefix)
				if err != nil {
					return err
				}

				for _, path := range paths {
					o.Println(filepath.Base(path))
				}
			}

			return nil
		},
	}
}
