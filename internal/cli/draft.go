package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// DraftCmd returns the draft command.
func DraftCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("draft", flag.ContinueOnError),
		Usage: "draft <kind>",
		Short: "Create a new staging document to fill in",
		Long: `Write a draft document with a random name into the project directory and
print its path. Fill it in, then run 'reqtsv insert <kind> <file>'.
The author field is prefilled from the author config key.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			k, _, err := kindArgs(args, 0, nil)
			if err != nil {
				return err
			}

			path, err := a.stager().CreateDraft(k.Files().DraftPrefix, k.Draft(a.cfg.Author))
			if err != nil {
				return err
			}

			o.Println(path)

			return nil
		},
	}
}
