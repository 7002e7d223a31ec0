package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/reqtsv/internal/project"
)

// DeleteCmd returns the delete command.
func DeleteCmd(a *app) *Command {
	flags := flag.NewFlagSet("delete", flag.ContinueOnError)
	yes := flags.BoolP("yes", "y", false, "Do not ask for confirmation")

	return &Command{
		Flags: flags,
		Usage: "delete <kind> <id> [--yes]",
		Short: "Mark a record as Deleted",
		Long: `Mark a record as Deleted. The row stays in the table and its name or title
stays taken. Asks for confirmation on stdin unless --yes is given.`,
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
				if !*yes {
					err := confirmDelete(o, a, p, k, id)
					if err != nil {
						return err
					}
				}

				err := settle(o, k.Delete(p, id))
				if err != nil {
					return err
				}

				o.Printf("Deleted %s %d\n", k.Name(), id)

				return nil
			})
		},
	}
}

func confirmDelete(o *IO, a *app, p *project.Project, k kind, id uint64) error {
	label, err := k.Label(p, id)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(o.errOut, "Delete %s %d (%s)? [y/N] ", k.Name(), id, label)

	if a.in == nil {
		return errDeleteAborted
	}

	answer, _ := bufio.NewReader(a.in).ReadString('\n')

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return errDeleteAborted
	}
}
