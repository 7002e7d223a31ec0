package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/reqtsv/internal/project"
	"github.com/calvinalkan/reqtsv/internal/record"
)

// LsCmd returns the ls command.
func LsCmd(a *app) *Command {
	flags := flag.NewFlagSet("ls", flag.ContinueOnError)
	all := flags.BoolP("all", "a", false, "Include deleted records")
	componentID := flags.Uint64("component", 0, "Only requirements of this component")
	priority := flags.String("priority", "", "Only requirements at least this severe (Mandated, High, Med, Low)")

	return &Command{
		Flags: flags,
		Usage: "ls <kind> [--all] [--component <id>] [--priority <p>]",
		Short: "List records",
		Long: `List records in table order, one per line, tab separated.
Components: id, status, name.
Requirements: id, component id, priority, status, title.
Deleted records are hidden unless --all is given. --priority keeps
requirements of that priority or a more severe one.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			k, _, err := kindArgs(args, 0, nil)
			if err != nil {
				return err
			}

			filter := listFilter{all: *all}

			if flags.Changed("component") {
				if !k.Linked() {
					return errComponentNotKind
				}

				filter.component = componentID
			}

			if flags.Changed("priority") {
				if !k.Ranked() {
					return errPriorityNotKind
				}

				p, err := record.ParsePriority(*priority)
				if err != nil {
					return err
				}

				filter.minPriority = &p
			}

			return a.withProject(func(p *project.Project) error {
				for _, row := range k.List(p, filter) {
					o.Println(row)
				}

				return nil
			})
		},
	}
}
