package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/reqtsv/internal/project"
	"github.com/calvinalkan/reqtsv/internal/record"
)

// RelinkCmd returns the relink command.
func RelinkCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("relink", flag.ContinueOnError),
		Usage: "relink <requirement-id> <component-id>",
		Short: "Move a requirement to another component",
		Long: `Point a requirement at another component. The version is unchanged.
A component that is missing or deleted is accepted with a warning.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			switch {
			case len(args) < 2:
				return errIDRequired
			case len(args) > 2:
				return errTooManyArgs
			}

			reqID, err := parseID(args[0])
			if err != nil {
				return err
			}

			componentID, err := parseID(args[1])
			if err != nil {
				return err
			}

			return a.withProject(func(p *project.Project) error {
				if state := componentState(p, componentID); state != "" {
					o.Warn(state, fmt.Sprintf("requirement %d now references it anyway", reqID))
				}

				err := p.RequirementStore().Modify(reqID, func(r *record.Requirement) error {
					r.ComponentID = componentID

					return nil
				})

				err = settle(o, err)
				if err != nil {
					return err
				}

				o.Printf("Linked requirement %d to component %d\n", reqID, componentID)

				return nil
			})
		},
	}
}
