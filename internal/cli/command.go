package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command defines a CLI command with unified help generation.
type Command struct {
	// Flags defines command-specific flags. Only its definitions matter,
	// the command name comes from Usage.
	Flags *flag.FlagSet

	// Usage follows "reqtsv" in help: the command name, then its arguments.
	// Examples: "show <kind> <id>", "ls <kind> [--all]"
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// PrintHelp prints the full help output for "reqtsv <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: reqtsv", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command. Returns exit code.
// Errors are printed here so they are ordered after any warnings.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	err := c.Flags.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		c.PrintHelp(o)

		return 0
	}

	if err != nil {
		o.PrintError(err)
		o.ErrPrintln()
		c.PrintHelp(o.stderrOnly())

		return 1
	}

	err = c.Exec(ctx, o, c.Flags.Args())

	switch {
	case err == nil:
		return o.Finish()
	case errors.Is(err, context.Canceled):
		o.PrintError(fmt.Errorf("interrupted: %w", err))

		return 130
	default:
		o.PrintError(err)

		return 1
	}
}

// commandSet is the ordered command table.
type commandSet []*Command

func (s commandSet) lookup(name string) *Command {
	for _, c := range s {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// printUsage prints the global help with usages aligned to the longest one.
func (s commandSet) printUsage(o *IO) {
	width := 0
	for _, c := range s {
		width = max(width, len(c.Usage))
	}

	o.Println("reqtsv - requirements and components in TSV tables")
	o.Println()
	o.Println("Usage: reqtsv [flags] <command> [args]")
	o.Println()
	o.Println("Flags:")
	o.Println("  -C, --cwd <dir>      Run as if started in <dir>")
	o.Println("  -c, --config <file>  Use specified config file")
	o.Println("  -v, --verbose        Log debug output")
	o.Println()
	o.Println("Commands:")

	for _, c := range s {
		o.Printf("  %-*s  %s\n", width, c.Usage, c.Short)
	}

	o.Println()
	o.Println("<kind> is component or requirement. Run 'reqtsv <command> --help' for details.")
}
