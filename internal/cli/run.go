// Package cli implements the reqtsv command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/calvinalkan/reqtsv/internal/config"
	"github.com/calvinalkan/reqtsv/internal/logging"
)

const (
	consumedNone = 0
	consumedOne  = 1
	consumedTwo  = 2
	helpFlag     = "--help"
)

// Run is the main entry point. Returns exit code.
// sigCh may be nil; when it delivers, the command context is cancelled.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	o := NewIO(in, out, errOut)

	if len(args) < 2 {
		allCommands(&app{}).printUsage(o)

		return 0
	}

	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		o.PrintError(err)

		return 1
	}

	if len(flags.remaining) == 0 || flags.remaining[0] == "-h" || flags.remaining[0] == helpFlag {
		allCommands(&app{}).printUsage(o)

		return 0
	}

	cfg, err := config.Load(config.Input{
		WorkDirOverride: flags.workDir,
		ConfigPath:      flags.configPath,
		Verbose:         flags.verbose,
		Env:             env,
	})
	if err != nil {
		o.PrintError(err)

		return 1
	}

	level, err := cfg.Level()
	if err != nil {
		o.PrintError(err)

		return 1
	}

	logger, closeLog := logging.New(logging.Options{Level: level, File: cfg.LogFileAbs, Stderr: errOut})
	defer func() { _ = closeLog() }()

	a := &app{
		cfg: &cfg,
		env: env,
		log: logger,
		in:  in,
		now: time.Now,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	commands := allCommands(a)
	name := flags.remaining[0]

	cmd := commands.lookup(name)
	if cmd == nil {
		o.PrintError(fmt.Errorf("%w: %s", errUnknownCommand, name))
		o.ErrPrintln()
		commands.printUsage(o.stderrOnly())

		return 1
	}

	logger.Debug("command", "name", name, "dir", cfg.WorkDir)

	return cmd.Run(ctx, o, flags.remaining[1:])
}

type globalFlags struct {
	workDir    string
	configPath string
	verbose    bool
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == consumedNone {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	switch {
	case arg == "-v" || arg == "--verbose":
		flags.verbose = true

		return consumedOne, nil

	case arg == "-C" || arg == "--cwd":
		if idx+1 >= len(args) {
			return consumedNone, fmt.Errorf("%w: %s", errFlagRequiresArg, arg)
		}

		flags.workDir = args[idx+1]

		return consumedTwo, nil

	case arg == "-c" || arg == "--config":
		if idx+1 >= len(args) {
			return consumedNone, fmt.Errorf("%w: %s", errFlagRequiresArg, arg)
		}

		flags.configPath = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "--cwd="); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	if after, ok := strings.CutPrefix(arg, "--config="); ok {
		flags.configPath = after

		return consumedOne, nil
	}

	if after, ok := strings.CutPrefix(arg, "-C"); ok && after != "" {
		flags.workDir = after

		return consumedOne, nil
	}

	if arg != "-h" && arg != helpFlag && strings.HasPrefix(arg, "-") {
		return consumedNone, fmt.Errorf("%w: %s", errUnknownFlag, arg)
	}

	return consumedNone, nil
}

