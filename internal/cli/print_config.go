package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			execPrintConfig(o, a)

			return nil
		},
	}
}

func execPrintConfig(o *IO, a *app) {
	cfg := a.cfg

	o.Println("work_dir=" + cfg.WorkDir)
	o.Println("title=" + a.title())
	o.Println("archive_dir=" + cfg.ArchiveDirAbs)
	o.Println("log_level=" + cfg.LogLevel)

	if cfg.Author != "" {
		o.Println("author=" + cfg.Author)
	}

	if cfg.Editor != "" {
		o.Println("editor=" + cfg.Editor)
	}

	if cfg.LogFileAbs != "" {
		o.Println("log_file=" + cfg.LogFileAbs)
	}

	o.Println("")
	o.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		o.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			o.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			o.Println("project_config=" + cfg.Sources.Project)
		}
	}
}
