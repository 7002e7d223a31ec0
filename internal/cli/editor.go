package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/calvinalkan/reqtsv/internal/config"
)

// resolveEditor checks for an available editor using the env map.
// Priority: config.Editor -> $EDITOR -> vi -> nano -> error.
// A configured editor may carry arguments, e.g. "code --wait".
func resolveEditor(cfg *config.Config, env map[string]string) (string, error) {
	for _, candidate := range []string{cfg.Editor, env["EDITOR"], "vi", "nano"} {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}

		_, lookErr := exec.LookPath(fields[0])
		if lookErr == nil {
			return candidate, nil
		}
	}

	return "", errNoEditorFound
}

func runEditor(ctx context.Context, editor, path string) error {
	fields := strings.Fields(editor)

	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	runErr := cmd.Run()
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return fmt.Errorf("%w: %s exited with code %d, %s left unapplied", errEditorFailed, fields[0], exitErr.ExitCode(), path)
		}

		return fmt.Errorf("%w: %w", errEditorFailed, runErr)
	}

	return nil
}
