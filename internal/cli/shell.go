package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/reqtsv/internal/project"
)

// errQuit ends the shell.
var errQuit = errors.New("quit")

// ShellCmd returns the shell command.
func ShellCmd(a *app) *Command {
	flags := flag.NewFlagSet("shell", flag.ContinueOnError)
	deferred := flags.Bool("deferred", false, "Keep tables in memory and write them when the shell exits")

	return &Command{
		Flags: flags,
		Usage: "shell [--deferred]",
		Short: "Interactive menu",
		Long: `Start an interactive menu over requirements, components and the project.
Each action runs the matching command. Ctrl-D or "exit" leaves the shell.
With --deferred the project stays open for the whole session and changed
tables are written once, when the shell exits.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return execShell(ctx, o, a, *deferred)
		},
	}
}

func execShell(ctx context.Context, o *IO, a *app, deferred bool) (err error) {
	if deferred {
		opts := a.options()
		opts.Deferred = true

		p, openErr := project.Open(a.cfg.WorkDir, opts)
		if openErr != nil {
			return openErr
		}

		a.session = p

		defer func() {
			a.session = nil
			err = errors.Join(err, settle(o, p.Close()))
		}()
	}

	prompt := newPrompter(o, a.env)
	defer prompt.Close()

	sh := &shell{app: a, io: o, prompt: prompt}

	return sh.run(ctx)
}

// prompter reads one line of input per prompt. It returns io.EOF at end of
// input.
type prompter interface {
	Prompt(prompt string) (string, error)
	Close()
}

func newPrompter(o *IO, env map[string]string) prompter {
	if f, ok := o.in.(*os.File); ok && f == os.Stdin {
		return newLinePrompter(historyFile(env))
	}

	return &readerPrompter{r: bufio.NewReader(orEmpty(o.in)), out: o.out}
}

func orEmpty(r io.Reader) io.Reader {
	if r == nil {
		return strings.NewReader("")
	}

	return r
}

// historyFile returns the path to the history file.
func historyFile(env map[string]string) string {
	home := env["HOME"]
	if home == "" {
		return ""
	}

	return filepath.Join(home, ".reqtsv_history")
}

// linePrompter is a readline-style prompter with history.
type linePrompter struct {
	line    *liner.State
	history string
}

func newLinePrompter(history string) *linePrompter {
	p := &linePrompter{line: liner.NewLiner(), history: history}
	p.line.SetCtrlCAborts(true)
	p.line.SetCompleter(completeMenu)

	if history != "" {
		if f, err := os.Open(history); err == nil {
			_, _ = p.line.ReadHistory(f)
			_ = f.Close()
		}
	}

	return p
}

func (p *linePrompter) Prompt(prompt string) (string, error) {
	line, err := p.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}

	if err != nil {
		return "", err
	}

	if strings.TrimSpace(line) != "" {
		p.line.AppendHistory(line)
	}

	return line, nil
}

func (p *linePrompter) Close() {
	if p.history != "" {
		if f, err := os.Create(p.history); err == nil {
			_, _ = p.line.WriteHistory(f)
			_ = f.Close()
		}
	}

	_ = p.line.Close()
}

// readerPrompter serves non-terminal input such as pipes.
type readerPrompter struct {
	r   *bufio.Reader
	out io.Writer
}

func (p *readerPrompter) Prompt(prompt string) (string, error) {
	_, _ = fmt.Fprint(p.out, prompt)

	line, err := p.r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func (p *readerPrompter) Close() {}

// menuEntry is one selectable line of a menu. Keys are matched after the
// 1-based position.
type menuEntry struct {
	keys  []string
	label string
	run   func(ctx context.Context) error
}

type shell struct {
	app    *app
	io     *IO
	prompt prompter
}

func (s *shell) run(ctx context.Context) error {
	top := []menuEntry{
		{keys: []string{"requirement", "r"}, label: "Requirement", run: func(ctx context.Context) error {
			return s.menu(ctx, "requirement> ", s.kindMenu(requirementKind))
		}},
		{keys: []string{"component", "c"}, label: "Component", run: func(ctx context.Context) error {
			return s.menu(ctx, "component> ", s.kindMenu(componentKind))
		}},
		{keys: []string{"project", "p"}, label: "Project", run: func(ctx context.Context) error {
			return s.menu(ctx, "project> ", s.projectMenu())
		}},
		{keys: []string{"exit", "quit", "q"}, label: "Exit", run: func(context.Context) error {
			return errQuit
		}},
	}

	err := s.menu(ctx, "reqtsv> ", top)
	if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
		s.io.Println("Bye!")

		return nil
	}

	return err
}

// menu shows entries until one returns an error or an entry without run
// (back) is picked.
func (s *shell) menu(ctx context.Context, prompt string, entries []menuEntry) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		for i, e := range entries {
			s.io.Printf("  %d) %s\n", i+1, e.label)
		}

		line, err := s.prompt.Prompt(prompt)
		if err != nil {
			return err
		}

		choice := strings.ToLower(strings.TrimSpace(line))
		if choice == "" {
			continue
		}

		entry, ok := pick(entries, choice)
		if !ok {
			s.io.Printf("Unknown choice: %s\n", choice)

			continue
		}

		if entry.run == nil {
			return nil
		}

		err = entry.run(ctx)
		if err != nil {
			return err
		}
	}
}

func pick(entries []menuEntry, choice string) (menuEntry, bool) {
	for i, e := range entries {
		if choice == fmt.Sprint(i+1) {
			return e, true
		}

		for _, k := range e.keys {
			if choice == k {
				return e, true
			}
		}
	}

	return menuEntry{}, false
}

var back = menuEntry{keys: []string{"back", "b"}, label: "Back"}

func (s *shell) kindMenu(k kind) []menuEntry {
	name := k.Name()

	entries := []menuEntry{
		{keys: []string{"list", "ls", "l"}, label: "List", run: func(ctx context.Context) error {
			return s.exec(ctx, "ls", name)
		}},
		{keys: []string{"show", "s"}, label: "Show", run: func(ctx context.Context) error {
			return s.withArgs(ctx, []string{"id: "}, func(in []string) []string {
				return []string{"show", name, in[0]}
			})
		}},
		{keys: []string{"new", "draft", "n"}, label: "New draft", run: func(ctx context.Context) error {
			return s.exec(ctx, "draft", name)
		}},
		{keys: []string{"insert", "i"}, label: "Insert draft", run: func(ctx context.Context) error {
			questions := []string{"draft file: "}
			if k.Linked() {
				questions = append(questions, "component id: ")
			}

			return s.withArgs(ctx, questions, func(in []string) []string {
				args := []string{"insert", name, in[0]}
				if k.Linked() {
					args = append(args, "--component", in[1])
				}

				return args
			})
		}},
		{keys: []string{"edit", "e"}, label: "Edit in editor", run: func(ctx context.Context) error {
			return s.withArgs(ctx, []string{"id: "}, func(in []string) []string {
				return []string{"edit", name, in[0], "--launch"}
			})
		}},
		{keys: []string{"update", "u"}, label: "Apply edit document", run: func(ctx context.Context) error {
			return s.withArgs(ctx, []string{"edit file: "}, func(in []string) []string {
				return []string{"update", name, in[0]}
			})
		}},
		{keys: []string{"delete", "d"}, label: "Delete", run: func(ctx context.Context) error {
			return s.withArgs(ctx, []string{"id: ", "type yes to delete: "}, func(in []string) []string {
				if strings.ToLower(in[1]) != "yes" {
					s.io.Println("Not deleted.")

					return nil
				}

				return []string{"delete", name, in[0], "--yes"}
			})
		}},
		{keys: []string{"pending", "p"}, label: "Pending documents", run: func(ctx context.Context) error {
			return s.exec(ctx, "pending", name)
		}},
	}

	if k.Linked() {
		entries = append(entries, menuEntry{keys: []string{"relink"}, label: "Relink", run: func(ctx context.Context) error {
			return s.withArgs(ctx, []string{"id: ", "component id: "}, func(in []string) []string {
				return []string{"relink", in[0], in[1]}
			})
		}})
	}

	return append(entries, back)
}

func (s *shell) projectMenu() []menuEntry {
	return []menuEntry{
		{keys: []string{"hash", "h"}, label: "Title and table hashes", run: func(ctx context.Context) error {
			return s.exec(ctx, "hash")
		}},
		{keys: []string{"init", "i"}, label: "Initialize", run: func(ctx context.Context) error {
			return s.exec(ctx, "init")
		}},
		{keys: []string{"config", "c"}, label: "Show configuration", run: func(ctx context.Context) error {
			return s.exec(ctx, "print-config")
		}},
		back,
	}
}

// withArgs asks each question, then runs the command build returns. A nil
// command is skipped.
func (s *shell) withArgs(ctx context.Context, questions []string, build func(answers []string) []string) error {
	answers := make([]string, 0, len(questions))

	for _, q := range questions {
		line, err := s.prompt.Prompt(q)
		if err != nil {
			return err
		}

		answers = append(answers, strings.TrimSpace(line))
	}

	args := build(answers)
	if args == nil {
		return nil
	}

	return s.exec(ctx, args[0], args[1:]...)
}

// exec runs a command with fresh flags and output state. Its failures are
// printed and do not end the shell.
func (s *shell) exec(ctx context.Context, name string, args ...string) error {
	cmd := allCommands(s.app).lookup(name)
	if cmd == nil {
		return fmt.Errorf("%w: %s", errUnknownCommand, name)
	}

	s.app.log.Debug("shell action", "command", name, "args", args)

	o := NewIO(s.io.in, s.io.out, s.io.errOut)
	cmd.Run(ctx, o, args)

	return nil
}

func completeMenu(line string) []string {
	words := []string{
		"requirement", "component", "project", "exit",
		"list", "show", "draft", "insert", "edit", "update", "delete", "pending", "relink",
		"hash", "init", "config", "back",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, w := range words {
		if strings.HasPrefix(w, lower) {
			completions = append(completions, w)
		}
	}

	return completions
}
