package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/logicbridge"
	"github.com/aretw0/logicbridge/internal/presentation/tui"
)

// DefaultLimit caps how many solutions the REPL lists per query.
const DefaultLimit = 20

const replHelp = `Enter a goal ending with '.' to list its solutions. Goals may span lines.

| command | effect |
| --- | --- |
| :consult FILE | load a program file |
| :assert CLAUSES | add clauses |
| :program | print the clauses loaded so far |
| :save | store the program under the session name |
| :sessions | list open sessions |
| :quit | leave |
`

// REPL reads goals from In and prints their bindings to Out.
type REPL struct {
	App    *App
	In     io.Reader
	Out    io.Writer
	Render tui.Renderer
	Limit  int
}

// Run loops until :quit, end of input or ctx is done.
// An idle REPL returns as soon as ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	if r.Render == nil {
		r.Render = tui.Plain
	}
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}

	done := make(chan struct{})
	defer close(done)
	lines := pump(resolveInput(r.In), done)

	var pending strings.Builder
	for {
		if pending.Len() == 0 {
			fmt.Fprint(r.Out, "?- ")
		} else {
			fmt.Fprint(r.Out, "|    ")
		}

		var res inputResult
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.Out)
			return nil
		case res = <-lines:
		}
		if res.eof {
			fmt.Fprintln(r.Out)
			return res.err
		}

		line := strings.TrimSpace(res.text)
		if pending.Len() == 0 && strings.HasPrefix(line, ":") {
			quit, err := r.command(ctx, line)
			if err != nil {
				tui.Status(r.Out, false, err.Error())
			}
			if quit {
				return nil
			}
			continue
		}
		if line == "" {
			continue
		}

		pending.WriteString(line)
		pending.WriteByte('\n')
		goal := strings.TrimSpace(pending.String())
		if !strings.HasSuffix(goal, ".") {
			continue
		}
		pending.Reset()
		if err := r.query(ctx, goal); err != nil {
			tui.Status(r.Out, false, err.Error())
		}
	}
}

type inputResult struct {
	text string
	eof  bool
	err  error
}

// resolveInput swaps a terminal for the platform console reader (CONIN$ on Windows),
// so reads survive Ctrl+C.
func resolveInput(in io.Reader) io.Reader {
	if upgraded, err := lifecycle.UpgradeTerminal(in); err == nil && upgraded != nil {
		return upgraded
	}
	return in
}

// pump reads lines in the background until end of input or done is closed.
func pump(in io.Reader, done <-chan struct{}) <-chan inputResult {
	lines := make(chan inputResult)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- inputResult{text: scanner.Text()}:
			case <-done:
				return
			}
		}
		select {
		case lines <- inputResult{eof: true, err: scanner.Err()}:
		case <-done:
		}
	}()
	return lines
}

func (r *REPL) command(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":q", ":quit", ":exit":
		return true, nil
	case ":help", ":h":
		return false, r.print(replHelp)
	case ":consult":
		if arg == "" {
			return false, errors.New("usage: :consult FILE")
		}
		return false, r.App.WithSession(ctx, func(ctx context.Context, s *logicbridge.Session) error {
			if err := s.ConsultFile(ctx, arg); err != nil {
				return err
			}
			tui.Status(r.Out, true, "consulted "+arg)
			return nil
		})
	case ":assert":
		return false, r.App.WithSession(ctx, func(ctx context.Context, s *logicbridge.Session) error {
			return s.AssertProgram(ctx, arg)
		})
	case ":program":
		return false, r.App.WithSession(ctx, func(ctx context.Context, s *logicbridge.Session) error {
			for _, clause := range s.Program() {
				fmt.Fprintf(r.Out, "%s.\n", clause)
			}
			return nil
		})
	case ":save":
		if err := r.App.Sessions.Save(ctx, r.App.SessionName()); err != nil {
			return false, err
		}
		tui.Status(r.Out, true, "saved "+r.App.SessionName())
		return false, nil
	case ":sessions":
		for _, s := range r.App.Sessions.List() {
			fmt.Fprintln(r.Out, s)
		}
		return false, nil
	}
	return false, fmt.Errorf("unknown command %s (try :help)", name)
}

func (r *REPL) query(ctx context.Context, goal string) error {
	var rows []map[string]any
	more := false
	err := r.App.WithSession(ctx, func(ctx context.Context, s *logicbridge.Session) error {
		for b, err := range s.QueryAll(ctx, goal) {
			if err != nil {
				return err
			}
			if len(rows) == r.Limit {
				more = true
				break
			}
			rows = append(rows, b)
		}
		return nil
	})
	if err != nil {
		return err
	}

	md := tui.BindingsTable(rows)
	if more {
		md += fmt.Sprintf("\n_first %d solutions shown_\n", r.Limit)
	}
	return r.print(md)
}

func (r *REPL) print(markdown string) error {
	out, err := r.Render(markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(r.Out, out)
	return err
}
