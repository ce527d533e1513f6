package cli

import (
	"context"
	"io"

	"github.com/aretw0/logicbridge"
	"github.com/aretw0/logicbridge/internal/presentation/tui"
)

// Query prints the bindings of the first solution, or of every solution when all is set.
func Query(ctx context.Context, app *App, w io.Writer, render tui.Renderer, goal string, all bool) error {
	var rows []map[string]any
	err := app.WithSession(ctx, func(ctx context.Context, s *logicbridge.Session) error {
		if !all {
			b, err := s.QueryOne(ctx, goal)
			if b != nil {
				rows = append(rows, b)
			}
			return err
		}
		for b, err := range s.QueryAll(ctx, goal) {
			if err != nil {
				return err
			}
			rows = append(rows, b)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return write(w, render, tui.BindingsTable(rows))
}

// FindAll prints the decoded root of every solution.
func FindAll(ctx context.Context, app *App, w io.Writer, render tui.Renderer, goal string) error {
	var values []any
	err := app.WithSession(ctx, func(ctx context.Context, s *logicbridge.Session) error {
		var err error
		values, err = s.FindAll(ctx, goal)
		return err
	})
	if err != nil {
		return err
	}
	return write(w, render, tui.ValuesList(values))
}

func write(w io.Writer, render tui.Renderer, markdown string) error {
	if render == nil {
		render = tui.Plain
	}
	out, err := render(markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
