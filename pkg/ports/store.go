package ports

import "context"

// ProgramStore persists the clauses asserted into a session under a program name,
// so a program can be reloaded into a fresh engine.
type ProgramStore interface {
	// Save replaces the program stored under name.
	Save(ctx context.Context, name string, clauses []string) error

	// Load returns the clauses of a program in assertion order.
	// Returns domain.ErrProgramNotFound if the program does not exist.
	Load(ctx context.Context, name string) ([]string, error)

	// Delete removes a program. Deleting a missing program is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all stored programs.
	List(ctx context.Context) ([]string, error)
}
