package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/logicbridge/pkg/domain"
)

// Function is a host function callable from engine clauses.
// It receives the decoded argument list and returns a native result or an error.
type Function func(ctx context.Context, args []any) (any, error)

// Functions is the closed table of host functions the dispatcher may call.
// Names that are not registered cannot be reached from the engine.
type Functions struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewFunctions creates an empty function table.
func NewFunctions() *Functions {
	return &Functions{
		funcs: make(map[string]Function),
	}
}

// Register adds a function to the table.
// If a function with the same name exists, it is overwritten.
func (f *Functions) Register(name string, fn Function) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funcs[name] = fn
}

// Lookup returns the function registered under name.
func (f *Functions) Lookup(name string) (Function, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fn, ok := f.funcs[name]
	return fn, ok
}

// Call looks up a function by name and executes it.
// Returns domain.ErrFunctionNotFound if the name is not registered.
func (f *Functions) Call(ctx context.Context, name string, args []any) (any, error) {
	fn, ok := f.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFunctionNotFound, name)
	}
	return fn(ctx, args)
}

// Names returns the registered names in sorted order.
func (f *Functions) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.funcs))
	for name := range f.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge copies every function of other into f, overwriting on name clashes.
func (f *Functions) Merge(other *Functions) {
	if other == nil || other == f {
		return
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, fn := range other.funcs {
		f.funcs[name] = fn
	}
}
