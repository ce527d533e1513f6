package logicbridge

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/aretw0/logicbridge/internal/adapters/ichiban"
	"github.com/aretw0/logicbridge/internal/compiler"
	"github.com/aretw0/logicbridge/pkg/codec"
	"github.com/aretw0/logicbridge/pkg/dispatch"
	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/aretw0/logicbridge/pkg/query"
	"github.com/aretw0/logicbridge/pkg/registry"
	"github.com/aretw0/logicbridge/pkg/streams"
	"github.com/aretw0/logicbridge/pkg/term"
	"github.com/google/uuid"
)

// bindingsName wraps a goal with the list of its named variables.
const bindingsName = "$bridge_vars"

// sessionProgram is loaded into every engine by the session.
const sessionProgram = `'$bridge_vars'(G, _) :- call(G).`

// Session is one engine instance plus the host-side state bound to it.
// A Session serves one call at a time; share it through session.Manager.
type Session struct {
	name      string
	eng       ports.Engine
	codec     *codec.Codec
	handles   *registry.Handles
	functions *registry.Functions
	dispatch  *dispatch.Dispatcher
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	bufSize   int

	in  ports.InputSource
	out ports.OutputSink

	program   []string
	consulted map[string]bool // indicators declared multifile by a consult
	pending   *query.Iterator
	closed  bool
}

// New creates a session with its own engine.
func New(opts ...Option) (*Session, error) {
	s := &Session{bufSize: codec.DefaultBufferSize, consulted: make(map[string]bool)}
	for _, opt := range opts {
		opt(s)
	}

	// 1. Defaults
	if s.name == "" {
		s.name = "session-" + uuid.NewString()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.logger = s.logger.With("session", s.name)
	if s.functions == nil {
		s.functions = registry.Builtins()
	}
	if s.out == nil {
		s.out = streams.NewWriterOutput(os.Stdout)
	}
	if s.in == nil {
		s.in = streams.NewStringInput("")
	}

	// 2. Engine
	if s.eng == nil {
		eng, err := ichiban.New(ichiban.WithLogger(s.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to start engine: %w", err)
		}
		s.eng = eng
	}
	s.eng.InstallOutput(s.out)
	s.eng.InstallInput(s.in)

	// 3. Marshalling and foreign predicates
	s.handles = registry.NewHandles()
	s.codec = codec.New(s.eng, s.handles, codec.WithBuffer(make([]byte, 0, s.bufSize)))
	s.dispatch = dispatch.New(s.eng, s.codec, s.functions, s.handles,
		dispatch.WithLogger(s.logger),
		dispatch.WithLifecycleHooks(s.hooks),
		dispatch.WithSession(s.name),
	)
	if err := s.dispatch.Register(); err != nil {
		_ = s.eng.Close()
		return nil, err
	}
	if err := s.eng.Exec(context.Background(), sessionProgram); err != nil {
		_ = s.eng.Close()
		return nil, fmt.Errorf("failed to load session program: %w", err)
	}

	s.logger.Debug("session started")
	return s, nil
}

// Name returns the session name.
func (s *Session) Name() string { return s.name }

// Handles returns the registry of host values exposed to the engine.
func (s *Session) Handles() *registry.Handles { return s.handles }

// Functions returns the function table foreign predicates call into.
func (s *Session) Functions() *registry.Functions { return s.functions }

// Output returns the installed output sink.
func (s *Session) Output() ports.OutputSink { return s.out }

// Input returns the installed input source.
func (s *Session) Input() ports.InputSource { return s.in }

// SetOutput installs a new output sink and returns the previous one.
func (s *Session) SetOutput(out ports.OutputSink) ports.OutputSink {
	prev := s.out
	s.out = out
	s.eng.InstallOutput(out)
	return prev
}

// SetInput installs a new input source and returns the previous one.
func (s *Session) SetInput(in ports.InputSource) ports.InputSource {
	prev := s.in
	s.in = in
	s.eng.InstallInput(in)
	return prev
}

// Muted runs fn with engine output silenced.
func (s *Session) Muted(fn func() error) error {
	return streams.Muted(s.out, fn)
}

// Program returns the clauses asserted or consulted so far, in load order.
func (s *Session) Program() []string {
	return append([]string(nil), s.program...)
}

func (s *Session) check() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	return nil
}

// Assertz adds a clause at the end of its predicate.
func (s *Session) Assertz(ctx context.Context, clause string) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.eng.Assert(ctx, clause, false); err != nil {
		return fmt.Errorf("assertz: %w", err)
	}
	s.program = append(s.program, strings.TrimSuffix(strings.TrimSpace(clause), "."))
	return nil
}

// Asserta adds a clause at the front of its predicate.
func (s *Session) Asserta(ctx context.Context, clause string) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.eng.Assert(ctx, clause, true); err != nil {
		return fmt.Errorf("asserta: %w", err)
	}
	s.program = append([]string{strings.TrimSuffix(strings.TrimSpace(clause), ".")}, s.program...)
	return nil
}

// AssertProgram splits program text into clauses and asserts each one in order.
func (s *Session) AssertProgram(ctx context.Context, program string) error {
	for _, clause := range compiler.SplitClauses(program) {
		if err := s.Assertz(ctx, clause); err != nil {
			return err
		}
	}
	return nil
}

// Consult loads program text, clauses and directives, with engine output muted.
// Predicates it defines stay dynamic so later asserts reach them, and consulting
// more clauses for a predicate adds to it.
func (s *Session) Consult(ctx context.Context, program string) error {
	if err := s.check(); err != nil {
		return err
	}
	start := time.Now()
	s.emit(ctx, s.hooks.OnQueryStart, domain.EventQueryStart, program, 0, nil)

	clauses := compiler.SplitClauses(program)
	text, defined := s.consultText(ctx, program, clauses)
	err := s.Muted(func() error {
		return s.eng.Exec(ctx, text)
	})
	if err != nil {
		err = fmt.Errorf("consult: %w", err)
	} else {
		for _, pi := range defined {
			s.consulted[pi] = true
		}
		s.program = append(s.program, clauses...)
	}

	s.emit(ctx, s.hooks.OnQueryEnd, domain.EventQueryEnd, program, time.Since(start), err)
	return err
}

// consultText prefixes program with dynamic, multifile and discontiguous declarations for
// every predicate it defines. The engine replaces a predicate that was not declared
// multifile before, so recorded clauses of predicates only asserted so far are carried along.
func (s *Session) consultText(ctx context.Context, program string, clauses []string) (string, []string) {
	var defined []string
	seen := make(map[string]bool)
	carry := false
	for _, clause := range clauses {
		pi, ok, err := s.indicator(ctx, clause)
		if err != nil || !ok || seen[pi] {
			continue
		}
		seen[pi] = true
		defined = append(defined, pi)
		carry = carry || !s.consulted[pi]
	}

	var b strings.Builder
	for _, pi := range defined {
		fmt.Fprintf(&b, ":- dynamic(%[1]s).\n:- multifile(%[1]s).\n:- discontiguous(%[1]s).\n", pi)
	}
	if carry {
		for _, clause := range s.program {
			pi, ok, err := s.indicator(ctx, clause)
			if err == nil && ok && seen[pi] && !s.consulted[pi] {
				b.WriteString(clause)
				b.WriteString(".\n")
			}
		}
	}
	b.WriteString(program)
	return b.String(), defined
}

// Reconsult replaces every predicate the program defines, then consults it.
func (s *Session) Reconsult(ctx context.Context, program string) error {
	if err := s.check(); err != nil {
		return err
	}
	clauses := compiler.SplitClauses(program)
	replaced := make(map[string]bool)
	for _, clause := range clauses {
		pi, ok, err := s.indicator(ctx, clause)
		if err != nil {
			return fmt.Errorf("reconsult: %w", err)
		}
		if ok && !replaced[pi] {
			replaced[pi] = true
			if _, _, err := s.Exec(ctx, fmt.Sprintf("catch(abolish(%s), _, true)", pi)); err != nil {
				return fmt.Errorf("reconsult: %w", err)
			}
			delete(s.consulted, pi)
		}
	}

	kept := s.program[:0:0]
	for _, clause := range s.program {
		pi, ok, err := s.indicator(ctx, clause)
		if err == nil && ok && replaced[pi] {
			continue
		}
		kept = append(kept, clause)
	}
	s.program = kept

	return s.Consult(ctx, program)
}

// indicator returns the Name/Arity of the predicate a clause defines.
// Directives define nothing and report false.
func (s *Session) indicator(ctx context.Context, clause string) (string, bool, error) {
	h, err := s.MakeTerm(ctx, clause)
	if err != nil {
		return "", false, err
	}
	name, arity, err := h.FunctorArity()
	if err != nil {
		return "", false, err
	}
	if name == ":-" {
		if arity == 1 {
			return "", false, nil
		}
		head, err := h.Arg(1)
		if err != nil || head == nil {
			return "", false, err
		}
		if name, arity, err = head.FunctorArity(); err != nil {
			return "", false, err
		}
	}
	return fmt.Sprintf("%s/%d", quoteAtom(name), arity), true, nil
}

// quoteAtom renders name so it reads back as the same atom.
func quoteAtom(name string) string {
	if name != "" && unicode.IsLower(rune(name[0])) && domain.IsBareWord(name) {
		return name
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name) + "'"
}

// ConsultFile consults the program stored at path.
func (s *Session) ConsultFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("consult %s: %w", path, err)
	}
	return s.Consult(ctx, string(data))
}

func (s *Session) queryOpts(mode domain.QueryMode, extra ...query.Option) []query.Option {
	return append([]query.Option{
		query.WithMode(mode),
		query.WithSession(s.name),
		query.WithLifecycleHooks(s.hooks),
	}, extra...)
}

// Exec runs a query to its first solution and clears it.
// The returned root stays readable until the next call on the session.
func (s *Session) Exec(ctx context.Context, q string) (bool, *term.Handle, error) {
	if err := s.check(); err != nil {
		return false, nil, err
	}
	it := query.New(s.eng, s.codec, s.queryOpts(domain.ModeExec)...)
	ok, err := it.Start(ctx, q)
	if err != nil || !ok {
		return false, nil, err
	}
	root := it.Root()
	if err := it.Stop(); err != nil {
		return false, nil, err
	}
	return true, root, nil
}

// CallStr runs a query to its first solution and keeps it open for Redo.
func (s *Session) CallStr(ctx context.Context, q string) (bool, *term.Handle, error) {
	if err := s.check(); err != nil {
		return false, nil, err
	}
	if s.pending != nil && s.pending.State() == query.HasSolution {
		return false, nil, domain.ErrCallPending
	}
	it := query.New(s.eng, s.codec, s.queryOpts(domain.ModeCall)...)
	ok, err := it.Start(ctx, q)
	if err != nil || !ok {
		s.pending = nil
		return false, nil, err
	}
	s.pending = it
	return true, it.Root(), nil
}

// Redo backtracks into the query opened by CallStr.
// The root handle returned by CallStr reflects the new solution.
func (s *Session) Redo(ctx context.Context) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	if s.pending == nil {
		return false, nil
	}
	ok, err := s.pending.Advance(ctx)
	if err != nil || !ok {
		s.pending = nil
	}
	return ok, err
}

// ClearCall abandons the query opened by CallStr.
func (s *Session) ClearCall() error {
	if s.pending == nil {
		return nil
	}
	err := s.pending.Stop()
	s.pending = nil
	return err
}

// FindAll returns the decoded root of every solution.
func (s *Session) FindAll(ctx context.Context, q string) ([]any, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	out := []any{}
	for v, err := range query.All(ctx, s.eng, s.codec, q, s.queryOpts(domain.ModeAll)...) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// QueryOne returns the variable bindings of the first solution, or nil when there is none.
func (s *Session) QueryOne(ctx context.Context, q string) (map[string]any, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	v, ok, err := query.First(ctx, s.eng, s.codec, bindingsQuery(q),
		s.queryOpts(domain.ModeFirst, query.WithProjection(projectBindings))...)
	if err != nil || !ok {
		return nil, err
	}
	return v.(map[string]any), nil
}

// QueryAll returns a lazy sequence of the variable bindings of every solution.
func (s *Session) QueryAll(ctx context.Context, q string) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		if err := s.check(); err != nil {
			yield(nil, err)
			return
		}
		seq := query.All(ctx, s.eng, s.codec, bindingsQuery(q),
			s.queryOpts(domain.ModeAll, query.WithProjection(projectBindings))...)
		for v, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(v.(map[string]any), nil) {
				return
			}
		}
	}
}

// bindingsQuery pairs each named variable with its name: '$bridge_vars'((Q), ['X', X]).
func bindingsQuery(q string) string {
	vars := compiler.Variables(q)
	pairs := make([]string, 0, 2*len(vars))
	for _, v := range vars {
		pairs = append(pairs, "'"+v+"'", v)
	}
	goal := strings.TrimSuffix(strings.TrimSpace(q), ".")
	return fmt.Sprintf("'%s'((%s), [%s])", bindingsName, goal, strings.Join(pairs, ", "))
}

func projectBindings(c *codec.Codec, root *term.Handle) (any, error) {
	list, err := root.Arg(2)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, fmt.Errorf("bindings: root %s has no variable list", root)
	}
	v, err := c.Decode(list)
	if err != nil {
		return nil, err
	}
	pairs, _ := v.([]any)
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("bindings: variable name %v is not text", pairs[i])
		}
		out[name] = pairs[i+1]
	}
	return out, nil
}

// MakeTerm reads text as a term without calling it.
func (s *Session) MakeTerm(ctx context.Context, text string) (*term.Handle, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	ref, err := s.eng.Parse(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("make term: %w", err)
	}
	return term.New(s.eng, ref), nil
}

// ObjectToTerm encodes a native value as a term.
func (s *Session) ObjectToTerm(v any) (*term.Handle, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.codec.Encode(v)
}

// TermToObject decodes a term into its native value.
func (s *Session) TermToObject(h *term.Handle) (any, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.codec.Decode(h)
}

// SaveProgram stores the session's clauses under name.
func (s *Session) SaveProgram(ctx context.Context, store ports.ProgramStore, name string) error {
	if err := store.Save(ctx, name, s.Program()); err != nil {
		return fmt.Errorf("save program %s: %w", name, err)
	}
	return nil
}

// LoadProgram reconsults the clauses stored under name, replacing the predicates they define.
func (s *Session) LoadProgram(ctx context.Context, store ports.ProgramStore, name string) error {
	clauses, err := store.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("load program %s: %w", name, err)
	}
	if len(clauses) == 0 {
		return nil
	}
	return s.Reconsult(ctx, strings.Join(clauses, ".\n")+".\n")
}

// Close releases the engine and every retained host value.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	_ = s.ClearCall()
	s.closed = true
	s.handles.Clear()
	s.logger.Debug("session closed")
	return s.eng.Close()
}

func (s *Session) emit(ctx context.Context, hook func(context.Context, *domain.QueryEvent), typ domain.EventType, q string, d time.Duration, err error) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.QueryEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ, Session: s.name},
		Mode:      domain.ModeConsult,
		Query:     q,
		Duration:  d,
		Err:       err,
	})
}
