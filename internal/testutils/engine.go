package testutils

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
)

type node struct {
	kind domain.Kind
	text string // atom or string text, functor, variable name
	i    int64
	f    float64
	args []ports.TermRef // struct arguments, or head and tail of a list cell
}

type predicate struct {
	arity int
	fn    ports.Predicate
}

// Engine is an in-memory ports.Engine for unit tests.
// It stores terms but does no resolution: query answers are scripted with Script.
type Engine struct {
	nodes []node

	// KindCalls and ShapeCalls count engine lookups per term, to check caching.
	KindCalls  map[ports.TermRef]int
	ShapeCalls map[ports.TermRef]int

	// Queries, Programs and Asserted record what the bridge sent to the engine.
	Queries  []string
	Programs []string
	Asserted []string

	script  map[string][]any
	terms   map[string]any
	preds   map[string]predicate
	pending []any
	active  bool
	root    ports.TermRef
	lastErr string

	In     ports.InputSource
	Out    ports.OutputSink
	Closed bool
}

var _ ports.Engine = (*Engine)(nil)

// NewEngine creates an empty fake engine.
func NewEngine() *Engine {
	return &Engine{
		nodes:      []node{{}},
		KindCalls:  make(map[ports.TermRef]int),
		ShapeCalls: make(map[ports.TermRef]int),
		script:     make(map[string][]any),
		terms:      make(map[string]any),
		preds:      make(map[string]predicate),
	}
}

// Script sets the solutions Call and Retry will produce for query, in order.
// Each solution is the native value the root term is bound to.
func (e *Engine) Script(query string, solutions ...any) {
	e.script[query] = solutions
}

// Define sets the term Parse returns for text.
func (e *Engine) Define(text string, v any) {
	e.terms[text] = v
}

// Build stores a native value as a term, the way the engine would hold it.
func (e *Engine) Build(v any) ports.TermRef {
	switch x := v.(type) {
	case string:
		if x == domain.EmptyListAtom || domain.IsBareWord(x) {
			return e.EncodeAtom(x)
		}
		return e.EncodeString(x)
	case int:
		return e.EncodeInteger(int64(x))
	case int64:
		return e.EncodeInteger(x)
	case float64:
		return e.EncodeFloat(x)
	case []any:
		list := e.MakeList()
		for i := len(x) - 1; i >= 0; i-- {
			_ = e.Prepend(list, e.Build(x[i]))
		}
		return list
	case domain.Struct:
		if len(x.Args) == 0 {
			return e.EncodeAtom(x.Functor)
		}
		args := make([]ports.TermRef, len(x.Args))
		for i, a := range x.Args {
			args[i] = e.Build(a)
		}
		return e.add(node{kind: domain.KindStruct, text: x.Functor, args: args})
	case domain.Variable:
		return e.EncodeVariable()
	case domain.Address:
		return e.EncodeAddress(x.Key)
	}
	panic(fmt.Sprintf("testutils: cannot build %T", v))
}

// Invoke runs a registered predicate with the given parameters.
func (e *Engine) Invoke(ctx context.Context, name string, params ...ports.TermRef) (bool, error) {
	key := fmt.Sprintf("%s/%d", name, len(params))
	p, ok := e.preds[key]
	if !ok {
		return false, fmt.Errorf("unknown procedure %s", key)
	}
	return p.fn(&callContext{ctx: ctx, eng: e, params: params})
}

// InvokeWith runs a registered predicate against a caller-supplied call context.
func (e *Engine) InvokeWith(name string, call ports.CallContext) (bool, error) {
	key := fmt.Sprintf("%s/%d", name, call.Arity())
	p, ok := e.preds[key]
	if !ok {
		return false, fmt.Errorf("unknown procedure %s", key)
	}
	return p.fn(call)
}

// HasPredicate reports whether name/arity was registered.
func (e *Engine) HasPredicate(name string, arity int) bool {
	_, ok := e.preds[fmt.Sprintf("%s/%d", name, arity)]
	return ok
}

func (e *Engine) add(n node) ports.TermRef {
	e.nodes = append(e.nodes, n)
	return ports.TermRef(len(e.nodes) - 1)
}

func (e *Engine) get(t ports.TermRef) (*node, error) {
	if t == 0 || int(t) >= len(e.nodes) {
		return nil, fmt.Errorf("invalid term reference %d", t)
	}
	return &e.nodes[t], nil
}

func (e *Engine) isEmptyList(t ports.TermRef) bool {
	n, err := e.get(t)
	return err == nil && n.kind == domain.KindAtom && n.text == domain.EmptyListAtom
}

func (e *Engine) Call(ctx context.Context, query string) (bool, ports.TermRef, error) {
	if e.active {
		return false, 0, domain.ErrCallPending
	}
	e.Queries = append(e.Queries, query)
	sols, ok := e.script[query]
	if !ok || len(sols) == 0 {
		return false, 0, nil
	}
	e.root = e.Build(sols[0])
	e.pending = sols[1:]
	e.active = true
	return true, e.root, nil
}

func (e *Engine) Retry(ctx context.Context) (bool, error) {
	if !e.active {
		return false, nil
	}
	if len(e.pending) == 0 {
		e.active = false
		return false, nil
	}
	next := e.Build(e.pending[0])
	e.nodes[e.root] = e.nodes[next]
	e.pending = e.pending[1:]
	return true, nil
}

func (e *Engine) ClearPending() error {
	e.active = false
	e.pending = nil
	return nil
}

// Pending reports whether a query still holds retry state.
func (e *Engine) Pending() bool {
	return e.active
}

func (e *Engine) Exec(ctx context.Context, program string) error {
	e.Programs = append(e.Programs, program)
	return nil
}

func (e *Engine) Assert(ctx context.Context, clause string, front bool) error {
	if front {
		e.Asserted = append([]string{clause}, e.Asserted...)
		return nil
	}
	e.Asserted = append(e.Asserted, clause)
	return nil
}

func (e *Engine) Parse(ctx context.Context, text string) (ports.TermRef, error) {
	v, ok := e.terms[text]
	if !ok {
		e.lastErr = "syntax error: " + text
		return 0, &domain.EngineCallError{Op: "parse", Text: e.lastErr}
	}
	return e.Build(v), nil
}

func (e *Engine) Kind(t ports.TermRef) (domain.Kind, error) {
	n, err := e.get(t)
	if err != nil {
		return domain.KindUnknown, err
	}
	e.KindCalls[t]++
	return n.kind, nil
}

func (e *Engine) FunctorArity(t ports.TermRef, dst []byte) ([]byte, int, error) {
	n, err := e.get(t)
	if err != nil {
		return dst, 0, err
	}
	e.ShapeCalls[t]++
	switch n.kind {
	case domain.KindStruct:
		return append(dst, n.text...), len(n.args), nil
	case domain.KindAtom:
		return append(dst, n.text...), 0, nil
	}
	return dst, 0, fmt.Errorf("not a struct: %s", n.kind)
}

func (e *Engine) Arg(t ports.TermRef, i int) (ports.TermRef, bool, error) {
	n, err := e.get(t)
	if err != nil {
		return 0, false, err
	}
	if n.kind != domain.KindStruct || i < 1 || i > len(n.args) {
		return 0, false, nil
	}
	return n.args[i-1], true, nil
}

func (e *Engine) ListHead(t ports.TermRef) (ports.TermRef, bool, error) {
	n, err := e.get(t)
	if err != nil {
		return 0, false, err
	}
	if n.kind == domain.KindList {
		return n.args[0], true, nil
	}
	if e.isEmptyList(t) {
		return 0, false, nil
	}
	return 0, false, fmt.Errorf("not a list: %s", n.kind)
}

func (e *Engine) ListTail(t ports.TermRef) (ports.TermRef, bool, error) {
	n, err := e.get(t)
	if err != nil {
		return 0, false, err
	}
	if n.kind != domain.KindList {
		return 0, false, fmt.Errorf("not a list: %s", n.kind)
	}
	if e.isEmptyList(n.args[1]) {
		return 0, false, nil
	}
	return n.args[1], true, nil
}

func (e *Engine) DecodeText(t ports.TermRef, dst []byte) ([]byte, error) {
	n, err := e.get(t)
	if err != nil {
		return dst, err
	}
	if n.kind != domain.KindAtom && n.kind != domain.KindString {
		return dst, fmt.Errorf("not text: %s", n.kind)
	}
	return append(dst, n.text...), nil
}

func (e *Engine) DecodeInteger(t ports.TermRef) (int64, error) {
	n, err := e.get(t)
	if err != nil {
		return 0, err
	}
	if n.kind != domain.KindInteger {
		return 0, fmt.Errorf("not an integer: %s", n.kind)
	}
	return n.i, nil
}

func (e *Engine) DecodeFloat(t ports.TermRef) (float64, error) {
	n, err := e.get(t)
	if err != nil {
		return 0, err
	}
	if n.kind != domain.KindFloat {
		return 0, fmt.Errorf("not a float: %s", n.kind)
	}
	return n.f, nil
}

func (e *Engine) DecodeAddress(t ports.TermRef) (int64, error) {
	n, err := e.get(t)
	if err != nil {
		return 0, err
	}
	if n.kind != domain.KindAddress {
		return 0, fmt.Errorf("not an address: %s", n.kind)
	}
	return n.i, nil
}

func (e *Engine) EncodeAtom(name string) ports.TermRef {
	return e.add(node{kind: domain.KindAtom, text: name})
}

func (e *Engine) EncodeString(text string) ports.TermRef {
	return e.add(node{kind: domain.KindString, text: text})
}

func (e *Engine) EncodeInteger(v int64) ports.TermRef {
	return e.add(node{kind: domain.KindInteger, i: v})
}

func (e *Engine) EncodeFloat(v float64) ports.TermRef {
	return e.add(node{kind: domain.KindFloat, f: v})
}

func (e *Engine) EncodeAddress(key int64) ports.TermRef {
	return e.add(node{kind: domain.KindAddress, i: key})
}

func (e *Engine) EncodeVariable() ports.TermRef {
	return e.add(node{kind: domain.KindVariable, text: "_G" + strconv.Itoa(len(e.nodes))})
}

func (e *Engine) MakeList() ports.TermRef {
	return e.EncodeAtom(domain.EmptyListAtom)
}

func (e *Engine) Prepend(list, elem ports.TermRef) error {
	n, err := e.get(list)
	if err != nil {
		return err
	}
	if n.kind != domain.KindList && !e.isEmptyList(list) {
		return fmt.Errorf("not a list: %s", n.kind)
	}
	rest := e.add(*n)
	e.nodes[list] = node{kind: domain.KindList, args: []ports.TermRef{elem, rest}}
	return nil
}

func (e *Engine) MakeStruct(functor string, arity int) (ports.TermRef, error) {
	if arity < 1 {
		return 0, fmt.Errorf("arity must be positive, got %d", arity)
	}
	args := make([]ports.TermRef, arity)
	for i := range args {
		args[i] = e.EncodeVariable()
	}
	return e.add(node{kind: domain.KindStruct, text: functor, args: args}), nil
}

func (e *Engine) UnifyArg(s ports.TermRef, i int, v ports.TermRef) (bool, error) {
	n, err := e.get(s)
	if err != nil {
		return false, err
	}
	if n.kind != domain.KindStruct || i < 1 || i > len(n.args) {
		return false, fmt.Errorf("no argument %d", i)
	}
	return e.Unify(n.args[i-1], v)
}

func (e *Engine) Unify(a, b ports.TermRef) (bool, error) {
	na, err := e.get(a)
	if err != nil {
		return false, err
	}
	nb, err := e.get(b)
	if err != nil {
		return false, err
	}
	switch {
	case na.kind == domain.KindVariable:
		e.nodes[a] = *nb
		return true, nil
	case nb.kind == domain.KindVariable:
		e.nodes[b] = *na
		return true, nil
	}
	return e.equal(a, b), nil
}

func (e *Engine) equal(a, b ports.TermRef) bool {
	na, nb := e.nodes[a], e.nodes[b]
	if na.kind != nb.kind || na.text != nb.text || na.i != nb.i || na.f != nb.f || len(na.args) != len(nb.args) {
		return false
	}
	for i := range na.args {
		if !e.equal(na.args[i], nb.args[i]) {
			return false
		}
	}
	return true
}

func (e *Engine) Render(t ports.TermRef, limit int) (string, error) {
	var sb strings.Builder
	if err := e.render(&sb, t); err != nil {
		return "", err
	}
	s := sb.String()
	if limit > 0 && len(s) > limit {
		s = s[:limit]
	}
	return s, nil
}

func (e *Engine) render(sb *strings.Builder, t ports.TermRef) error {
	n, err := e.get(t)
	if err != nil {
		return err
	}
	switch n.kind {
	case domain.KindAtom, domain.KindVariable:
		sb.WriteString(n.text)
	case domain.KindString:
		sb.WriteString(strconv.Quote(n.text))
	case domain.KindInteger:
		sb.WriteString(strconv.FormatInt(n.i, 10))
	case domain.KindFloat:
		sb.WriteString(strconv.FormatFloat(n.f, 'g', -1, 64))
	case domain.KindAddress:
		fmt.Fprintf(sb, "'$address'(%d)", n.i)
	case domain.KindList:
		sb.WriteByte('[')
		for cur := t; ; {
			cell := e.nodes[cur]
			if err := e.render(sb, cell.args[0]); err != nil {
				return err
			}
			if e.isEmptyList(cell.args[1]) {
				break
			}
			sb.WriteString(", ")
			cur = cell.args[1]
		}
		sb.WriteByte(']')
	case domain.KindStruct:
		sb.WriteString(n.text)
		sb.WriteByte('(')
		for i, a := range n.args {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := e.render(sb, a); err != nil {
				return err
			}
		}
		sb.WriteByte(')')
	}
	return nil
}

func (e *Engine) RenderError() string {
	return e.lastErr
}

func (e *Engine) RegisterPredicate(name string, arity int, p ports.Predicate) error {
	e.preds[fmt.Sprintf("%s/%d", name, arity)] = predicate{arity: arity, fn: p}
	return nil
}

func (e *Engine) InstallInput(in ports.InputSource) { e.In = in }

func (e *Engine) InstallOutput(out ports.OutputSink) { e.Out = out }

func (e *Engine) Close() error {
	e.Closed = true
	return nil
}

type callContext struct {
	ctx    context.Context
	eng    *Engine
	params []ports.TermRef
}

func (c *callContext) Context() context.Context { return c.ctx }

func (c *callContext) Arity() int { return len(c.params) }

func (c *callContext) Param(i int) (ports.TermRef, error) {
	if i < 1 || i > len(c.params) {
		return 0, fmt.Errorf("no parameter %d", i)
	}
	return c.params[i-1], nil
}

func (c *callContext) UnifyParam(i int, t ports.TermRef) (bool, error) {
	p, err := c.Param(i)
	if err != nil {
		return false, err
	}
	return c.eng.Unify(p, t)
}
