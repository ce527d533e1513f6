package ichiban

import (
	"fmt"

	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/ichiban/prolog/engine"
)

// maxResolveDepth bounds deep resolution of possibly cyclic terms.
const maxResolveDepth = 10000

var (
	atomEmptyList = engine.NewAtom(domain.EmptyListAtom)
	atomDot       = engine.NewAtom(".")
	atomAddress   = engine.NewAtom(addressName)
)

// entry is one term handed out to the bridge.
// Root entries resolve against the current solution, so they follow Retry;
// every other entry keeps the environment it was read with.
type entry struct {
	term engine.Term
	env  *engine.Env
	root bool
}

func (a *Adapter) add(e entry) ports.TermRef {
	a.arena = append(a.arena, e)
	return ports.TermRef(len(a.arena) - 1)
}

// lookup returns the resolved term behind t and the environment to read it with.
func (a *Adapter) lookup(t ports.TermRef) (engine.Term, *engine.Env, error) {
	if t == 0 || int(t) >= len(a.arena) {
		return nil, nil, fmt.Errorf("invalid term reference %d", t)
	}
	e := a.arena[t]
	env := e.env
	if e.root {
		env = a.solution.env
	}
	return resolve(env, e.term), env, nil
}

func resolve(env *engine.Env, t engine.Term) engine.Term {
	if env == nil {
		return t
	}
	return env.Resolve(t)
}

// deep resolves t and every argument below it.
func deep(env *engine.Env, t engine.Term, depth int) engine.Term {
	t = resolve(env, t)
	c, ok := t.(engine.Compound)
	if !ok || depth >= maxResolveDepth {
		return t
	}
	args := make([]engine.Term, c.Arity())
	for i := range args {
		args[i] = deep(env, c.Arg(i), depth+1)
	}
	return c.Functor().Apply(args...)
}

func (a *Adapter) deepRef(t ports.TermRef) (engine.Term, error) {
	term, env, err := a.lookup(t)
	if err != nil {
		return nil, err
	}
	return deep(env, term, 0), nil
}

func isList(c engine.Compound) bool {
	return c.Functor() == atomDot && c.Arity() == 2
}

func isAddress(c engine.Compound) bool {
	if c.Functor() != atomAddress || c.Arity() != 1 {
		return false
	}
	_, ok := c.Arg(0).(engine.Integer)
	return ok
}

func kindOf(t engine.Term) domain.Kind {
	switch x := t.(type) {
	case engine.Atom:
		if x == atomEmptyList || domain.IsBareWord(x.String()) {
			return domain.KindAtom
		}
		return domain.KindString
	case engine.Integer:
		return domain.KindInteger
	case engine.Float:
		return domain.KindFloat
	case engine.Variable:
		return domain.KindVariable
	case engine.Compound:
		switch {
		case isList(x):
			return domain.KindList
		case isAddress(x):
			return domain.KindAddress
		}
		return domain.KindStruct
	}
	return domain.KindUnknown
}

func (a *Adapter) Kind(t ports.TermRef) (domain.Kind, error) {
	term, _, err := a.lookup(t)
	if err != nil {
		return domain.KindUnknown, err
	}
	return kindOf(term), nil
}

func (a *Adapter) FunctorArity(t ports.TermRef, dst []byte) ([]byte, int, error) {
	term, _, err := a.lookup(t)
	if err != nil {
		return dst, 0, err
	}
	switch x := term.(type) {
	case engine.Atom:
		return append(dst, x.String()...), 0, nil
	case engine.Compound:
		return append(dst, x.Functor().String()...), x.Arity(), nil
	}
	return dst, 0, fmt.Errorf("%s has no functor", kindOf(term))
}

func (a *Adapter) Arg(t ports.TermRef, i int) (ports.TermRef, bool, error) {
	term, env, err := a.lookup(t)
	if err != nil {
		return 0, false, err
	}
	c, ok := term.(engine.Compound)
	if !ok || i < 1 || i > c.Arity() {
		return 0, false, nil
	}
	return a.add(entry{term: c.Arg(i - 1), env: env}), true, nil
}

func (a *Adapter) ListHead(t ports.TermRef) (ports.TermRef, bool, error) {
	term, env, err := a.lookup(t)
	if err != nil {
		return 0, false, err
	}
	if term == atomEmptyList {
		return 0, false, nil
	}
	c, ok := term.(engine.Compound)
	if !ok || !isList(c) {
		return 0, false, fmt.Errorf("%s is not a list", kindOf(term))
	}
	return a.add(entry{term: c.Arg(0), env: env}), true, nil
}

func (a *Adapter) ListTail(t ports.TermRef) (ports.TermRef, bool, error) {
	term, env, err := a.lookup(t)
	if err != nil {
		return 0, false, err
	}
	c, ok := term.(engine.Compound)
	if !ok || !isList(c) {
		return 0, false, fmt.Errorf("%s is not a list", kindOf(term))
	}
	if resolve(env, c.Arg(1)) == atomEmptyList {
		return 0, false, nil
	}
	return a.add(entry{term: c.Arg(1), env: env}), true, nil
}

func (a *Adapter) DecodeText(t ports.TermRef, dst []byte) ([]byte, error) {
	term, _, err := a.lookup(t)
	if err != nil {
		return dst, err
	}
	atom, ok := term.(engine.Atom)
	if !ok {
		return dst, fmt.Errorf("%s is not text", kindOf(term))
	}
	return append(dst, atom.String()...), nil
}

func (a *Adapter) DecodeInteger(t ports.TermRef) (int64, error) {
	term, _, err := a.lookup(t)
	if err != nil {
		return 0, err
	}
	i, ok := term.(engine.Integer)
	if !ok {
		return 0, fmt.Errorf("%s is not an integer", kindOf(term))
	}
	return int64(i), nil
}

func (a *Adapter) DecodeFloat(t ports.TermRef) (float64, error) {
	term, _, err := a.lookup(t)
	if err != nil {
		return 0, err
	}
	f, ok := term.(engine.Float)
	if !ok {
		return 0, fmt.Errorf("%s is not a float", kindOf(term))
	}
	return floatValue(f)
}

func (a *Adapter) DecodeAddress(t ports.TermRef) (int64, error) {
	term, _, err := a.lookup(t)
	if err != nil {
		return 0, err
	}
	c, ok := term.(engine.Compound)
	if !ok || !isAddress(c) {
		return 0, fmt.Errorf("%s is not an address", kindOf(term))
	}
	return int64(c.Arg(0).(engine.Integer)), nil
}

func (a *Adapter) EncodeAtom(name string) ports.TermRef {
	return a.add(entry{term: engine.NewAtom(name)})
}

// EncodeString produces an atom: the interpreter reads double-quoted text as atoms too.
// The text "[]" therefore becomes the empty list.
func (a *Adapter) EncodeString(text string) ports.TermRef {
	return a.add(entry{term: engine.NewAtom(text)})
}

func (a *Adapter) EncodeInteger(v int64) ports.TermRef {
	return a.add(entry{term: engine.Integer(v)})
}

func (a *Adapter) EncodeFloat(v float64) ports.TermRef {
	return a.add(entry{term: floatTerm(v)})
}

func (a *Adapter) EncodeAddress(key int64) ports.TermRef {
	return a.add(entry{term: atomAddress.Apply(engine.Integer(key))})
}

func (a *Adapter) EncodeVariable() ports.TermRef {
	return a.add(entry{term: engine.NewVariable()})
}

func (a *Adapter) MakeList() ports.TermRef {
	return a.add(entry{term: atomEmptyList})
}

func (a *Adapter) Prepend(list, elem ports.TermRef) error {
	tail, err := a.deepRef(list)
	if err != nil {
		return err
	}
	if c, ok := tail.(engine.Compound); tail != atomEmptyList && (!ok || !isList(c)) {
		return fmt.Errorf("%s is not a list", kindOf(tail))
	}
	head, err := a.deepRef(elem)
	if err != nil {
		return err
	}
	a.arena[list] = entry{term: atomDot.Apply(head, tail)}
	return nil
}

func (a *Adapter) MakeStruct(functor string, arity int) (ports.TermRef, error) {
	if arity < 1 {
		return 0, fmt.Errorf("arity must be positive, got %d", arity)
	}
	args := make([]engine.Term, arity)
	for i := range args {
		args[i] = engine.NewVariable()
	}
	return a.add(entry{term: engine.NewAtom(functor).Apply(args...)}), nil
}

// UnifyArg binds a still-unbound argument slot directly. A bound slot is unified.
func (a *Adapter) UnifyArg(s ports.TermRef, i int, v ports.TermRef) (bool, error) {
	term, err := a.deepRef(s)
	if err != nil {
		return false, err
	}
	c, ok := term.(engine.Compound)
	if !ok || i < 1 || i > c.Arity() {
		return false, fmt.Errorf("no argument %d", i)
	}
	val, err := a.deepRef(v)
	if err != nil {
		return false, err
	}

	args := make([]engine.Term, c.Arity())
	for j := range args {
		args[j] = c.Arg(j)
	}
	if _, unbound := args[i-1].(engine.Variable); unbound {
		args[i-1] = val
		a.arena[s] = entry{term: c.Functor().Apply(args...)}
		return true, nil
	}
	env, ok := (*engine.Env)(nil).Unify(args[i-1], val)
	if !ok {
		return false, nil
	}
	a.arena[s] = entry{term: deep(env, term, 0)}
	return true, nil
}

func (a *Adapter) Unify(x, y ports.TermRef) (bool, error) {
	tx, ex, err := a.lookup(x)
	if err != nil {
		return false, err
	}
	ty, ey, err := a.lookup(y)
	if err != nil {
		return false, err
	}

	env := ex
	if env == nil {
		env = ey
		tx = deep(ex, tx, 0)
	} else {
		ty = deep(ey, ty, 0)
	}
	env, ok := env.Unify(tx, ty)
	if !ok {
		return false, nil
	}
	for _, ref := range []ports.TermRef{x, y} {
		if e := &a.arena[ref]; e.root {
			a.solution.env = env
		} else {
			e.env = env
		}
	}
	return true, nil
}
