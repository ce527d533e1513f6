package ichiban

import (
	"context"
	"fmt"

	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/ichiban/prolog/engine"
)

// callContext is the view of one foreign predicate invocation.
// Unifications apply to env immediately; the final env continues the engine proof.
type callContext struct {
	a      *Adapter
	ctx    context.Context
	env    *engine.Env
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
	val, err := c.a.deepRef(t)
	if err != nil {
		return false, err
	}
	env, ok := c.env.Unify(c.a.arena[p].term, val)
	if !ok {
		return false, nil
	}
	c.env = env
	for _, ref := range c.params {
		c.a.arena[ref].env = env
	}
	return true, nil
}

// run adapts a host predicate to the interpreter's calling convention.
func (a *Adapter) run(p ports.Predicate, args []engine.Term, k engine.Cont, env *engine.Env) *engine.Promise {
	call := &callContext{a: a, ctx: a.ctx, env: env, params: make([]ports.TermRef, len(args))}
	for i, arg := range args {
		call.params[i] = a.add(entry{term: arg, env: env})
	}

	a.inPredicate++
	ok, err := p(call)
	a.inPredicate--

	if err != nil {
		return engine.Error(err)
	}
	if !ok {
		return engine.Bool(false)
	}
	return k(call.env)
}

func (a *Adapter) RegisterPredicate(name string, arity int, p ports.Predicate) error {
	atom := engine.NewAtom(name)
	switch arity {
	case 0:
		a.vm.Register0(atom, func(_ *engine.VM, k engine.Cont, env *engine.Env) *engine.Promise {
			return a.run(p, nil, k, env)
		})
	case 1:
		a.vm.Register1(atom, func(_ *engine.VM, x engine.Term, k engine.Cont, env *engine.Env) *engine.Promise {
			return a.run(p, []engine.Term{x}, k, env)
		})
	case 2:
		a.vm.Register2(atom, func(_ *engine.VM, x, y engine.Term, k engine.Cont, env *engine.Env) *engine.Promise {
			return a.run(p, []engine.Term{x, y}, k, env)
		})
	case 3:
		a.vm.Register3(atom, func(_ *engine.VM, x, y, z engine.Term, k engine.Cont, env *engine.Env) *engine.Promise {
			return a.run(p, []engine.Term{x, y, z}, k, env)
		})
	case 4:
		a.vm.Register4(atom, func(_ *engine.VM, x, y, z, w engine.Term, k engine.Cont, env *engine.Env) *engine.Promise {
			return a.run(p, []engine.Term{x, y, z, w}, k, env)
		})
	default:
		return fmt.Errorf("unsupported predicate arity %d for %s", arity, name)
	}
	return nil
}
