/*
Package dispatch exposes host functions to engine clauses as foreign predicates.

Four predicates are registered on the engine:

	go_true(Fn, Args)        succeeds iff Fn(Args...) returns a truthy value
	go_bind(Fn, Args, Out)   unifies Out with the encoded result of Fn(Args...)
	go_getobj(Fn, Args, Out) retains the result in the handle registry and unifies Out with its address
	go_delobj(Addr)          releases Addr; succeeds iff it was retained

Fn must be the name of a function in the session's function table. Args is a list of
arguments; any other term is passed as the only argument.

A host function that fails or panics makes the predicate fail, so engine-side
alternatives still run. Malformed parameters of go_getobj and go_delobj, and results
that cannot be encoded, are raised in the engine as errors.
*/
package dispatch
