/*
Package term wraps single engine-resident values.

A Handle is an opaque reference to one term plus lazily fetched metadata. The type tag and
the functor/arity pair are asked from the engine once and cached; arguments and list cells
are fetched on every access because backtracking may rebind them between calls.

A Handle is only valid until the next top-level call on the engine that produced it.
*/
package term
