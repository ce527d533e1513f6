/*
Package registry holds the host-side tables the engine can reach.

Handles retains host values behind opaque integer addresses so engine terms can refer
to objects that have no term representation. Values live until they are released.

Functions is the closed table of host functions. Foreign predicates resolve names
against it and nothing else; Builtins returns a table preloaded with the standard
math, operator, random and iteration functions.
*/
package registry
