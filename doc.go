/*
Package logicbridge embeds a logic-programming engine in a Go program and lets the two sides call each other.

A Session owns one engine instance. The host loads clauses into it, runs queries and walks their
solutions by backtracking. Terms cross the boundary through a Type Conversion Mediator that maps
atoms, strings, numbers, lists and structures to native Go values and back. Host values that
have no term form travel as opaque addresses kept alive by a Handle Registry.

# Calling the host from the engine

Every session registers four foreign predicates that call into a closed table of named host
functions (see registry.Builtins):

	go_true(Name, Args)        succeeds when Name(Args...) is truthy
	go_bind(Name, Args, Out)   unifies Out with the result of Name(Args...)
	go_getobj(Name, Args, Out) unifies Out with an address for the result
	go_delobj(Address)         releases an address

A host function that fails or panics makes its predicate fail; the engine sees an ordinary
failure and may backtrack.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/logicbridge"
	)

	func main() {
		ctx := context.Background()

		s, err := logicbridge.New()
		if err != nil {
			log.Fatal(err)
		}
		defer s.Close()

		if err := s.AssertProgram(ctx, "parent(a, b). parent(a, c)."); err != nil {
			log.Fatal(err)
		}

		for b, err := range s.QueryAll(ctx, "parent(a, Child)") {
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(b["Child"])
		}
	}

# Lifetime of terms

Term handles point into the engine and are valid until the next top-level call on the same
session. The root handle returned by CallStr is rebound in place by Redo. Decode what you need
with TermToObject before issuing the next query.

A Session serves one call at a time. Use session.Manager to share sessions between goroutines.
*/
package logicbridge
