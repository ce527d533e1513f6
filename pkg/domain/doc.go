/*
Package domain contains the value model shared by every layer of the bridge.

It defines the term kinds reported by the engine, the native-side values produced by
decoding (Struct, Variable, Address), the fault taxonomy, and the events emitted for
observability. This package is kept pure and free of engine or I/O dependencies.

# Key Entities

  - Kind: The type tag of a single engine-resident term.
  - Struct: A compound term decoded into a functor and an ordered argument list.
  - Variable: The sentinel an unbound engine variable decodes to.
  - Address: The integer key of a host value retained by the Handle Registry.
  - EngineCallError, DecodeError, EncodeError: Faults that always reach the caller.
*/
package domain
