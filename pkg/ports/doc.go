/*
Package ports defines the driven ports (interfaces) of the bridge.

These interfaces decouple the marshalling core from the concrete logic engine and from
the storage backends, so the Term Handle, Mediator, Dispatcher and Query Iterator work
against any engine that honors the boundary contract.

# Key Interfaces

  - Engine: The call/retry, term inspection and term construction primitives of one engine instance.
  - CallContext: What a foreign predicate sees of the engine while it runs.
  - InputSource / OutputSink: The pull/push contract for stream redirection.
  - ProgramStore: Persistence of asserted clauses under a program name.
*/
package ports
