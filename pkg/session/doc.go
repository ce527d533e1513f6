/*
Package session manages named logic sessions shared between goroutines.

Each name maps to one logicbridge.Session, created on first use. Calls on a name are
serialized by a reference-counted lock, which keeps the one-call-at-a-time rule of a
session when an HTTP server or MCP host drives it concurrently. With a program store
configured, a new session reloads its stored program and Save snapshots it back,
optionally under a distributed lock shared by several replicas.
*/
package session
