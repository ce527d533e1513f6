// Package streams provides the input sources and output sinks a session installs
// on the engine for user I/O.
package streams
