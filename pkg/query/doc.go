/*
Package query enumerates the solutions of an engine query.

An Iterator is an explicit state machine over the engine's call/retry protocol:

	NotStarted --Start ok--> HasSolution --Advance ok--> HasSolution
	NotStarted --Start fail--> Failed
	HasSolution --Advance fail / Stop--> Exhausted

First and All wrap it for the common cases: the first solution only, and a lazy
sequence of every solution that stops the engine query if the consumer breaks early.
*/
package query
