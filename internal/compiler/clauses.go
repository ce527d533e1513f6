// Package compiler holds the text utilities the session applies to program and query
// source before handing it to the engine.
package compiler

import (
	"strings"
)

// SplitClauses cuts program text into clauses at each terminating '.'.
// A '.' with a digit immediately on both sides is part of a number and does not terminate.
// Clauses are returned trimmed, without their terminator; empty clauses are dropped.
func SplitClauses(program string) []string {
	var clauses []string
	start := 0
	for i := 0; i < len(program); i++ {
		if program[i] != '.' {
			continue
		}
		if i > 0 && i+1 < len(program) && isDigit(program[i-1]) && isDigit(program[i+1]) {
			continue
		}
		clauses = appendClause(clauses, program[start:i])
		start = i + 1
	}
	return appendClause(clauses, program[start:])
}

func appendClause(clauses []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		clauses = append(clauses, s)
	}
	return clauses
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
