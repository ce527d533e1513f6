package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// Kind is the type tag of an engine term.
type Kind int

const (
	KindUnknown Kind = iota
	KindAtom
	KindString
	KindInteger
	KindFloat
	KindStruct
	KindList
	KindVariable
	KindAddress
)

var kindNames = map[Kind]string{
	KindUnknown:  "unknown",
	KindAtom:     "atom",
	KindString:   "string",
	KindInteger:  "integer",
	KindFloat:    "float",
	KindStruct:   "struct",
	KindList:     "list",
	KindVariable: "variable",
	KindAddress:  "address",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// EmptyListAtom is the engine's reserved name for the empty list.
// Decoding collapses it into an empty native sequence.
const EmptyListAtom = "[]"

// Struct is the native form of a compound term.
// It owns no engine resources: decoding produces it, encoding consumes it.
type Struct struct {
	Functor string
	Args    []any
}

// NewStruct builds a Struct from a functor and its arguments.
func NewStruct(functor string, args ...any) Struct {
	return Struct{Functor: functor, Args: args}
}

// Arity returns the number of arguments.
func (s Struct) Arity() int {
	return len(s.Args)
}

func (s Struct) String() string {
	parts := make([]string, len(s.Args))
	for i, a := range s.Args {
		parts[i] = fmt.Sprint(a)
	}
	return fmt.Sprintf("%s(%s)", s.Functor, strings.Join(parts, ", "))
}

// Variable is what an unbound engine variable decodes to.
// Name is the engine's rendering of the variable and is only meaningful for diagnostics.
type Variable struct {
	Name string
}

func (v Variable) String() string {
	return v.Name
}

// Address is a raw opaque address: the integer key of a value held by the Handle Registry.
type Address struct {
	Key int64
}

// IsBareWord reports whether s is made only of letters, digits and underscores.
// Bare words encode as atoms; every other string encodes as a string term.
func IsBareWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
