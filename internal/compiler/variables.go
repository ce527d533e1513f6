package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Variables returns the named variables of a query, in order of first appearance.
// Variables starting with an underscore are skipped, as is anything inside quotes or comments.
func Variables(query string) []string {
	var (
		names []string
		seen  = make(map[string]bool)
	)
	for i := 0; i < len(query); {
		r, size := utf8.DecodeRuneInString(query[i:])
		switch {
		case r == '\'' || r == '"' || r == '`':
			i = skipQuoted(query, i+size, byte(r))
		case r == '%':
			i = skipLine(query, i)
		case r == '/' && strings.HasPrefix(query[i:], "/*"):
			i = skipBlock(query, i+2)
		case r == '0' && strings.HasPrefix(query[i:], "0'"):
			// Character code literal: 0'c.
			i += 2
			if i < len(query) {
				if query[i] == '\\' {
					i++
				}
				_, n := utf8.DecodeRuneInString(query[i:])
				i += n
			}
		case isWordRune(r):
			end := i + wordLen(query[i:])
			word := query[i:end]
			if unicode.IsUpper(r) && !seen[word] {
				seen[word] = true
				names = append(names, word)
			}
			i = end
		default:
			i += size
		}
	}
	return names
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wordLen(s string) int {
	n := 0
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		if !isWordRune(r) {
			break
		}
		n += size
	}
	return n
}

// skipQuoted returns the index just past the closing quote.
// A doubled quote or a backslash escape does not close the text.
func skipQuoted(s string, i int, quote byte) int {
	for i < len(s) {
		switch s[i] {
		case '\\':
			i += 2
			continue
		case quote:
			if i+1 < len(s) && s[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(s)
}

func skipLine(s string, i int) int {
	if j := strings.IndexByte(s[i:], '\n'); j >= 0 {
		return i + j + 1
	}
	return len(s)
}

func skipBlock(s string, i int) int {
	if j := strings.Index(s[i:], "*/"); j >= 0 {
		return i + j + 2
	}
	return len(s)
}
