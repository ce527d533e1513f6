package ports

import "io"

// InputSource is the pull side of stream redirection: read one character,
// push the last one back.
type InputSource interface {
	io.RuneScanner
}

// OutputSink is the push side of stream redirection: one character or a whole string.
type OutputSink interface {
	WriteRune(r rune) (int, error)
	WriteString(s string) (int, error)
}
