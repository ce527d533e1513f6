package ichiban

import (
	"io"
	"unicode/utf8"

	"github.com/aretw0/logicbridge/pkg/ports"
)

// inputBridge lets the interpreter read from whichever source is installed.
type inputBridge struct {
	src ports.InputSource
}

func (b *inputBridge) Read(p []byte) (int, error) {
	if b.src == nil {
		return 0, io.EOF
	}
	n := 0
	for n+utf8.UTFMax <= len(p) || (n == 0 && len(p) > 0) {
		r, _, err := b.src.ReadRune()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}
		if utf8.RuneLen(r) > len(p)-n {
			_ = b.src.UnreadRune()
			break
		}
		n += utf8.EncodeRune(p[n:], r)
		if r == '\n' {
			break
		}
	}
	return n, nil
}

// outputBridge forwards interpreter writes to whichever sink is installed.
type outputBridge struct {
	sink ports.OutputSink
}

func (b *outputBridge) Write(p []byte) (int, error) {
	if b.sink == nil {
		return len(p), nil
	}
	if _, err := b.sink.WriteString(string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}
