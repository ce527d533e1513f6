package streams

import (
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/logicbridge/pkg/ports"
)

// Muter is implemented by sinks that can be silenced.
type Muter interface {
	SetMute(muted bool)
	Muted() bool
}

// Muted runs fn with out silenced, restoring its previous state afterwards.
// Sinks that cannot be muted are left as they are.
func Muted(out ports.OutputSink, fn func() error) error {
	m, ok := out.(Muter)
	if !ok {
		return fn()
	}
	prev := m.Muted()
	m.SetMute(true)
	defer m.SetMute(prev)
	return fn()
}

type mute struct {
	muted bool
}

func (m *mute) SetMute(muted bool) { m.muted = muted }
func (m *mute) Muted() bool        { return m.muted }

// StringInput serves engine reads from a settable string.
type StringInput struct {
	r *strings.Reader
}

var _ ports.InputSource = (*StringInput)(nil)

// NewStringInput creates an input that reads text.
func NewStringInput(text string) *StringInput {
	return &StringInput{r: strings.NewReader(text)}
}

// SetText replaces the remaining input.
func (s *StringInput) SetText(text string) {
	s.r.Reset(text)
}

func (s *StringInput) ReadRune() (rune, int, error) {
	return s.r.ReadRune()
}

func (s *StringInput) UnreadRune() error {
	return s.r.UnreadRune()
}

// ReaderInput serves engine reads from an io.Reader, one rune at a time.
type ReaderInput struct {
	r    io.Reader
	last rune
	size int
	back bool
	buf  [utf8.UTFMax]byte
}

var _ ports.InputSource = (*ReaderInput)(nil)

// NewReaderInput wraps r. A nil reader means stdin.
func NewReaderInput(r io.Reader) *ReaderInput {
	if r == nil {
		r = os.Stdin
	}
	return &ReaderInput{r: r}
}

func (in *ReaderInput) ReadRune() (rune, int, error) {
	if in.back {
		in.back = false
		return in.last, in.size, nil
	}
	n := 0
	for n < utf8.UTFMax {
		if _, err := io.ReadFull(in.r, in.buf[n:n+1]); err != nil {
			if n > 0 && err == io.EOF {
				break
			}
			return 0, 0, err
		}
		n++
		if utf8.FullRune(in.buf[:n]) {
			break
		}
	}
	r, size := utf8.DecodeRune(in.buf[:n])
	in.last, in.size = r, size
	return r, size, nil
}

func (in *ReaderInput) UnreadRune() error {
	if in.size == 0 || in.back {
		return io.ErrNoProgress
	}
	in.back = true
	return nil
}

// StringOutput captures engine output in memory.
type StringOutput struct {
	mute
	sb strings.Builder
}

var _ ports.OutputSink = (*StringOutput)(nil)

// NewStringOutput creates an empty capture.
func NewStringOutput() *StringOutput {
	return &StringOutput{}
}

func (s *StringOutput) WriteRune(r rune) (int, error) {
	if s.muted {
		return utf8.RuneLen(r), nil
	}
	return s.sb.WriteRune(r)
}

func (s *StringOutput) WriteString(str string) (int, error) {
	if s.muted {
		return len(str), nil
	}
	return s.sb.WriteString(str)
}

// Write makes the capture usable as an io.Writer.
func (s *StringOutput) Write(p []byte) (int, error) {
	if s.muted {
		return len(p), nil
	}
	return s.sb.Write(p)
}

// Value returns everything captured so far.
func (s *StringOutput) Value() string {
	return s.sb.String()
}

// Reset drops the captured text.
func (s *StringOutput) Reset() {
	s.sb.Reset()
}

// WriterOutput forwards engine output to an io.Writer.
type WriterOutput struct {
	mute
	w io.Writer
}

var _ ports.OutputSink = (*WriterOutput)(nil)

// NewWriterOutput wraps w. A nil writer means stdout.
func NewWriterOutput(w io.Writer) *WriterOutput {
	if w == nil {
		w = os.Stdout
	}
	return &WriterOutput{w: w}
}

func (o *WriterOutput) WriteRune(r rune) (int, error) {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	if o.muted {
		return n, nil
	}
	return o.w.Write(buf[:n])
}

func (o *WriterOutput) WriteString(s string) (int, error) {
	if o.muted {
		return len(s), nil
	}
	return io.WriteString(o.w, s)
}

func (o *WriterOutput) Write(p []byte) (int, error) {
	if o.muted {
		return len(p), nil
	}
	return o.w.Write(p)
}

// Discard drops all output.
type Discard struct{}

var _ ports.OutputSink = Discard{}

func (Discard) WriteRune(r rune) (int, error)     { return utf8.RuneLen(r), nil }
func (Discard) WriteString(s string) (int, error) { return len(s), nil }
func (Discard) Write(p []byte) (int, error)       { return len(p), nil }
