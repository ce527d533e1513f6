package logicbridge

import (
	"log/slog"

	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/aretw0/logicbridge/pkg/registry"
)

// Option defines a functional option for configuring a Session.
type Option func(*Session)

// WithName sets the session name used in logs, events and stores.
func WithName(name string) Option {
	return func(s *Session) {
		s.name = name
	}
}

// WithLogger sets a custom structured logger for the session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithFunctions sets the function table foreign predicates may call.
// The default table is registry.Builtins().
func WithFunctions(f *registry.Functions) Option {
	return func(s *Session) {
		s.functions = f
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Session) {
		s.hooks = hooks
	}
}

// WithOutput sets the sink for engine output (default: stdout).
func WithOutput(out ports.OutputSink) Option {
	return func(s *Session) {
		s.out = out
	}
}

// WithInput sets the source for engine input (default: empty text).
func WithInput(in ports.InputSource) Option {
	return func(s *Session) {
		s.in = in
	}
}

// WithBufferSize sets the initial size of the text marshalling buffer.
func WithBufferSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.bufSize = n
		}
	}
}

// WithEngine injects an engine instead of creating an ichiban interpreter.
func WithEngine(eng ports.Engine) Option {
	return func(s *Session) {
		s.eng = eng
	}
}
