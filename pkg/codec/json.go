package codec

import (
	"fmt"

	"github.com/aretw0/logicbridge/pkg/domain"
)

// JSON maps a decoded value onto JSON-friendly types.
// Structs become {"functor", "args"} and unbound variables {"var"}.
func JSON(v any) any {
	switch x := v.(type) {
	case domain.Struct:
		args := make([]any, len(x.Args))
		for i, a := range x.Args {
			args[i] = JSON(a)
		}
		return map[string]any{"functor": x.Functor, "args": args}
	case domain.Variable:
		return map[string]any{"var": x.Name}
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = JSON(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = JSON(item)
		}
		return out
	case nil, string, bool, int, int64, float64:
		return x
	}
	return fmt.Sprint(v)
}
