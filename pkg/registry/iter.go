package registry

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/logicbridge/pkg/domain"
)

// ErrStopIteration is returned by next when an iterator is exhausted.
var ErrStopIteration = domain.ErrStopIteration

// Range is the lazy integer sequence produced by the range function.
type Range struct {
	Start, Stop, Step int64
}

// Len returns the number of values in the range.
func (r *Range) Len() int {
	switch {
	case r.Step > 0 && r.Start < r.Stop:
		return int((r.Stop - r.Start + r.Step - 1) / r.Step)
	case r.Step < 0 && r.Start > r.Stop:
		return int((r.Start - r.Stop - r.Step - 1) / -r.Step)
	}
	return 0
}

// Iter returns an iterator over the range.
func (r *Range) Iter() *Iterator {
	cur := r.Start
	return NewIterator(func() (any, bool) {
		if (r.Step > 0 && cur >= r.Stop) || (r.Step < 0 && cur <= r.Stop) {
			return nil, false
		}
		v := cur
		cur += r.Step
		return v, true
	})
}

// Iterator is a stateful, single-pass cursor over a sequence.
type Iterator struct {
	pull func() (any, bool)
	done bool
}

// NewIterator wraps a pull function. pull returns false once the sequence ends.
func NewIterator(pull func() (any, bool)) *Iterator {
	return &Iterator{pull: pull}
}

// Next returns the next value or ErrStopIteration.
func (it *Iterator) Next() (any, error) {
	if it.done {
		return nil, ErrStopIteration
	}
	v, ok := it.pull()
	if !ok {
		it.done = true
		return nil, ErrStopIteration
	}
	return v, nil
}

// iterate returns an iterator over any iterable host value.
func iterate(name string, v any) (*Iterator, error) {
	switch x := v.(type) {
	case *Iterator:
		return x, nil
	case *Range:
		return x.Iter(), nil
	case []any:
		i := 0
		return NewIterator(func() (any, bool) {
			if i >= len(x) {
				return nil, false
			}
			i++
			return x[i-1], true
		}), nil
	case string:
		runes := []rune(x)
		i := 0
		return NewIterator(func() (any, bool) {
			if i >= len(runes) {
				return nil, false
			}
			i++
			return string(runes[i-1]), true
		}), nil
	}
	return nil, fmt.Errorf("%s: %T is not iterable", name, v)
}

// collect drains an iterable into a slice.
func collect(name string, v any) ([]any, error) {
	if items, ok := v.([]any); ok {
		return items, nil
	}
	it, err := iterate(name, v)
	if err != nil {
		return nil, err
	}
	var out []any
	for {
		item, err := it.Next()
		if err == ErrStopIteration {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
}

// operands treats a single argument as an iterable and several as the values themselves.
func operands(name string, args []any) ([]any, error) {
	if len(args) == 1 {
		return collect(name, args[0])
	}
	return args, nil
}

func registerIteration(f *Functions) {
	f.Register("range", func(_ context.Context, args []any) (any, error) {
		if err := arity("range", args, 1, 3); err != nil {
			return nil, err
		}
		ints := make([]int64, len(args))
		for i, a := range args {
			n, err := integer("range", a)
			if err != nil {
				return nil, err
			}
			ints[i] = n
		}
		r := &Range{Step: 1}
		switch len(ints) {
		case 1:
			r.Stop = ints[0]
		case 2:
			r.Start, r.Stop = ints[0], ints[1]
		case 3:
			r.Start, r.Stop, r.Step = ints[0], ints[1], ints[2]
		}
		if r.Step == 0 {
			return nil, fmt.Errorf("range: step must not be zero")
		}
		return r, nil
	})

	f.Register("iter", func(_ context.Context, args []any) (any, error) {
		if err := arity("iter", args, 1, 1); err != nil {
			return nil, err
		}
		return iterate("iter", args[0])
	})

	f.Register("next", func(_ context.Context, args []any) (any, error) {
		if err := arity("next", args, 1, 2); err != nil {
			return nil, err
		}
		it, ok := args[0].(*Iterator)
		if !ok {
			return nil, fmt.Errorf("next: %T is not an iterator", args[0])
		}
		v, err := it.Next()
		if err == ErrStopIteration && len(args) == 2 {
			return args[1], nil
		}
		return v, err
	})

	f.Register("len", func(_ context.Context, args []any) (any, error) {
		if err := arity("len", args, 1, 1); err != nil {
			return nil, err
		}
		switch x := args[0].(type) {
		case string:
			return int64(len([]rune(x))), nil
		case *Range:
			return int64(x.Len()), nil
		case []any:
			return int64(len(x)), nil
		}
		return nil, fmt.Errorf("len: %T has no length", args[0])
	})

	f.Register("list", func(_ context.Context, args []any) (any, error) {
		if err := arity("list", args, 1, 1); err != nil {
			return nil, err
		}
		items, err := collect("list", args[0])
		if err != nil {
			return nil, err
		}
		return append([]any{}, items...), nil
	})

	f.Register("sum", func(_ context.Context, args []any) (any, error) {
		if err := arity("sum", args, 1, 2); err != nil {
			return nil, err
		}
		items, err := collect("sum", args[0])
		if err != nil {
			return nil, err
		}
		var start any = int64(0)
		if len(args) == 2 {
			start = args[1]
		}
		return fold("sum", start, items)
	})

	f.Register("min", extreme("min", func(c int) bool { return c < 0 }))
	f.Register("max", extreme("max", func(c int) bool { return c > 0 }))

	f.Register("sorted", func(_ context.Context, args []any) (any, error) {
		if err := arity("sorted", args, 1, 1); err != nil {
			return nil, err
		}
		items, err := collect("sorted", args[0])
		if err != nil {
			return nil, err
		}
		out := append([]any{}, items...)
		var cmpErr error
		sort.SliceStable(out, func(i, j int) bool {
			c, err := order(out[i], out[j])
			if err != nil && cmpErr == nil {
				cmpErr = err
			}
			return c < 0
		})
		if cmpErr != nil {
			return nil, fmt.Errorf("sorted: %w", cmpErr)
		}
		return out, nil
	})

	f.Register("reversed", func(_ context.Context, args []any) (any, error) {
		if err := arity("reversed", args, 1, 1); err != nil {
			return nil, err
		}
		items, err := collect("reversed", args[0])
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, v := range items {
			out[len(items)-1-i] = v
		}
		return out, nil
	})

	f.Register("str", func(_ context.Context, args []any) (any, error) {
		if err := arity("str", args, 1, 1); err != nil {
			return nil, err
		}
		return Format(args[0]), nil
	})

	f.Register("int", func(_ context.Context, args []any) (any, error) {
		if err := arity("int", args, 1, 1); err != nil {
			return nil, err
		}
		switch x := args[0].(type) {
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("int: %w", err)
			}
			return n, nil
		case float64:
			return int64(x), nil
		case float32:
			return int64(x), nil
		}
		return integer("int", args[0])
	})

	f.Register("float", func(_ context.Context, args []any) (any, error) {
		if err := arity("float", args, 1, 1); err != nil {
			return nil, err
		}
		if s, ok := args[0].(string); ok {
			x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("float: %w", err)
			}
			return x, nil
		}
		return number("float", args[0])
	})
}

func fold(name string, acc any, items []any) (any, error) {
	for _, item := range items {
		v, err := add(context.Background(), []any{acc, item})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		acc = v
	}
	return acc, nil
}

func extreme(name string, better func(int) bool) Function {
	return func(_ context.Context, args []any) (any, error) {
		if err := arity(name, args, 1, -1); err != nil {
			return nil, err
		}
		items, err := operands(name, args)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("%s: empty sequence", name)
		}
		best := items[0]
		for _, item := range items[1:] {
			c, err := order(item, best)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if better(c) {
				best = item
			}
		}
		return best, nil
	}
}

// Format renders a native value the way str does.
// Whole floats keep a trailing ".0" so they read back as floats.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = Format(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Range:
		return fmt.Sprintf("range(%d, %d, %d)", x.Start, x.Stop, x.Step)
	}
	if i, ok := toInt(v); ok {
		return strconv.FormatInt(i, 10)
	}
	return fmt.Sprint(v)
}

func formatFloat(x float64) string {
	s := strconv.FormatFloat(x, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
