package registry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
)

var errDivisionByZero = errors.New("division by zero")

func registerMath(f *Functions) {
	f.Register("sin", unary("sin", math.Sin))
	f.Register("cos", unary("cos", math.Cos))
	f.Register("tan", unary("tan", math.Tan))
	f.Register("asin", unary("asin", math.Asin))
	f.Register("acos", unary("acos", math.Acos))
	f.Register("atan", unary("atan", math.Atan))
	f.Register("sqrt", unary("sqrt", math.Sqrt))
	f.Register("exp", unary("exp", math.Exp))
	f.Register("log10", unary("log10", math.Log10))
	f.Register("fabs", unary("fabs", math.Abs))
	f.Register("degrees", unary("degrees", func(x float64) float64 { return x * 180 / math.Pi }))
	f.Register("radians", unary("radians", func(x float64) float64 { return x * math.Pi / 180 }))
	f.Register("atan2", binary("atan2", math.Atan2))
	f.Register("pow", binary("pow", math.Pow))
	f.Register("hypot", binary("hypot", math.Hypot))
	f.Register("floor", rounding("floor", math.Floor))
	f.Register("ceil", rounding("ceil", math.Ceil))

	f.Register("log", func(_ context.Context, args []any) (any, error) {
		if err := arity("log", args, 1, 2); err != nil {
			return nil, err
		}
		x, err := number("log", args[0])
		if err != nil {
			return nil, err
		}
		if len(args) == 1 {
			return math.Log(x), nil
		}
		base, err := number("log", args[1])
		if err != nil {
			return nil, err
		}
		return math.Log(x) / math.Log(base), nil
	})
}

// rounding returns an integer, as floor and ceil do on the host.
func rounding(name string, fn func(float64) float64) Function {
	return func(_ context.Context, args []any) (any, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		if i, ok := toInt(args[0]); ok {
			return i, nil
		}
		x, err := number(name, args[0])
		if err != nil {
			return nil, err
		}
		return int64(fn(x)), nil
	}
}

// arith applies ints when both operands are integers and floats otherwise.
func arith(name string, ints func(a, b int64) (int64, error), floats func(a, b float64) (float64, error)) Function {
	return func(_ context.Context, args []any) (any, error) {
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		a, aok := toInt(args[0])
		b, bok := toInt(args[1])
		if aok && bok && ints != nil {
			return ints(a, b)
		}
		x, err := number(name, args[0])
		if err != nil {
			return nil, err
		}
		y, err := number(name, args[1])
		if err != nil {
			return nil, err
		}
		return floats(x, y)
	}
}

var add = arith("add",
	func(a, b int64) (int64, error) { return a + b, nil },
	func(a, b float64) (float64, error) { return a + b, nil })

func registerOperators(f *Functions) {
	f.Register("add", add)
	f.Register("sub", arith("sub",
		func(a, b int64) (int64, error) { return a - b, nil },
		func(a, b float64) (float64, error) { return a - b, nil }))
	f.Register("mul", arith("mul",
		func(a, b int64) (int64, error) { return a * b, nil },
		func(a, b float64) (float64, error) { return a * b, nil }))
	f.Register("truediv", arith("truediv", nil,
		func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, errDivisionByZero
			}
			return a / b, nil
		}))
	f.Register("floordiv", arith("floordiv",
		func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errDivisionByZero
			}
			q := a / b
			if (a%b != 0) && ((a < 0) != (b < 0)) {
				q--
			}
			return q, nil
		},
		func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, errDivisionByZero
			}
			return math.Floor(a / b), nil
		}))
	f.Register("mod", arith("mod",
		func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errDivisionByZero
			}
			m := a % b
			if m != 0 && ((m < 0) != (b < 0)) {
				m += b
			}
			return m, nil
		},
		func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, errDivisionByZero
			}
			m := math.Mod(a, b)
			if m != 0 && ((m < 0) != (b < 0)) {
				m += b
			}
			return m, nil
		}))

	f.Register("neg", signed("neg", func(i int64) int64 { return -i }, func(x float64) float64 { return -x }))
	f.Register("pos", signed("pos", func(i int64) int64 { return i }, func(x float64) float64 { return x }))
	f.Register("abs", signed("abs",
		func(i int64) int64 {
			if i < 0 {
				return -i
			}
			return i
		}, math.Abs))

	f.Register("eq", equality("eq", true))
	f.Register("ne", equality("ne", false))
	f.Register("lt", compare("lt", func(c int) bool { return c < 0 }))
	f.Register("le", compare("le", func(c int) bool { return c <= 0 }))
	f.Register("gt", compare("gt", func(c int) bool { return c > 0 }))
	f.Register("ge", compare("ge", func(c int) bool { return c >= 0 }))

	f.Register("truth", func(_ context.Context, args []any) (any, error) {
		if err := arity("truth", args, 1, 1); err != nil {
			return nil, err
		}
		return Truthy(args[0]), nil
	})
	f.Register("not_", func(_ context.Context, args []any) (any, error) {
		if err := arity("not_", args, 1, 1); err != nil {
			return nil, err
		}
		return !Truthy(args[0]), nil
	})

	f.Register("and_", bitwise("and_", func(a, b int64) int64 { return a & b }))
	f.Register("or_", bitwise("or_", func(a, b int64) int64 { return a | b }))
	f.Register("xor", bitwise("xor", func(a, b int64) int64 { return a ^ b }))
}

func signed(name string, ints func(int64) int64, floats func(float64) float64) Function {
	return func(_ context.Context, args []any) (any, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		if i, ok := toInt(args[0]); ok {
			return ints(i), nil
		}
		x, err := number(name, args[0])
		if err != nil {
			return nil, err
		}
		return floats(x), nil
	}
}

func bitwise(name string, fn func(a, b int64) int64) Function {
	return func(_ context.Context, args []any) (any, error) {
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		a, err := integer(name, args[0])
		if err != nil {
			return nil, err
		}
		b, err := integer(name, args[1])
		if err != nil {
			return nil, err
		}
		return fn(a, b), nil
	}
}

func compare(name string, ok func(int) bool) Function {
	return func(_ context.Context, args []any) (any, error) {
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		c, err := order(args[0], args[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return ok(c), nil
	}
}

// equality compares numbers by value and anything else structurally.
func equality(name string, want bool) Function {
	return func(_ context.Context, args []any) (any, error) {
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		x, xok := toFloat(args[0])
		y, yok := toFloat(args[1])
		if xok && yok {
			return (x == y) == want, nil
		}
		return reflect.DeepEqual(args[0], args[1]) == want, nil
	}
}

// order compares two numbers or two strings.
func order(a, b any) (int, error) {
	if x, ok := toFloat(a); ok {
		y, ok := toFloat(b)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	}
	if x, ok := a.(string); ok {
		y, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot order %T", a)
}

func registerRandom(f *Functions, rng *rand.Rand) {
	f.Register("random", func(_ context.Context, args []any) (any, error) {
		if err := arity("random", args, 0, 0); err != nil {
			return nil, err
		}
		return rng.Float64(), nil
	})
	f.Register("uniform", func(_ context.Context, args []any) (any, error) {
		if err := arity("uniform", args, 2, 2); err != nil {
			return nil, err
		}
		a, err := number("uniform", args[0])
		if err != nil {
			return nil, err
		}
		b, err := number("uniform", args[1])
		if err != nil {
			return nil, err
		}
		return a + (b-a)*rng.Float64(), nil
	})
	f.Register("randint", func(_ context.Context, args []any) (any, error) {
		if err := arity("randint", args, 2, 2); err != nil {
			return nil, err
		}
		a, err := integer("randint", args[0])
		if err != nil {
			return nil, err
		}
		b, err := integer("randint", args[1])
		if err != nil {
			return nil, err
		}
		if b < a {
			return nil, fmt.Errorf("randint: empty range [%d, %d]", a, b)
		}
		return a + rng.Int64N(b-a+1), nil
	})
	f.Register("choice", func(_ context.Context, args []any) (any, error) {
		if err := arity("choice", args, 1, 1); err != nil {
			return nil, err
		}
		items, err := collect("choice", args[0])
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, errors.New("choice: empty sequence")
		}
		return items[rng.IntN(len(items))], nil
	})
}
