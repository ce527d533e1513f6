package codec

import (
	"fmt"
	"math"
	"reflect"

	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/aretw0/logicbridge/pkg/registry"
	"github.com/aretw0/logicbridge/pkg/term"
)

const (
	// DefaultBufferSize is the initial capacity of the text scratch buffer.
	DefaultBufferSize = 4096
	// DefaultMaxListLength bounds the number of cells walked when decoding one list.
	DefaultMaxListLength = 1 << 20
	// DefaultMaxDepth bounds the nesting of structs and lists in either direction.
	DefaultMaxDepth = 10000
)

// Codec is the mediator between engine terms and native values.
// It is bound to one engine and is not safe for concurrent use.
type Codec struct {
	eng     ports.Engine
	handles *registry.Handles

	buf      []byte
	maxList  int
	maxDepth int
}

// Option configures a Codec.
type Option func(*Codec)

// WithBuffer sets the scratch buffer used to read atom and string text.
func WithBuffer(buf []byte) Option {
	return func(c *Codec) {
		c.buf = buf[:0]
	}
}

// WithMaxListLength bounds list decoding. Longer or cyclic lists fail to decode.
func WithMaxListLength(n int) Option {
	return func(c *Codec) {
		if n > 0 {
			c.maxList = n
		}
	}
}

// WithMaxDepth bounds the nesting depth of converted values.
func WithMaxDepth(n int) Option {
	return func(c *Codec) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// New creates a codec that resolves addresses through handles.
func New(eng ports.Engine, handles *registry.Handles, opts ...Option) *Codec {
	c := &Codec{
		eng:      eng,
		handles:  handles,
		maxList:  DefaultMaxListLength,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.buf == nil {
		c.buf = make([]byte, 0, DefaultBufferSize)
	}
	return c
}

// Decode converts a term into its native value.
//
//	list     -> []any (the empty list, an atom, also decodes to []any{})
//	struct   -> domain.Struct
//	variable -> domain.Variable
//	atom     -> string
//	string   -> string
//	integer  -> int64
//	float    -> float64
//	address  -> the value held by the registry, or nil on a miss
func (c *Codec) Decode(h *term.Handle) (any, error) {
	if h == nil {
		return nil, &domain.DecodeError{Kind: domain.KindUnknown, Reason: "nil term"}
	}
	return c.decode(h, 0)
}

// DecodeRef is Decode on a raw engine reference.
func (c *Codec) DecodeRef(ref ports.TermRef) (any, error) {
	return c.Decode(term.New(c.eng, ref))
}

func (c *Codec) decode(h *term.Handle, depth int) (any, error) {
	kind, err := h.Kind()
	if err != nil {
		return nil, &domain.DecodeError{Kind: domain.KindUnknown, Reason: err.Error()}
	}
	if depth > c.maxDepth {
		return nil, &domain.DecodeError{Kind: kind, Reason: fmt.Sprintf("nesting deeper than %d", c.maxDepth)}
	}

	switch kind {
	case domain.KindList:
		return c.decodeList(h, depth)

	case domain.KindStruct:
		name, arity, err := h.FunctorArity()
		if err != nil {
			return nil, &domain.DecodeError{Kind: kind, Reason: err.Error()}
		}
		args := make([]any, arity)
		for i := 1; i <= arity; i++ {
			arg, err := h.Arg(i)
			if err != nil {
				return nil, &domain.DecodeError{Kind: kind, Reason: err.Error()}
			}
			if arg == nil {
				return nil, &domain.DecodeError{Kind: kind, Reason: fmt.Sprintf("%s/%d has no argument %d", name, arity, i)}
			}
			if args[i-1], err = c.decode(arg, depth+1); err != nil {
				return nil, err
			}
		}
		return domain.Struct{Functor: name, Args: args}, nil

	case domain.KindVariable:
		name, err := h.Text(0)
		if err != nil {
			return nil, &domain.DecodeError{Kind: kind, Reason: err.Error()}
		}
		return domain.Variable{Name: name}, nil

	case domain.KindAtom:
		text, err := c.text(h)
		if err != nil {
			return nil, err
		}
		if text == domain.EmptyListAtom {
			return []any{}, nil
		}
		return text, nil

	case domain.KindString:
		return c.text(h)

	case domain.KindInteger:
		v, err := c.eng.DecodeInteger(h.Ref())
		if err != nil {
			return nil, &domain.DecodeError{Kind: kind, Reason: err.Error()}
		}
		return v, nil

	case domain.KindFloat:
		v, err := c.eng.DecodeFloat(h.Ref())
		if err != nil {
			return nil, &domain.DecodeError{Kind: kind, Reason: err.Error()}
		}
		return v, nil

	case domain.KindAddress:
		key, err := c.eng.DecodeAddress(h.Ref())
		if err != nil {
			return nil, &domain.DecodeError{Kind: kind, Reason: err.Error()}
		}
		v, ok := c.handles.Resolve(key)
		if !ok {
			return nil, nil
		}
		return v, nil
	}

	return nil, &domain.DecodeError{Kind: kind, Reason: "unsupported term kind"}
}

func (c *Codec) decodeList(h *term.Handle, depth int) (any, error) {
	out := []any{}
	for cur := h; cur != nil; {
		if len(out) >= c.maxList {
			return nil, &domain.DecodeError{Kind: domain.KindList, Reason: fmt.Sprintf("longer than %d elements", c.maxList)}
		}
		head, err := cur.Head()
		if err != nil {
			return nil, &domain.DecodeError{Kind: domain.KindList, Reason: err.Error()}
		}
		v, err := c.decode(head, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, v)

		if cur, err = cur.Tail(); err != nil {
			return nil, &domain.DecodeError{Kind: domain.KindList, Reason: err.Error()}
		}
		if cur != nil && !cur.IsList() {
			k, _ := cur.Kind()
			return nil, &domain.DecodeError{Kind: domain.KindList, Reason: fmt.Sprintf("improper tail of kind %s", k)}
		}
	}
	return out, nil
}

// text reads atom or string text through the scratch buffer.
// The result is copied out before any further engine call can reuse the buffer.
func (c *Codec) text(h *term.Handle) (string, error) {
	buf, err := c.eng.DecodeText(h.Ref(), c.buf[:0])
	if err != nil {
		k, _ := h.Kind()
		return "", &domain.DecodeError{Kind: k, Reason: err.Error()}
	}
	c.buf = buf
	return string(buf), nil
}

// Encode converts a native value into a new term.
//
// Strings made only of letters, digits and underscores become atoms, other strings become
// string terms. Any slice or array becomes a list. Booleans become the atoms true and false.
// A *term.Handle is passed through unchanged.
func (c *Codec) Encode(v any) (*term.Handle, error) {
	ref, err := c.EncodeRef(v)
	if err != nil {
		return nil, err
	}
	return term.New(c.eng, ref), nil
}

// EncodeRef is Encode returning the raw engine reference.
func (c *Codec) EncodeRef(v any) (ports.TermRef, error) {
	return c.encode(v, 0)
}

// EncodeOpaque retains v in the handle registry and returns an address term for it.
func (c *Codec) EncodeOpaque(v any) *term.Handle {
	return term.New(c.eng, c.eng.EncodeAddress(c.handles.Expose(v)))
}

func (c *Codec) encode(v any, depth int) (ports.TermRef, error) {
	if depth > c.maxDepth {
		return 0, &domain.EncodeError{Value: v, Reason: fmt.Sprintf("nesting deeper than %d", c.maxDepth)}
	}

	switch x := v.(type) {
	case string:
		if domain.IsBareWord(x) {
			return c.eng.EncodeAtom(x), nil
		}
		return c.eng.EncodeString(x), nil
	case bool:
		if x {
			return c.eng.EncodeAtom("true"), nil
		}
		return c.eng.EncodeAtom("false"), nil
	case int64:
		return c.eng.EncodeInteger(x), nil
	case int:
		return c.eng.EncodeInteger(int64(x)), nil
	case float64:
		return c.eng.EncodeFloat(x), nil
	case float32:
		return c.eng.EncodeFloat(float64(x)), nil
	case []any:
		return c.encodeList(len(x), func(i int) any { return x[i] }, depth)
	case domain.Struct:
		return c.encodeStruct(x, depth)
	case *domain.Struct:
		if x == nil {
			break
		}
		return c.encodeStruct(*x, depth)
	case domain.Variable:
		return c.eng.EncodeVariable(), nil
	case domain.Address:
		return c.eng.EncodeAddress(x.Key), nil
	case *term.Handle:
		if x == nil {
			break
		}
		return x.Ref(), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return c.eng.EncodeInteger(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, &domain.EncodeError{Value: v, Reason: "integer overflows int64"}
		}
		return c.eng.EncodeInteger(int64(u)), nil
	case reflect.Int, reflect.Int64:
		return c.eng.EncodeInteger(rv.Int()), nil
	case reflect.Float32, reflect.Float64:
		return c.eng.EncodeFloat(rv.Float()), nil
	case reflect.String:
		return c.encode(rv.String(), depth)
	case reflect.Slice, reflect.Array:
		return c.encodeList(rv.Len(), func(i int) any { return rv.Index(i).Interface() }, depth)
	}

	return 0, &domain.EncodeError{Value: v}
}

// encodeList builds the list back to front by prepending onto the empty list.
func (c *Codec) encodeList(n int, at func(int) any, depth int) (ports.TermRef, error) {
	list := c.eng.MakeList()
	for i := n - 1; i >= 0; i-- {
		elem, err := c.encode(at(i), depth+1)
		if err != nil {
			return 0, err
		}
		if err := c.eng.Prepend(list, elem); err != nil {
			return 0, &domain.EncodeError{Value: at(i), Reason: err.Error()}
		}
	}
	return list, nil
}

func (c *Codec) encodeStruct(s domain.Struct, depth int) (ports.TermRef, error) {
	if s.Arity() == 0 {
		return 0, &domain.EncodeError{Value: s, Reason: "struct needs at least one argument"}
	}
	ref, err := c.eng.MakeStruct(s.Functor, s.Arity())
	if err != nil {
		return 0, &domain.EncodeError{Value: s, Reason: err.Error()}
	}
	for i, arg := range s.Args {
		a, err := c.encode(arg, depth+1)
		if err != nil {
			return 0, err
		}
		ok, err := c.eng.UnifyArg(ref, i+1, a)
		if err != nil {
			return 0, &domain.EncodeError{Value: s, Reason: err.Error()}
		}
		if !ok {
			return 0, &domain.EncodeError{Value: s, Reason: fmt.Sprintf("argument %d of %s did not unify", i+1, s.Functor)}
		}
	}
	return ref, nil
}
