package term

import (
	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
)

// DefaultTextLimit bounds Text renderings when no explicit limit is given.
const DefaultTextLimit = 65536

// Handle references a single engine term.
type Handle struct {
	eng ports.Engine
	ref ports.TermRef

	kind    domain.Kind
	hasKind bool

	functor  string
	arity    int
	hasShape bool
}

// New wraps ref. It returns nil for the nil reference.
func New(eng ports.Engine, ref ports.TermRef) *Handle {
	if ref == 0 {
		return nil
	}
	return &Handle{eng: eng, ref: ref}
}

// Ref returns the underlying engine reference.
func (h *Handle) Ref() ports.TermRef {
	return h.ref
}

// Engine returns the engine that owns the term.
func (h *Handle) Engine() ports.Engine {
	return h.eng
}

// Kind returns the type tag of the term.
func (h *Handle) Kind() (domain.Kind, error) {
	if h.hasKind {
		return h.kind, nil
	}
	k, err := h.eng.Kind(h.ref)
	if err != nil {
		return domain.KindUnknown, err
	}
	h.kind, h.hasKind = k, true
	return k, nil
}

// FunctorArity returns the name and arity of a struct or atom.
// Atoms report arity 0. Any other kind is a *domain.TypeMismatchError.
func (h *Handle) FunctorArity() (string, int, error) {
	if h.hasShape {
		return h.functor, h.arity, nil
	}
	k, err := h.Kind()
	if err != nil {
		return "", 0, err
	}
	if k != domain.KindStruct && k != domain.KindAtom {
		return "", 0, &domain.TypeMismatchError{
			Op:   "functor_and_arity",
			Want: []domain.Kind{domain.KindStruct, domain.KindAtom},
			Got:  k,
		}
	}
	name, arity, err := h.eng.FunctorArity(h.ref, nil)
	if err != nil {
		return "", 0, err
	}
	h.functor, h.arity, h.hasShape = string(name), arity, true
	return h.functor, h.arity, nil
}

// Functor returns the functor name, or "" when the term has none.
func (h *Handle) Functor() string {
	name, _, err := h.FunctorArity()
	if err != nil {
		return ""
	}
	return name
}

// Arity returns the arity, or 0 when the term has none.
func (h *Handle) Arity() int {
	_, arity, err := h.FunctorArity()
	if err != nil {
		return 0
	}
	return arity
}

// Arg returns the i-th argument (1-based), or nil when i is out of range.
func (h *Handle) Arg(i int) (*Handle, error) {
	ref, ok, err := h.eng.Arg(h.ref, i)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return New(h.eng, ref), nil
}

// Args returns every argument of a struct in order.
func (h *Handle) Args() ([]*Handle, error) {
	_, arity, err := h.FunctorArity()
	if err != nil {
		return nil, err
	}
	args := make([]*Handle, 0, arity)
	for i := 1; i <= arity; i++ {
		arg, err := h.Arg(i)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

// Head returns the first element of a list, or nil for the empty list.
func (h *Handle) Head() (*Handle, error) {
	ref, ok, err := h.eng.ListHead(h.ref)
	if err != nil || !ok {
		return nil, err
	}
	return New(h.eng, ref), nil
}

// Tail returns the remainder of a list. A nil tail signals the end of the list.
func (h *Handle) Tail() (*Handle, error) {
	ref, ok, err := h.eng.ListTail(h.ref)
	if err != nil || !ok {
		return nil, err
	}
	return New(h.eng, ref), nil
}

// Unify unifies the term with other.
func (h *Handle) Unify(other *Handle) (bool, error) {
	return h.eng.Unify(h.ref, other.ref)
}

// Text renders the term in engine syntax, truncated to limit bytes.
func (h *Handle) Text(limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultTextLimit
	}
	return h.eng.Render(h.ref, limit)
}

func (h *Handle) String() string {
	s, err := h.Text(DefaultTextLimit)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return s
}

func (h *Handle) is(k domain.Kind) bool {
	got, err := h.Kind()
	return err == nil && got == k
}

func (h *Handle) IsAtom() bool    { return h.is(domain.KindAtom) }
func (h *Handle) IsString() bool  { return h.is(domain.KindString) }
func (h *Handle) IsInteger() bool { return h.is(domain.KindInteger) }
func (h *Handle) IsFloat() bool   { return h.is(domain.KindFloat) }
func (h *Handle) IsStruct() bool  { return h.is(domain.KindStruct) }
func (h *Handle) IsList() bool    { return h.is(domain.KindList) }
func (h *Handle) IsVar() bool     { return h.is(domain.KindVariable) }
func (h *Handle) IsAddress() bool { return h.is(domain.KindAddress) }
