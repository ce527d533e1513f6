package ichiban

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/ichiban/prolog/engine"
)

const symbolChars = `+-*/\^<>=~:.?@#&$`

// errLimit stops rendering once the output is long enough.
var errLimit = errors.New("render limit reached")

type renderer struct {
	sb    strings.Builder
	env   *engine.Env
	limit int
}

func (a *Adapter) Render(t ports.TermRef, limit int) (string, error) {
	term, env, err := a.lookup(t)
	if err != nil {
		return "", err
	}
	r := &renderer{env: env, limit: limit}
	if err := r.write(term, 0); err != nil && err != errLimit {
		return "", err
	}
	s := r.sb.String()
	if limit > 0 && len(s) > limit {
		s = s[:limit]
	}
	return s, nil
}

func (r *renderer) str(s string) error {
	r.sb.WriteString(s)
	if r.limit > 0 && r.sb.Len() >= r.limit {
		return errLimit
	}
	return nil
}

func (r *renderer) write(t engine.Term, depth int) error {
	if depth > maxResolveDepth {
		return r.str("...")
	}
	t = resolve(r.env, t)
	switch x := t.(type) {
	case engine.Atom:
		return r.str(quoteAtom(x.String()))
	case engine.Integer:
		return r.str(strconv.FormatInt(int64(x), 10))
	case engine.Float:
		return r.str(formatFloat(float64(x)))
	case engine.Variable:
		return r.str(fmt.Sprintf("_G%d", int64(x)))
	case engine.Compound:
		if isList(x) {
			return r.list(x, depth)
		}
		if err := r.str(quoteAtom(x.Functor().String()) + "("); err != nil {
			return err
		}
		for i := 0; i < x.Arity(); i++ {
			if i > 0 {
				if err := r.str(","); err != nil {
					return err
				}
			}
			if err := r.write(x.Arg(i), depth+1); err != nil {
				return err
			}
		}
		return r.str(")")
	}
	return r.str(fmt.Sprint(t))
}

func (r *renderer) list(c engine.Compound, depth int) error {
	if err := r.str("["); err != nil {
		return err
	}
	for n := 0; ; n++ {
		if n > 0 {
			if err := r.str(","); err != nil {
				return err
			}
		}
		if err := r.write(c.Arg(0), depth+1); err != nil {
			return err
		}
		rest := resolve(r.env, c.Arg(1))
		if rest == atomEmptyList {
			break
		}
		next, ok := rest.(engine.Compound)
		if !ok || !isList(next) || n >= maxResolveDepth {
			if err := r.str("|"); err != nil {
				return err
			}
			if err := r.write(rest, depth+1); err != nil {
				return err
			}
			break
		}
		c = next
	}
	return r.str("]")
}

// quoteAtom writes name the way the reader would read it back.
func quoteAtom(name string) string {
	switch {
	case name == "[]" || name == "!" || name == ";" || name == "{}":
		return name
	case isLetterAtom(name):
		return name
	case name != "" && strings.Trim(name, symbolChars) == "":
		return name
	}
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range name {
		switch r {
		case '\'':
			sb.WriteString(`\'`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

func isLetterAtom(name string) bool {
	for i, r := range name {
		if i == 0 && !unicode.IsLower(r) {
			return false
		}
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return name != ""
}
