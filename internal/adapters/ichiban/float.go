package ichiban

import (
	"math"
	"strconv"
	"strings"

	"github.com/ichiban/prolog/engine"
)

// NaN and the infinities have no float term; they travel as atoms of their text.
func floatTerm(v float64) engine.Term {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return engine.NewAtom(formatFloat(v))
	}
	return engine.Float(v)
}

func floatValue(f engine.Float) (float64, error) {
	return float64(f), nil
}

func formatFloat(v float64) string {
	return floatText(strconv.FormatFloat(v, 'g', -1, 64))
}

// floatText keeps a decimal point so the text reads back as a float.
func floatText(s string) string {
	if strings.ContainsAny(s, ".eEnN") {
		return s
	}
	return s + ".0"
}
