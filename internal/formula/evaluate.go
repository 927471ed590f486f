package formula

import (
	"math"
	"strconv"

	"github.com/Veraticus/pace/internal/model"
)

// Evaluate substitutes field values into formula and computes the result.
// Missing fields count as 0. A malformed formula, NaN or an infinite result
// all yield 0 so one bad formula cannot break a whole recompute.
func Evaluate(formula string, fields []model.Field) float64 {
	expr, err := Parse(formula)
	if err != nil {
		return 0
	}
	return Finite(expr.Eval(lookupIn(fields)))
}

// Finite maps NaN and ±Inf to 0.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Display formats a computed value with two decimals.
func Display(v float64) string {
	return strconv.FormatFloat(Finite(v), 'f', 2, 64)
}

func lookupIn(fields []model.Field) func(string) float64 {
	return func(name string) float64 {
		v, _ := model.FieldValue(fields, name)
		return v
	}
}
