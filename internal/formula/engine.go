package formula

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Veraticus/pace/internal/model"
)

// Engine errors.
var (
	ErrUnknownField    = errors.New("unknown field")
	ErrCalculatedField = errors.New("calculated fields cannot be edited")
	ErrInvalidNumber   = errors.New("invalid number")
)

// Engine recomputes calculated fields in dependency order. It is built once
// from the field definitions and can be applied to any slice of fields with
// the same names.
type Engine struct {
	exprs      map[string]*Expr
	invalid    map[string]error
	order      []string
	unresolved []string
}

// NewEngine plans the evaluation order of the calculated fields in defs.
// A calculated field is evaluated after every calculated field it references.
// Fields caught in (or downstream of) a reference cycle cannot be ordered;
// they are evaluated last, in declaration order, and reported by Unresolved.
func NewEngine(defs []model.Field) *Engine {
	e := &Engine{
		exprs:   make(map[string]*Expr),
		invalid: make(map[string]error),
	}

	var calculated []string
	for _, f := range defs {
		if !f.IsCalculated() {
			continue
		}
		if _, dup := e.exprs[f.FieldName]; dup {
			continue
		}
		if _, dup := e.invalid[f.FieldName]; dup {
			continue
		}
		calculated = append(calculated, f.FieldName)
		expr, err := Parse(f.Calculation)
		if err != nil {
			e.invalid[f.FieldName] = err
			continue
		}
		e.exprs[f.FieldName] = expr
	}

	// Edges only matter between calculated fields; plain inputs are always ready.
	deps := make(map[string][]string, len(calculated))
	for _, name := range calculated {
		expr, ok := e.exprs[name]
		if !ok {
			continue
		}
		for _, ref := range expr.References() {
			if _, isCalc := e.exprs[ref]; isCalc || e.invalid[ref] != nil {
				deps[name] = append(deps[name], ref)
			}
		}
	}

	done := make(map[string]bool, len(calculated))
	for progress := true; progress; {
		progress = false
		for _, name := range calculated {
			if done[name] || !ready(deps[name], done) {
				continue
			}
			done[name] = true
			e.order = append(e.order, name)
			progress = true
			break
		}
	}

	for _, name := range calculated {
		if !done[name] {
			e.unresolved = append(e.unresolved, name)
			e.order = append(e.order, name)
		}
	}

	return e
}

func ready(deps []string, done map[string]bool) bool {
	for _, d := range deps {
		if !done[d] {
			return false
		}
	}
	return true
}

// Order returns the calculated field names in evaluation order.
func (e *Engine) Order() []string {
	return append([]string(nil), e.order...)
}

// Unresolved returns calculated fields that sit on or behind a reference cycle.
func (e *Engine) Unresolved() []string {
	return append([]string(nil), e.unresolved...)
}

// Invalid returns the parse error of each calculated field whose formula is malformed.
func (e *Engine) Invalid() map[string]error {
	out := make(map[string]error, len(e.invalid))
	for k, v := range e.invalid {
		out[k] = v
	}
	return out
}

// Recompute returns a copy of fields with every calculated value re-evaluated
// against the current values and rounded by the field's condition.
func (e *Engine) Recompute(fields []model.Field) []model.Field {
	out := make([]model.Field, len(fields))
	copy(out, fields)

	index := make(map[string]int, len(out))
	for i := len(out) - 1; i >= 0; i-- {
		index[out[i].FieldName] = i
	}
	lookup := func(name string) float64 {
		if i, ok := index[name]; ok {
			return out[i].Value
		}
		return 0
	}

	for _, name := range e.order {
		i, ok := index[name]
		if !ok {
			continue
		}
		var v float64
		if expr, ok := e.exprs[name]; ok {
			v = Finite(expr.Eval(lookup))
		}
		out[i].Value = ApplyCondition(out[i].Condition, v, out)
	}

	return out
}

// Edit parses raw into the named field and recomputes every calculated field.
// Integer fields have decimal points stripped before parsing; thousands
// separators are ignored and blank input means 0.
func (e *Engine) Edit(fields []model.Field, name, raw string) ([]model.Field, error) {
	idx := -1
	for i, f := range fields {
		if f.FieldName == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if fields[idx].IsCalculated() {
		return nil, fmt.Errorf("%w: %s", ErrCalculatedField, name)
	}

	v, err := ParseInput(raw, fields[idx].IsInteger)
	if err != nil {
		return nil, err
	}

	updated := make([]model.Field, len(fields))
	copy(updated, fields)
	updated[idx].Value = v
	return e.Recompute(updated), nil
}

// ParseInput converts user input into a field value.
func ParseInput(raw string, integer bool) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if integer {
		s = strings.ReplaceAll(s, ".", "")
	}
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	return v, nil
}
