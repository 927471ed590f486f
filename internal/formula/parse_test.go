package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Eval(t *testing.T) {
	vars := map[string]float64{"a": 15, "b": 4, "total_2": 10}
	lookup := func(name string) float64 { return vars[name] }

	tests := []struct {
		name    string
		formula string
		want    float64
	}{
		{name: "reference", formula: "a * 2", want: 30},
		{name: "precedence", formula: "2 + 3 * 4", want: 14},
		{name: "parentheses", formula: "(2 + 3) * 4", want: 20},
		{name: "left associative", formula: "20 - 5 - 3", want: 12},
		{name: "division", formula: "a / b", want: 3.75},
		{name: "unary minus", formula: "-a + 1", want: -14},
		{name: "double negation", formula: "--a", want: 15},
		{name: "unary plus", formula: "+b", want: 4},
		{name: "decimal literal", formula: ".5 * b", want: 2},
		{name: "digits in names", formula: "total_2 / 100", want: 0.1},
		{name: "missing field", formula: "missing + 1", want: 1},
		{name: "whitespace", formula: "  a*b  ", want: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.formula)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, expr.Eval(lookup), 1e-9)
			assert.Equal(t, tt.formula, expr.String())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, src := range []string{"", "   ", "a *", "1..2", ".", "a $ b", "(a + 1", "a b", ")", "a + * b"} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			require.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestExpr_References(t *testing.T) {
	expr, err := Parse("income_goal / (average_commission + income_goal) * 2")
	require.NoError(t, err)
	assert.Equal(t, []string{"income_goal", "average_commission"}, expr.References())

	refs := expr.References()
	refs[0] = "changed"
	assert.Equal(t, "income_goal", expr.References()[0], "References returns a copy")

	constant, err := Parse("1 + 2")
	require.NoError(t, err)
	assert.Empty(t, constant.References())
}
