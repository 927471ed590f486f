package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		input   string
		want    Condition
		wantErr bool
	}{
		{input: "", want: ConditionNone},
		{input: "none", want: ConditionNone},
		{input: "ceil", want: ConditionCeil},
		{input: " Round ", want: ConditionRound},
		{input: "ROUNDFLOOR", want: ConditionRoundFloor},
		{input: "FLOOR", want: ConditionFloor},
		{input: "TRUNC", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCondition(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestField(t *testing.T) {
	fields := []Field{
		{FieldName: "a", Value: 1},
		{FieldName: "b", Calculation: " a * 2 ", Value: 2},
		{FieldName: "c", Calculation: "   "},
	}

	assert.False(t, fields[0].IsCalculated())
	assert.True(t, fields[1].IsCalculated())
	assert.False(t, fields[2].IsCalculated(), "blank formulas do not count")

	v, ok := FieldValue(fields, "b")
	assert.True(t, ok)
	assert.InDelta(t, 2, v, 1e-9)

	_, ok = FieldValue(fields, "missing")
	assert.False(t, ok)
}
