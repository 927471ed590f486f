package model

import (
	"fmt"
	"strings"
)

// Condition is the rounding policy applied to a calculated field.
type Condition string

// Rounding policies.
const (
	ConditionNone       Condition = ""
	ConditionFloor      Condition = "FLOOR"
	ConditionCeil       Condition = "CEIL"
	ConditionRound      Condition = "ROUND"
	ConditionRoundFloor Condition = "ROUNDFLOOR"
)

// ParseCondition accepts a policy name in any case; empty and "none" mean no policy.
func ParseCondition(s string) (Condition, error) {
	switch c := Condition(strings.ToUpper(strings.TrimSpace(s))); c {
	case ConditionNone, "NONE":
		return ConditionNone, nil
	case ConditionFloor, ConditionCeil, ConditionRound, ConditionRoundFloor:
		return c, nil
	default:
		return ConditionNone, fmt.Errorf("unknown condition %q", s)
	}
}

// FieldKind separates yearly goal fields from daily tracker metrics.
type FieldKind string

// Field kinds.
const (
	KindGoal    FieldKind = "goal"
	KindTracker FieldKind = "tracker"
)

// Field names the rounding and dashboard logic looks up directly.
const (
	FieldTotalClosedTransactions = "total_closed_transactions"
	FieldListingClosedPercentage = "listing_closed_percentage"
)

// Field is a named numeric value. When Calculation is set the value is
// derived from other fields and never edited directly.
type Field struct {
	FieldName   string    `json:"field_name"`
	Label       string    `json:"label"`
	Kind        FieldKind `json:"kind"`
	Calculation string    `json:"calculation,omitempty"`
	Condition   Condition `json:"condition,omitempty"`
	ID          int64     `json:"id"`
	Position    int       `json:"position"`
	Value       float64   `json:"value"`
	IsEditable  bool      `json:"is_editable"`
	IsInteger   bool      `json:"is_integer"`
}

// IsCalculated reports whether the field's value is derived from a formula.
func (f Field) IsCalculated() bool {
	return strings.TrimSpace(f.Calculation) != ""
}

// FieldValue returns the value of the named field and whether it exists.
func FieldValue(fields []Field, name string) (float64, bool) {
	for _, f := range fields {
		if f.FieldName == name {
			return f.Value, true
		}
	}
	return 0, false
}

// TrackerRow holds one metric's values keyed by YYYY-MM-DD.
type TrackerRow struct {
	Values    map[string]float64 `json:"values"`
	FieldName string             `json:"field_name"`
}
