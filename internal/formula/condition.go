package formula

import (
	"math"

	"github.com/Veraticus/pace/internal/model"
)

// ApplyCondition rounds a computed value according to cond. ROUNDFLOOR floors
// only when the closed-transaction count is odd and the listing close rate is
// exactly 50%, and rounds otherwise. fields supplies those two inputs.
func ApplyCondition(cond model.Condition, v float64, fields []model.Field) float64 {
	switch cond {
	case model.ConditionFloor:
		return math.Floor(v)
	case model.ConditionCeil:
		return math.Ceil(v)
	case model.ConditionRound:
		return roundHalfUp(v)
	case model.ConditionRoundFloor:
		closed, _ := model.FieldValue(fields, model.FieldTotalClosedTransactions)
		pct, _ := model.FieldValue(fields, model.FieldListingClosedPercentage)
		if math.Mod(closed, 2) == 1 && pct == 50 {
			return math.Floor(v)
		}
		return roundHalfUp(v)
	default:
		return v
	}
}

// roundHalfUp rounds halves toward positive infinity (-2.5 becomes -2).
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
