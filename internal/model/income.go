package model

// Income series keys. They double as the tracker field names the series merge into.
const (
	IncomeKeyPending = "current_pending_income"
	IncomeKeyClosed  = "closed_income"
)

// IncomeSequence is one day-indexed income series; amounts are decimal strings.
type IncomeSequence struct {
	Values map[string]string `json:"values"`
	Key    string            `json:"key"`
}
