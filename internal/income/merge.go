package income

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pace/internal/model"
)

// Merge writes the generated series into the matching tracker rows, replacing
// any value already present for the same date. Only the pending and closed
// income rows are touched; a missing row is appended. rows is not modified.
func Merge(rows []model.TrackerRow, sequences []model.IncomeSequence) ([]model.TrackerRow, error) {
	out := make([]model.TrackerRow, len(rows))
	copy(out, rows)

	for _, seq := range sequences {
		if seq.Key != model.IncomeKeyPending && seq.Key != model.IncomeKeyClosed {
			continue
		}

		idx := -1
		for i, row := range out {
			if row.FieldName == seq.Key {
				idx = i
				break
			}
		}
		if idx < 0 {
			out = append(out, model.TrackerRow{FieldName: seq.Key})
			idx = len(out) - 1
		}

		values := make(map[string]float64, len(out[idx].Values)+len(seq.Values))
		for day, v := range out[idx].Values {
			values[day] = v
		}
		for day, amount := range seq.Values {
			d, err := decimal.NewFromString(amount)
			if err != nil {
				return nil, fmt.Errorf("%s on %s: invalid amount %q: %w", seq.Key, day, amount, err)
			}
			values[day] = d.InexactFloat64()
		}
		out[idx].Values = values
	}

	return out, nil
}

// Rows converts generated series into tracker rows carrying only the generated dates.
func Rows(sequences []model.IncomeSequence) ([]model.TrackerRow, error) {
	return Merge(nil, sequences)
}
