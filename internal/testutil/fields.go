package testutil

import (
	"github.com/Veraticus/pace/internal/model"
)

// Fields is an ordered set of field definitions.
type Fields []model.Field

// FieldBuilder assembles field definitions with increasing positions.
type FieldBuilder struct {
	fields Fields
}

// NewFieldBuilder returns an empty builder.
func NewFieldBuilder() *FieldBuilder {
	return &FieldBuilder{}
}

func (b *FieldBuilder) add(f model.Field) *FieldBuilder {
	f.Position = len(b.fields) + 1
	if f.Label == "" {
		f.Label = f.FieldName
	}
	b.fields = append(b.fields, f)
	return b
}

// WithGoal adds an editable goal input.
func (b *FieldBuilder) WithGoal(name string) *FieldBuilder {
	return b.add(model.Field{FieldName: name, Kind: model.KindGoal, IsEditable: true})
}

// WithIntegerGoal adds an editable whole-number goal input.
func (b *FieldBuilder) WithIntegerGoal(name string) *FieldBuilder {
	return b.add(model.Field{FieldName: name, Kind: model.KindGoal, IsEditable: true, IsInteger: true})
}

// WithCalculated adds a derived goal field.
func (b *FieldBuilder) WithCalculated(name, calculation string, cond model.Condition) *FieldBuilder {
	return b.add(model.Field{
		FieldName:   name,
		Kind:        model.KindGoal,
		Calculation: calculation,
		Condition:   cond,
	})
}

// WithTracker adds an editable daily tracker metric.
func (b *FieldBuilder) WithTracker(name string, integer bool) *FieldBuilder {
	return b.add(model.Field{FieldName: name, Kind: model.KindTracker, IsEditable: true, IsInteger: integer})
}

// WithSalesSheet adds a small realistic goal sheet: an income target, the
// average commission, the deals needed to hit the target and how many of
// those are listings, plus the matching daily tracker metrics.
func (b *FieldBuilder) WithSalesSheet() *FieldBuilder {
	return b.
		WithGoal("income_goal").
		WithGoal("average_commission").
		WithIntegerGoal(model.FieldListingClosedPercentage).
		WithCalculated(model.FieldTotalClosedTransactions, "income_goal / average_commission", model.ConditionCeil).
		WithCalculated("listings_closed", "total_closed_transactions * listing_closed_percentage / 100", model.ConditionRoundFloor).
		WithTracker("calls", true).
		WithTracker("listings_closed", true)
}

// Build returns a copy of the assembled definitions.
func (b *FieldBuilder) Build() Fields {
	return append(Fields(nil), b.fields...)
}
