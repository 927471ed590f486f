package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name       string
		wantSuffix string
		percent    float64
		width      int
		wantFilled int
	}{
		{name: "empty", percent: 0, width: 10, wantFilled: 0, wantSuffix: "  0.0%"},
		{name: "half", percent: 50, width: 10, wantFilled: 5, wantSuffix: " 50.0%"},
		{name: "complete", percent: 100, width: 4, wantFilled: 4, wantSuffix: "100.0%"},
		{name: "clamped high", percent: 250, width: 4, wantFilled: 4, wantSuffix: "100.0%"},
		{name: "clamped low", percent: -3, width: 4, wantFilled: 0, wantSuffix: "  0.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProgressBar(tt.percent, tt.width)
			assert.Equal(t, tt.wantFilled, strings.Count(got, "█"))
			assert.Equal(t, tt.width-tt.wantFilled, strings.Count(got, "░"))
			assert.True(t, strings.HasSuffix(got, tt.wantSuffix), "got %q", got)
		})
	}

	assert.Empty(t, ProgressBar(50, 0))
}

func TestFormatHelpers(t *testing.T) {
	assert.Contains(t, FormatSuccess("saved"), "saved")
	assert.Contains(t, FormatError("failed"), ErrorIcon)
	assert.Contains(t, FormatTitle(CalendarIcon, "Schedule 2025"), "Schedule 2025")
	assert.Contains(t, RenderBox("Title", "body"), "body")
}
