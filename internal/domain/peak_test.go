package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectPeakMonth(t *testing.T) {
	tests := []struct {
		name     string
		probs    []MonthlyProbability
		expected PeakMonth
	}{
		{
			name:     "single maximum",
			probs:    []MonthlyProbability{{1, 0.2}, {6, 0.9}, {7, 0.4}},
			expected: PeakMonth{Month: 6, Probability: 0.9, Name: "June"},
		},
		{
			name:     "duplicate entries",
			probs:    []MonthlyProbability{{1, 0.2}, {6, 0.9}, {6, 0.9}},
			expected: PeakMonth{Month: 6, Probability: 0.9, Name: "June"},
		},
		{
			name:     "tie picks smallest month",
			probs:    []MonthlyProbability{{9, 0.7}, {4, 0.7}, {2, 0.1}},
			expected: PeakMonth{Month: 4, Probability: 0.7, Name: "April"},
		},
		{
			name:     "all zero",
			probs:    []MonthlyProbability{{12, 0}, {3, 0}},
			expected: PeakMonth{Month: 3, Probability: 0, Name: "March"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectPeakMonth(tt.probs)
			assert.True(t, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSelectPeakMonth_Empty(t *testing.T) {
	_, ok := SelectPeakMonth(nil)
	assert.False(t, ok)
}

func TestSelectPeakMonth_DoesNotReorderInput(t *testing.T) {
	probs := []MonthlyProbability{{9, 0.7}, {4, 0.7}}
	SelectPeakMonth(probs)
	assert.Equal(t, 9, probs[0].Month)
}

func TestMonthName(t *testing.T) {
	assert.Equal(t, "January", MonthName(1))
	assert.Equal(t, "December", MonthName(12))
	assert.Empty(t, MonthName(0))
	assert.Empty(t, MonthName(13))
}
