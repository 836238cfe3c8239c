package domain

import "sort"

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the English name of month m, or "" outside [1,12].
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthNames[m-1]
}

// SelectPeakMonth returns the month with the highest probability. Ties go to
// the smallest month. It reports false for empty input.
func SelectPeakMonth(probs []MonthlyProbability) (PeakMonth, bool) {
	if len(probs) == 0 {
		return PeakMonth{}, false
	}
	sorted := make([]MonthlyProbability, len(probs))
	copy(sorted, probs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Month < sorted[j].Month })

	best := sorted[0]
	for _, p := range sorted[1:] {
		if p.Probability > best.Probability {
			best = p
		}
	}
	return PeakMonth{Month: best.Month, Probability: best.Probability, Name: MonthName(best.Month)}, true
}
