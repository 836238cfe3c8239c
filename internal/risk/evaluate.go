package risk

import "github.com/couchcryptid/florascope-service/internal/domain"

// Evaluate scores predicted against actual labels for both classes. Undefined
// ratios (no predicted or no actual members) are reported as 0.
func Evaluate(actual, predicted []int) domain.Evaluation {
	ev := domain.Evaluation{Classes: make(map[int]domain.ClassReport, 2)}
	if len(actual) == 0 {
		for _, c := range []int{0, 1} {
			ev.Classes[c] = domain.ClassReport{}
		}
		return ev
	}

	correct := 0
	for i := range actual {
		if actual[i] == predicted[i] {
			correct++
		}
	}
	ev.Accuracy = float64(correct) / float64(len(actual))

	for _, c := range []int{0, 1} {
		var tp, fp, fn, support int
		for i := range actual {
			switch {
			case actual[i] == c && predicted[i] == c:
				tp++
			case actual[i] != c && predicted[i] == c:
				fp++
			case actual[i] == c && predicted[i] != c:
				fn++
			}
			if actual[i] == c {
				support++
			}
		}
		precision := ratio(tp, tp+fp)
		recall := ratio(tp, tp+fn)
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		ev.Classes[c] = domain.ClassReport{Precision: precision, Recall: recall, F1: f1, Support: support}
	}
	return ev
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
