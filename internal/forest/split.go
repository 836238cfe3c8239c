package forest

import (
	"fmt"
	"math"
	"sort"

	"github.com/couchcryptid/florascope-service/internal/domain"
)

// Split partitions the indices of y into train and test sets. The test set
// holds ceil(n*testFraction) indices. With stratify set, each class keeps its
// share in both partitions; when that is impossible Split returns a
// *domain.InsufficientDataError so the caller can fall back.
func Split(y []int, testFraction float64, seed uint64, stratify bool) (train, test []int, err error) {
	n := len(y)
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("split: test fraction %v outside (0,1)", testFraction)
	}
	if n < 2 {
		return nil, nil, &domain.InsufficientDataError{Reason: fmt.Sprintf("%d rows cannot be split", n)}
	}
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest >= n {
		nTest = n - 1
	}

	rng := newRand(seed)
	if !stratify {
		perm := rng.Perm(n)
		test = append(test, perm[:nTest]...)
		train = append(train, perm[nTest:]...)
		sort.Ints(test)
		sort.Ints(train)
		return train, test, nil
	}

	byClass := make(map[int][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	if len(classes) < 2 {
		return nil, nil, &domain.InsufficientDataError{Reason: "stratified split needs at least two classes"}
	}
	for _, c := range classes {
		if len(byClass[c]) < 2 {
			return nil, nil, &domain.InsufficientDataError{
				Reason: fmt.Sprintf("class %d has %d member(s), stratified split needs 2", c, len(byClass[c])),
			}
		}
	}
	if nTest < len(classes) || n-nTest < len(classes) {
		return nil, nil, &domain.InsufficientDataError{
			Reason: fmt.Sprintf("test size %d and train size %d must each cover %d classes", nTest, n-nTest, len(classes)),
		}
	}

	alloc := allocate(classes, byClass, n, nTest)
	for _, c := range classes {
		members := byClass[c]
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		test = append(test, members[:alloc[c]]...)
		train = append(train, members[alloc[c]:]...)
	}
	sort.Ints(test)
	sort.Ints(train)
	return train, test, nil
}

// allocate distributes nTest slots across classes proportionally to their
// size. Every class gets at least one test and one train member.
func allocate(classes []int, byClass map[int][]int, n, nTest int) map[int]int {
	alloc := make(map[int]int, len(classes))
	type rem struct {
		class int
		frac  float64
	}
	rems := make([]rem, 0, len(classes))
	assigned := 0
	for _, c := range classes {
		exact := float64(nTest) * float64(len(byClass[c])) / float64(n)
		k := int(math.Floor(exact))
		alloc[c] = k
		assigned += k
		rems = append(rems, rem{class: c, frac: exact - float64(k)})
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; assigned < nTest; i = (i + 1) % len(rems) {
		c := rems[i].class
		if alloc[c] < len(byClass[c])-1 {
			alloc[c]++
			assigned++
		}
	}

	// Move slots so no class is absent from either side.
	for _, c := range classes {
		for alloc[c] == 0 {
			donor := largestAlloc(classes, alloc)
			alloc[donor]--
			alloc[c]++
		}
	}
	return alloc
}

func largestAlloc(classes []int, alloc map[int]int) int {
	best := classes[0]
	for _, c := range classes[1:] {
		if alloc[c] > alloc[best] {
			best = c
		}
	}
	return best
}
