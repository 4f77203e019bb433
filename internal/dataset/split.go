package dataset

import (
	"math/rand"
)

const (
	// MaxSamplesPerClass caps the number of flows kept for one class.
	MaxSamplesPerClass = 600
	// MinSplitSize is the class size up to which train, val and test all
	// receive every flow of the class.
	MinSplitSize = 10

	splitSeed = 42

	testPercent    = 20 // of the class, held out from train
	holdoutPercent = 50 // of the held out part, used for test
)

// Split samples a class down to MaxSamplesPerClass and splits it 80/10/10 into
// train, val and test. Classes of MinSplitSize flows or fewer are returned
// unchanged as all three sets. The result depends only on the input order.
func Split[T any](items []T) (train, val, test []T) {
	if len(items) <= MinSplitSize {
		return items, items, items
	}
	data := items
	if len(data) > MaxSamplesPerClass {
		data = Sample(data, MaxSamplesPerClass, splitSeed)
	}
	train, temp := TrainTestSplit(data, testPercent, splitSeed)
	val, test = TrainTestSplit(temp, holdoutPercent, splitSeed)
	return train, val, test
}

// Sample draws k items without replacement.
func Sample[T any](items []T, k int, seed int64) []T {
	if k >= len(items) {
		k = len(items)
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(items))
	out := make([]T, k)
	for i := 0; i < k; i++ {
		out[i] = items[perm[i]]
	}
	return out
}

// TrainTestSplit shuffles items and holds out ceil(n*testPct/100) of them.
func TrainTestSplit[T any](items []T, testPct int, seed int64) (train, test []T) {
	n := len(items)
	nTest := (n*testPct + 99) / 100
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	test = make([]T, 0, nTest)
	for _, i := range perm[:nTest] {
		test = append(test, items[i])
	}
	train = make([]T, 0, n-nTest)
	for _, i := range perm[nTest:] {
		train = append(train, items[i])
	}
	return train, test
}
