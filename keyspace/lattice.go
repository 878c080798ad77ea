package keyspace

import "iter"

// Limits accepted by list queries.
const (
	MinLimit     = 1
	MaxLimit     = 100
	DefaultLimit = 10
)

// keysPerLimit is the region key, the region+category key and one category key per
// rating floor.
const keysPerLimit = 2 + int(MaxDecirating) + 1

// ClampLimit normalizes a requested list size. Non-positive values select DefaultLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Lattice yields every list key under which a record with the given region and category
// could have been included or excluded. The sequence is finite and restartable.
func Lattice(region, category string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for limit := MinLimit; limit <= MaxLimit; limit++ {
			if !yield(Region(region, limit)) {
				return
			}
			if !yield(RegionCategory(region, category, limit)) {
				return
			}
			for d := Decirating(0); d <= MaxDecirating; d++ {
				if !yield(Category(category, d, limit)) {
					return
				}
			}
		}
	}
}

// LatticeSize returns the number of keys Lattice yields.
func LatticeSize() int {
	return (MaxLimit - MinLimit + 1) * keysPerLimit
}
