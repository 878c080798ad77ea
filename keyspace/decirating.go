package keyspace

import (
	"errors"
	"math"
	"strconv"
)

// MaxDecirating is the highest rating floor, 5.0 expressed in tenths.
const MaxDecirating Decirating = 50

// ErrRatingOutOfRange is returned when a rating floor falls outside [0,5].
var ErrRatingOutOfRange = errors.New("keyspace: rating must be between 0 and 5")

// Decirating is a rating expressed in tenths, in the range [0,50].
type Decirating int

// ParseDecirating buckets a rating floor to the nearest tenth.
func ParseDecirating(rating float64) (Decirating, error) {
	if math.IsNaN(rating) || rating < 0 || rating > 5 {
		return 0, ErrRatingOutOfRange
	}
	return Decirating(math.Round(rating * 10)), nil
}

// Float64 returns the rating the bucket stands for.
func (d Decirating) Float64() float64 {
	return float64(d) / 10
}

// String formats the bucket with exactly one decimal.
func (d Decirating) String() string {
	return strconv.Itoa(int(d)/10) + "." + strconv.Itoa(int(d)%10)
}

// Valid reports whether d lies in [0, MaxDecirating].
func (d Decirating) Valid() bool {
	return d >= 0 && d <= MaxDecirating
}
