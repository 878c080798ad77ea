package directory

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Rating bounds accepted for stored ratings and list filters.
const (
	MinRating = 0.0
	MaxRating = 5.0
)

// Record is a named directory entry with a running average rating.
// Name, Category and Region never change after creation.
type Record struct {
	Name        string  `json:"name" msgpack:"name"`
	Category    string  `json:"category" msgpack:"category"`
	Region      string  `json:"region" msgpack:"region"`
	Rating      float64 `json:"rating" msgpack:"rating"`
	RatingCount int     `json:"ratingCount" msgpack:"ratingCount"`
}

// Validate checks the fields required at creation.
func (r Record) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Category, validation.Required),
		validation.Field(&r.Region, validation.Required),
		validation.Field(&r.Rating, validation.Min(MinRating), validation.Max(MaxRating)),
		validation.Field(&r.RatingCount, validation.Min(0)),
	)
}

// RatingUpdate sets the aggregated rating of a record.
// When ExpectedCount is set the store applies it only if the stored count still matches.
type RatingUpdate struct {
	Name          string
	Rating        float64
	Count         int
	ExpectedCount *int
}
