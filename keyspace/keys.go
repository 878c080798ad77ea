package keyspace

import (
	"net/url"
	"strconv"
	"strings"
)

// Separator defines the delimiter used between cache key segments.
const Separator = "::"

const (
	pointPrefix    = "record"
	regionPrefix   = "region"
	categoryPrefix = "category"
	limitLabel     = "limit"
	minRatingLabel = "minRating"
)

// Point returns the cache key for a single record.
func Point(name string) string {
	return join(pointPrefix, escape(name))
}

// Region returns the cache key for a region listing.
func Region(region string, limit int) string {
	return join(regionPrefix, escape(region), limitLabel, strconv.Itoa(limit))
}

// RegionCategory returns the cache key for a region listing narrowed to one category.
// It extends the region key with a category segment.
func RegionCategory(region, category string, limit int) string {
	return join(Region(region, limit), categoryPrefix, escape(category))
}

// Category returns the cache key for a category listing with a rating floor.
func Category(category string, minRating Decirating, limit int) string {
	return join(categoryPrefix, escape(category), minRatingLabel, minRating.String(), limitLabel, strconv.Itoa(limit))
}

func join(parts ...string) string {
	return strings.Join(parts, Separator)
}

// escape keeps user values from producing a separator or whitespace inside a key.
func escape(value string) string {
	return url.QueryEscape(value)
}
