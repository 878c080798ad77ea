// Package keyspace derives deterministic cache keys for record lookups and list queries.
//
// # Overview
//
// Every key is a pure function of the query shape and its filter parameters. Two requests
// with identical filters always address the same cache slot and two requests that differ
// in any filter address disjoint slots. Keys never encode record identity implicitly, so
// invalidation targets are recomputed from record attributes instead of being tracked in a
// reverse index.
//
// # Key Shapes
//
//	Point(name)                            record::<name>
//	Region(region, limit)                  region::<region>::limit::<n>
//	RegionCategory(region, category, n)    region::<region>::limit::<n>::category::<category>
//	Category(category, minRating, limit)   category::<category>::minRating::<d.d>::limit::<n>
//
// User supplied segments are query-escaped, so a value containing the separator cannot
// forge another key.
//
// # Decirating
//
// Rating floors are bucketed to tenths and carried as a Decirating (0..50). Formatting to one
// decimal happens only at the key boundary, which keeps the lattice enumeration exact:
//
//	d, err := keyspace.ParseDecirating(3.14) // d == 31, d.String() == "3.1"
//
// # Lattice
//
// Lattice yields every list key that a record with a given region and category can appear
// under, for every accepted limit and rating floor. The sequence is lazy and can be ranged
// over any number of times:
//
//	for key := range keyspace.Lattice("eu", "thai") {
//		// delete key
//	}
package keyspace
