// Package storeinfra provides the durable RecordStore implementations used by the
// directory service: DynamoDB, SQL through bun (sqlite and postgres) and an
// in-memory store for development and tests.
//
// All implementations share the same contract. Insert is conditional on the name
// being free, UpdateRating with an expected count is a compare-and-swap on the
// stored count, and queries return at most limit records ordered by rating,
// highest first, ties broken by name where the backend allows it.
package storeinfra
