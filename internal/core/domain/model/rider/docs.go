// Package rider implements the Rider aggregate: the availability and
// last-known location state the dispatch engine reads when matching
// candidates and writes when committing or tearing down assignments.
package rider
