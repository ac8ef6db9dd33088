// Package services contains domain services for the dispatch engine.
// Domain services encapsulate business logic spanning multiple aggregates,
// such as matching eligible riders to a delivery job's pickup location.
package services
