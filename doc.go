// Package openmetrics parses the OpenMetrics 1.0 text exposition format.
//
// Parsing happens in two stages: a line lexer turns the raw exposition
// text into a flat stream of tokens (metric descriptors, samples, EOF),
// and a family builder folds that token stream into a validated
// map of metric families, enforcing the cross-sample invariants the
// OpenMetrics format requires (bucket ordering, suffix-to-type
// compatibility, label uniqueness, exemplar placement, and so on).
//
// Parse is the package's single entry point:
//
//	families, err := openmetrics.Parse(text)
//
// A non-nil error is always a *ParseError carrying one of the Kind
// values declared below.
package openmetrics
