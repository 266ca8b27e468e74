// Package parsers turns raw legacy cell values into domain values.
//
// Every parser returns a Result. A parser that cannot interpret its input
// substitutes a documented fallback and sets Degraded to a reason; it never
// returns an error for bad data. The caller logs degraded results once, at
// the point where the cell is bound to a row.
package parsers

import "fmt"

// Result is a parsed value plus an optional degradation reason.
type Result struct {
	Value    any
	Degraded string
}

// OK wraps a successfully parsed value.
func OK(v any) Result {
	return Result{Value: v}
}

// Degrade wraps a fallback value with a reason.
func Degrade(fallback any, format string, args ...any) Result {
	return Result{Value: fallback, Degraded: fmt.Sprintf(format, args...)}
}

// IsDegraded reports whether the parser fell back.
func (r Result) IsDegraded() bool {
	return r.Degraded != ""
}
