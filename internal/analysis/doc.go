// Package analysis runs one upload through the whole pipeline: encode,
// infer, decode, resolve layers, render with one shared scale and compose
// the view. Every failure collapses to a single user-facing message while
// the specific kind is kept for logs and metrics.
package analysis
