// Package layers rebuilds the two-level layer hierarchy (main stages and their
// internal sub-operations) from the flat dotted names of a visualization bundle.
package layers
