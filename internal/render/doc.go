// Package render maps tensors onto bounded grids of colour cells using a
// shared scale. A tensor that fails validation is skipped and reported
// without affecting the others.
package render
