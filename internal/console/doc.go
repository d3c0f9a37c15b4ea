// Package console draws a view in the terminal. Every grid cell is two
// spaces painted with the cell colour; on terminals without colour support
// only the text survives.
package console
