// Package labels annotates predicted class identifiers for display.
package labels
