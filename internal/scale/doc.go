// Package scale provides the colour scale shared by every grid in one response.
package scale
