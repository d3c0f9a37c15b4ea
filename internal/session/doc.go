// Package session keeps per-viewer display state on the server.
//
// A session mirrors one open page: at most one analysis may be in flight
// (Begin returns ErrBusy otherwise), a new upload clears the displayed view,
// and Commit applies results last-response-wins using generation tickets.
// Idle sessions are removed by a background cleanup routine.
package session
