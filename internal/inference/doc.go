// Package inference talks to the external audio classifier.
//
// The client posts the base64 audio envelope as JSON, caps the number of
// concurrent calls, keeps request statistics and maps failures onto
// ErrTransport, ErrUpstreamStatus and ErrRequestTimeout. Retries are off
// unless configured; when enabled they go through go-retryablehttp, and the
// transport is wrapped with otelhttp.
package inference
