// Package codec implements the transport codec between this service and the
// inference service: base64 audio payloads on the way out and the structured
// prediction/visualization response on the way back.
package codec
