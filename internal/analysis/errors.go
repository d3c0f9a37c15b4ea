package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/skypro1111/audio-cnn-visualizer/internal/codec"
	"github.com/skypro1111/audio-cnn-visualizer/internal/inference"
)

// UserMessage is the only failure text shown to viewers
const UserMessage = "Audio analysis failed"

// Failure kinds
const (
	KindTransport         = "transport"
	KindMalformedResponse = "malformed_response"
	KindRequestTimeout    = "request_timeout"
	KindCancelled         = "cancelled"
)

// Failure is a failed analysis
type Failure struct {
	Kind string
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// UserMessage returns the text to display for any failure
func (f *Failure) UserMessage() string {
	return UserMessage
}

// classify maps pipeline errors onto failure kinds
func classify(err error) string {
	switch {
	case errors.Is(err, codec.ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, inference.ErrRequestTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindRequestTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	default:
		return KindTransport
	}
}

// KindOf returns the failure kind of err, or "" if err is not a Failure
func KindOf(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
