package fault

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies a recoverable failure in the voice pipeline.
type Kind string

const (
	KindPermissionDenied    Kind = "permission_denied"
	KindDeviceUnavailable   Kind = "device_unavailable"
	KindNoAudioCaptured     Kind = "no_audio_captured"
	KindEmptyTranscript     Kind = "empty_transcript"
	KindTranscriptionFailed Kind = "transcription_transport_error"
	KindProviderError       Kind = "provider_error"
	KindDispatchFailed      Kind = "dispatch_transport_error"
)

// userMessages maps each kind to the single short message shown to the user.
// Provider messages override these when present (Failure.Detail).
var userMessages = map[Kind]string{
	KindPermissionDenied:    "Microphone access was denied. Allow it in your browser settings and try again.",
	KindDeviceUnavailable:   "No microphone was found on this device.",
	KindNoAudioCaptured:     "No audio was captured. Hold the button a little longer and speak clearly.",
	KindEmptyTranscript:     "We couldn't make out any speech. Please try again and speak clearly.",
	KindTranscriptionFailed: "Transcription failed because of a connection problem. Please try again.",
	KindProviderError:       "The transcription service reported an error. Please try again.",
	KindDispatchFailed:      "We couldn't reach the assistant. Please try again.",
}

// Failure is a classified, user-presentable pipeline error.
type Failure struct {
	Kind   Kind
	Detail string // provider-supplied message, shown verbatim when non-empty
}

func (f *Failure) Error() string {
	if f.Detail != "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
	}
	return string(f.Kind)
}

// UserMessage returns the text to surface for this failure: the provider's
// own message when it carried one, otherwise the fixed message for the kind.
func (f *Failure) UserMessage() string {
	if f.Detail != "" {
		return f.Detail
	}
	if msg, ok := userMessages[f.Kind]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}

// New returns a Failure of the given kind with no provider detail.
func New(kind Kind) *Failure {
	return &Failure{Kind: kind}
}

// Provider returns a ProviderError carrying the service's message verbatim.
func Provider(message string) *Failure {
	return &Failure{Kind: KindProviderError, Detail: message}
}

// KindOf extracts the failure kind from an error, unwrapping as needed.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if f, ok := errors.Cause(err).(*Failure); ok {
		return f.Kind
	}
	return KindDispatchFailed
}

// AsFailure unwraps err to its *Failure, or classifies it under fallback when
// it was never classified.
func AsFailure(err error, fallback Kind) *Failure {
	if err == nil {
		return nil
	}
	if f, ok := errors.Cause(err).(*Failure); ok {
		return f
	}
	return &Failure{Kind: fallback, Detail: ""}
}
