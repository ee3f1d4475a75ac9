package post

import (
	"errors"
	"fmt"
)

// ErrorKind classifies where in the pipeline an upload attempt failed.
type ErrorKind string

const (
	KindDeviceUnavailable   ErrorKind = "device_unavailable"
	KindDecodeFailure       ErrorKind = "decode_failure"
	KindEffectRenderFailure ErrorKind = "effect_render_failure"
	KindEncodeFailure       ErrorKind = "encode_failure"
	KindTransmitFailure     ErrorKind = "transmit_failure"
)

// PipelineError wraps a step failure with its classification. All failures
// crossing the coordinator boundary are of this type so callers can show
// the failure kind without parsing message strings.
type PipelineError struct {
	Kind ErrorKind
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func pipelineErr(kind ErrorKind, err error) *PipelineError {
	return &PipelineError{Kind: kind, Err: err}
}

// KindOf returns the classification of err, or "" when err is not a
// pipeline error.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
