package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerationFailed is returned when the generation gateway could not produce a quiz.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrCaptureUnavailable is returned when no still image could be captured.
	ErrCaptureUnavailable = errors.New("capture unavailable")
	// ErrInvalidSelection guards session transitions fired in the wrong state.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrInvalidQuiz indicates a generated payload the session engine cannot index.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrInvalidRequest indicates generation parameters failed validation.
	ErrInvalidRequest = errors.New("invalid generation request")
	// ErrGenerationInFlight is returned while another generation call is pending.
	ErrGenerationInFlight = errors.New("generation already in progress")
	// ErrInvalidTransition is returned when a flow action does not apply to the current screen.
	ErrInvalidTransition = errors.New("invalid flow transition")
	// ErrGenerationDiscarded marks a generation answer dropped because the flow was reset.
	ErrGenerationDiscarded = errors.New("generation result discarded")
	// ErrFlowNotFound is returned when no live flow exists for a learner.
	ErrFlowNotFound = errors.New("learner flow not found")
	// ErrUnsupportedFormat is returned for unknown export formats.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// CaptureReason distinguishes capture failures for user messaging.
type CaptureReason string

const (
	CapturePermissionDenied CaptureReason = "permission_denied"
	CaptureNoDevice         CaptureReason = "no_device"
	CaptureGeneric          CaptureReason = "unavailable"
)

// CaptureError wraps a capture failure and matches ErrCaptureUnavailable.
type CaptureError struct {
	Reason CaptureReason
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("capture unavailable: %s", e.Reason)
	}
	return fmt.Sprintf("capture unavailable: %s: %v", e.Reason, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

func (e *CaptureError) Is(target error) bool { return target == ErrCaptureUnavailable }

// UserMessage maps an error to the one-line message shown to the learner.
func UserMessage(err error, mode GenerationMode) string {
	var capErr *CaptureError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &capErr):
		switch capErr.Reason {
		case CapturePermissionDenied:
			return "Camera permission denied. Please allow camera access."
		case CaptureNoDevice:
			return "No camera found on this device."
		default:
			return "Unable to access camera. Please try pasting text manually."
		}
	case errors.Is(err, ErrInvalidRequest):
		return err.Error()
	case errors.Is(err, ErrGenerationInFlight):
		return "A quiz is already being generated. Please wait."
	case mode == ModeImage:
		return "Failed to process scan. Ensure the photo is clear and contains text."
	default:
		return "Failed to generate quiz. Please check your notes or try again later."
	}
}
