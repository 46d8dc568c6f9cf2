package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"notes-quiz-service/internal/domain"
)

func reasonOf(t *testing.T, err error) domain.CaptureReason {
	t.Helper()
	var ce *domain.CaptureError
	if !errors.As(err, &ce) {
		t.Fatalf("expected capture error, got %v", err)
	}
	if !errors.Is(err, domain.ErrCaptureUnavailable) {
		t.Fatalf("capture error should match ErrCaptureUnavailable")
	}
	return ce.Reason
}

func TestFileCaptureReadsJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.jpg")
	frame := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	if err := os.WriteFile(path, frame, 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := NewFileCapture(path, 0).Capture(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if string(got) != string(frame) {
		t.Fatalf("unexpected frame bytes")
	}
}

func TestFileCaptureMissingDevice(t *testing.T) {
	_, err := NewFileCapture(filepath.Join(t.TempDir(), "missing.jpg"), 0).Capture(context.Background())
	if r := reasonOf(t, err); r != domain.CaptureNoDevice {
		t.Fatalf("reason = %s", r)
	}

	_, err = NewFileCapture("", 0).Capture(context.Background())
	if r := reasonOf(t, err); r != domain.CaptureNoDevice {
		t.Fatalf("reason = %s", r)
	}
}

func TestFileCaptureRejectsNonJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	if err := os.WriteFile(path, []byte("\x89PNG\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileCapture(path, 0).Capture(context.Background())
	if r := reasonOf(t, err); r != domain.CaptureGeneric {
		t.Fatalf("reason = %s", r)
	}
}

func TestFileCapturePermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	path := filepath.Join(t.TempDir(), "locked.jpg")
	if err := os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF}, 0o000); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileCapture(path, 0).Capture(context.Background())
	if r := reasonOf(t, err); r != domain.CapturePermissionDenied {
		t.Fatalf("reason = %s", r)
	}
}
