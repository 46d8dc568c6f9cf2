// Package capture provides still image sources for the scan flow.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"notes-quiz-service/internal/domain"
)

var jpegMagic = []byte{0xFF, 0xD8, 0xFF}

// FileCapture reads a JPEG frame from a path, such as a snapshot written by
// an external camera daemon or a device node that yields whole frames.
type FileCapture struct {
	path    string
	timeout time.Duration
}

func NewFileCapture(path string, timeout time.Duration) *FileCapture {
	return &FileCapture{path: path, timeout: timeout}
}

// Capture returns one frame. Errors are *domain.CaptureError.
func (c *FileCapture) Capture(ctx context.Context) ([]byte, error) {
	if c.path == "" {
		return nil, &domain.CaptureError{Reason: domain.CaptureNoDevice}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	type frame struct {
		data []byte
		err  error
	}
	ch := make(chan frame, 1)
	go func() {
		data, err := os.ReadFile(c.path)
		ch <- frame{data: data, err: err}
	}()

	var f frame
	select {
	case f = <-ch:
	case <-ctx.Done():
		return nil, &domain.CaptureError{Reason: domain.CaptureGeneric, Err: ctx.Err()}
	}

	switch {
	case errors.Is(f.err, fs.ErrPermission):
		return nil, &domain.CaptureError{Reason: domain.CapturePermissionDenied, Err: f.err}
	case errors.Is(f.err, fs.ErrNotExist):
		return nil, &domain.CaptureError{Reason: domain.CaptureNoDevice, Err: f.err}
	case f.err != nil:
		return nil, &domain.CaptureError{Reason: domain.CaptureGeneric, Err: f.err}
	}
	if !bytes.HasPrefix(f.data, jpegMagic) {
		return nil, &domain.CaptureError{Reason: domain.CaptureGeneric, Err: fmt.Errorf("%s is not a JPEG frame", c.path)}
	}
	return f.data, nil
}
