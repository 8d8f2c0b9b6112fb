package recorder

import (
	"context"
	"io"
)

// Config describes how the capture device should be opened.
type Config struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
	ChunkSize   int
}

// Capture is a live, exclusively-owned capture handle. Read hands out raw
// audio until Stop ends the stream, after which reads drain buffered data
// and return io.EOF. Close releases the device; closing twice is a no-op.
type Capture interface {
	io.ReadCloser
	Stop() error
}

// Device acquires capture handles. Acquisition failures are classified as
// model.DeviceError (permission denied, no device, device busy).
type Device interface {
	Acquire(ctx context.Context, cfg Config) (Capture, error)
}
