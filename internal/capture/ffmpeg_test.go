package capture

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhanaBhai/unposted/internal/model"
	"github.com/dhanaBhai/unposted/internal/recorder"
)

func TestClassifyAcquireFailure(t *testing.T) {
	cases := []struct {
		name   string
		stderr string
		want   model.DeviceErrorReason
	}{
		{"permission denied", "pulse: Permission denied", model.DevicePermissionDenied},
		{"access denied", "ALSA lib: access denied by policy", model.DevicePermissionDenied},
		{"no such device", "hw:3: No such device", model.DeviceNotFound},
		{"unknown input", "Unknown input format: 'pulse'", model.DeviceNotFound},
		{"device busy", "Device or resource busy", model.DeviceBusy},
		{"unrecognised output", "something exploded", model.DeviceBusy},
		{"silent exit", "", model.DeviceBusy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			devErr := classifyAcquireFailure(tc.stderr)
			assert.Equal(t, tc.want, devErr.Reason)
			assert.NotEmpty(t, devErr.Message)
		})
	}
}

// writeStub drops an executable shell script that stands in for ffmpeg.
func writeStub(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func readAll(t *testing.T, c recorder.Capture, want int) []byte {
	t.Helper()
	buf := make([]byte, 0, want)
	chunk := make([]byte, 64)
	deadline := time.Now().Add(5 * time.Second)
	for len(buf) < want {
		require.True(t, time.Now().Before(deadline), "timed out reading capture stream")
		n, err := c.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
	}
	return buf
}

func TestAcquireStreamsUntilStopped(t *testing.T) {
	stub := writeStub(t, "printf 'pcm-0123456789'\nexec sleep 10\n")
	dev := NewDevice(stub)

	capt, err := dev.Acquire(context.Background(), recorder.Config{})
	require.NoError(t, err)

	got := readAll(t, capt, len("pcm-0123456789"))
	assert.Equal(t, "pcm-0123456789", string(got))

	require.NoError(t, capt.Stop())

	// After stop the stream drains to EOF.
	n, err := capt.Read(make([]byte, 16))
	for err == nil {
		n, err = capt.Read(make([]byte, 16))
	}
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, capt.Close())
	require.NoError(t, capt.Close(), "close is idempotent")
}

func TestAcquireKeepsBufferedTailAfterStop(t *testing.T) {
	// Bytes written before Stop but not yet read must survive the stop and
	// drain to the reader afterwards.
	stub := writeStub(t, "printf 'tail-flush'\nexec sleep 10\n")
	dev := NewDevice(stub)

	capt, err := dev.Acquire(context.Background(), recorder.Config{})
	require.NoError(t, err)

	require.NoError(t, capt.Stop())

	got := readAll(t, capt, len("tail-flush"))
	assert.Equal(t, "tail-flush", string(got))
	require.NoError(t, capt.Close())
}

func TestAcquireClassifiesEarlyDeath(t *testing.T) {
	cases := []struct {
		name string
		body string
		want model.DeviceErrorReason
	}{
		{"permission", "echo 'pulse: Permission denied' >&2\nexit 1\n", model.DevicePermissionDenied},
		{"missing device", "echo 'hw:9: No such device' >&2\nexit 1\n", model.DeviceNotFound},
		{"busy", "echo 'Device or resource busy' >&2\nexit 1\n", model.DeviceBusy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dev := NewDevice(writeStub(t, tc.body))
			_, err := dev.Acquire(context.Background(), recorder.Config{})
			require.Error(t, err)
			require.True(t, model.IsDeviceError(err))

			var devErr model.DeviceError
			require.True(t, errors.As(err, &devErr))
			assert.Equal(t, tc.want, devErr.Reason)
		})
	}
}

func TestReadReportsCrashMidCapture(t *testing.T) {
	// The child survives the startup probe, streams a chunk, then dies.
	// The EOF that follows was never asked for, so it must surface as a
	// device error rather than a clean end of stream.
	stub := writeStub(t, "printf 'chunk'\nsleep 0.4\necho 'Connection to capture daemon lost' >&2\nexit 1\n")
	dev := NewDevice(stub)

	capt, err := dev.Acquire(context.Background(), recorder.Config{})
	require.NoError(t, err)

	buf := make([]byte, 64)
	deadline := time.Now().Add(5 * time.Second)
	var readErr error
	for {
		require.True(t, time.Now().Before(deadline), "timed out waiting for capture death")
		if _, readErr = capt.Read(buf); readErr != nil {
			break
		}
	}

	require.True(t, model.IsDeviceError(readErr), "got %v", readErr)
	var devErr model.DeviceError
	require.True(t, errors.As(readErr, &devErr))
	assert.Equal(t, model.DeviceBusy, devErr.Reason)
	assert.Contains(t, devErr.Message, "capture daemon lost")
	require.NoError(t, capt.Close())
}

func TestAcquireMissingBinary(t *testing.T) {
	dev := NewDevice("unposted-no-such-ffmpeg-binary")
	_, err := dev.Acquire(context.Background(), recorder.Config{})
	require.Error(t, err)
	require.True(t, model.IsDeviceError(err))

	var devErr model.DeviceError
	require.True(t, errors.As(err, &devErr))
	assert.Equal(t, model.DeviceNotFound, devErr.Reason)
}

func TestStopIsIdempotent(t *testing.T) {
	stub := writeStub(t, "exec sleep 10\n")
	dev := NewDevice(stub)

	capt, err := dev.Acquire(context.Background(), recorder.Config{})
	require.NoError(t, err)

	require.NoError(t, capt.Stop())
	require.NoError(t, capt.Stop())
	require.NoError(t, capt.Close())
}
