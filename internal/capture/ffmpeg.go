// Package capture acquires microphone audio through an ffmpeg child process
// streaming raw PCM on stdout.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dhanaBhai/unposted/internal/model"
	"github.com/dhanaBhai/unposted/internal/recorder"
)

const (
	startupProbe = 250 * time.Millisecond
	stopGrace    = 1200 * time.Millisecond
)

// Device implements recorder.Device on top of ffmpeg.
type Device struct {
	command string
}

func NewDevice(command string) *Device {
	if command == "" {
		command = "ffmpeg"
	}
	return &Device{command: command}
}

func (d *Device) Acquire(ctx context.Context, cfg recorder.Config) (recorder.Capture, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, d.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// A plain os.Pipe instead of cmd.StdoutPipe keeps the read end open
	// past process exit, so the tail of the stream stays readable until
	// the consumer drains it to io.EOF.
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, model.NewDeviceError(model.DeviceBusy, fmt.Sprintf("create stdout pipe: %v", err))
	}
	cmd.Stdout = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		if errors.Is(err, exec.ErrNotFound) {
			return nil, model.NewDeviceError(model.DeviceNotFound, fmt.Sprintf("%s not installed", d.command))
		}
		return nil, model.NewDeviceError(model.DeviceBusy, fmt.Sprintf("start %s: %v", d.command, err))
	}
	// The child owns its copy of the write end now.
	_ = pw.Close()

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// A capture process that dies this quickly never had the device.
	select {
	case <-waitErr:
		_ = pr.Close()
		return nil, classifyAcquireFailure(stderr.String())
	case <-time.After(startupProbe):
	}

	return &session{
		stdout:  pr,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

// classifyAcquireFailure maps ffmpeg's stderr to the device error taxonomy.
func classifyAcquireFailure(stderr string) model.DeviceError {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = "capture process exited before producing audio"
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "access denied"),
		strings.Contains(lower, "not allowed"):
		return model.NewDeviceError(model.DevicePermissionDenied, msg)
	case strings.Contains(lower, "no such device"),
		strings.Contains(lower, "no such file"),
		strings.Contains(lower, "not found"),
		strings.Contains(lower, "cannot find"),
		strings.Contains(lower, "unknown input"):
		return model.NewDeviceError(model.DeviceNotFound, msg)
	default:
		return model.NewDeviceError(model.DeviceBusy, msg)
	}
}

type session struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	stopAsked atomic.Bool
	stopOnce  sync.Once
	stopErr   error
	closeOnce sync.Once
}

// Read streams captured audio. Hitting io.EOF before anyone asked to stop
// means the capture process died; that surfaces as a device error so the
// session does not mistake a crash for a clean end of stream.
func (s *session) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if errors.Is(err, io.EOF) && !s.stopAsked.Load() {
		_ = s.Stop() // reap the child; stderr is complete afterwards
		msg := strings.TrimSpace(s.stderr.String())
		if msg == "" {
			msg = "capture process exited unexpectedly"
		}
		return n, model.NewDeviceError(model.DeviceBusy, msg)
	}
	return n, err
}

// Stop asks ffmpeg to finish and waits for it to exit. Audio buffered in the
// pipe stays readable until Read drains to io.EOF.
func (s *session) Stop() error {
	s.stopOnce.Do(func() {
		s.stopAsked.Store(true)
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(stopGrace):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err, ok := <-s.waitErr
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, strings.TrimSpace(s.stderr.String()))
		}
	})
	return s.stopErr
}

// Close releases the device. Closing an already-closed session is a no-op.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		_ = s.Stop()
		_ = s.stdout.Close()
	})
	return nil
}

// normalizeStopErr swallows the nonzero exit an interrupted ffmpeg reports.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
