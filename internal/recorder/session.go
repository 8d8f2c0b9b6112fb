// Package recorder implements the recording lifecycle as an explicit state
// machine. A session owns its capture handle exclusively from Start until
// release, and every exit path releases the handle.
package recorder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State names one position in the session lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePaused    State = "paused"
	StateStopped   State = "stopped" // finalized payload awaiting save or discard
	StateFailed    State = "error"
)

const defaultChunkSize = 4096

// Session drives idle -> recording <-> paused -> stopped -> idle, with an
// error state reachable on device failure. Methods are safe for concurrent
// use; the capture pump runs on its own goroutine and is joined before Stop
// returns.
type Session struct {
	device Device
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	cause    error
	capture  Capture
	chunks   [][]byte
	accum    time.Duration // elapsed across finished recording segments
	segStart time.Time     // start of the current recording segment
	gate     bool          // chunks accumulate only while true
	stopping bool
	pumpDone chan struct{}

	payload  []byte
	duration float64
}

// Option configures a Session.
type Option func(*Session)

// WithClock injects the time source behind the elapsed counter.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func New(device Device, cfg Config, log zerolog.Logger, opts ...Option) *Session {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = defaultChunkSize
	}
	s := &Session{
		device: device,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the cause while the session is in the error state.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// Elapsed returns whole seconds recorded so far. The counter freezes while
// paused.
func (s *Session) Elapsed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.accum
	if s.state == StateRecording {
		total += s.now().Sub(s.segStart)
	}
	return wholeSeconds(total)
}

// Start acquires the capture device and begins recording. Legal from idle
// and error. An acquisition failure parks the session in the error state
// with the classified cause and makes no other state changes; the caller
// may retry with another Start.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopping || (s.state != StateIdle && s.state != StateFailed) {
		st := s.state
		s.mu.Unlock()
		return StateError{Op: "start", From: st}
	}

	capture, err := s.device.Acquire(ctx, s.cfg)
	if err != nil {
		s.state = StateFailed
		s.cause = err
		s.mu.Unlock()
		s.log.Error().Stack().Err(err).Msg("capture device acquisition failed")
		return err
	}

	s.capture = capture
	s.chunks = nil
	s.payload = nil
	s.duration = 0
	s.cause = nil
	s.accum = 0
	s.segStart = s.now()
	s.gate = true
	s.state = StateRecording
	s.pumpDone = make(chan struct{})
	go s.pump(capture, s.pumpDone)
	s.mu.Unlock()

	s.log.Debug().Msg("recording started")
	return nil
}

// Pause freezes the elapsed counter and chunk accumulation.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping || s.state != StateRecording {
		return StateError{Op: "pause", From: s.state}
	}
	s.accum += s.now().Sub(s.segStart)
	s.gate = false
	s.state = StatePaused
	return nil
}

// Resume continues recording after a pause.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping || s.state != StatePaused {
		return StateError{Op: "resume", From: s.state}
	}
	s.segStart = s.now()
	s.gate = true
	s.state = StateRecording
	return nil
}

// Stop finalizes the accumulated chunks into one immutable payload and
// records the elapsed counter value as its duration. The device is released
// on every path out of here, including capture shutdown failures.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.stopping || (s.state != StateRecording && s.state != StatePaused) {
		st := s.state
		s.mu.Unlock()
		return StateError{Op: "stop", From: st}
	}
	if s.state == StateRecording {
		s.accum += s.now().Sub(s.segStart)
	}
	// The gate keeps its current setting while the pump drains: a stop from
	// recording keeps the capture's final flush, a stop from paused drops it.
	s.stopping = true
	capture := s.capture
	done := s.pumpDone
	s.mu.Unlock()

	stopErr := capture.Stop()
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopping = false
	s.capture = nil
	_ = capture.Close()

	if stopErr != nil {
		s.chunks = nil
		s.state = StateFailed
		s.cause = stopErr
		s.log.Error().Stack().Err(stopErr).Msg("capture shutdown failed")
		return stopErr
	}

	s.payload = bytes.Join(s.chunks, nil)
	s.chunks = nil
	s.duration = wholeSeconds(s.accum)
	s.state = StateStopped
	s.log.Debug().Float64("duration", s.duration).Int("bytes", len(s.payload)).Msg("recording stopped")
	return nil
}

// Discard drops the finalized preview (or clears a failure) and returns to
// idle without producing output.
func (s *Session) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping || (s.state != StateStopped && s.state != StateFailed) {
		return StateError{Op: "discard", From: s.state}
	}
	s.payload = nil
	s.duration = 0
	s.chunks = nil
	s.cause = nil
	s.state = StateIdle
	return nil
}

// Save emits the finalized (payload, duration) pair exactly once and
// returns the session to idle. Saving again requires a new Start first.
func (s *Session) Save() ([]byte, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping || s.state != StateStopped {
		return nil, 0, StateError{Op: "save", From: s.state}
	}
	payload, duration := s.payload, s.duration
	s.payload = nil
	s.duration = 0
	s.state = StateIdle
	return payload, duration, nil
}

// Preview reports the finalized duration while in the stopped state.
func (s *Session) Preview() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStopped {
		return 0, false
	}
	return s.duration, true
}

func (s *Session) pump(capture Capture, done chan struct{}) {
	defer close(done)
	buf := make([]byte, s.cfg.ChunkSize)
	for {
		n, err := capture.Read(buf)
		if n > 0 {
			s.mu.Lock()
			if s.gate {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				s.chunks = append(s.chunks, chunk)
			}
			s.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.captureFailed(capture, err)
			}
			return
		}
	}
}

// captureFailed parks the session in the error state after a mid-recording
// device failure and releases the handle. Failures surfacing during an
// orderly Stop are left for Stop to handle.
func (s *Session) captureFailed(capture Capture, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return
	}
	if s.state != StateRecording && s.state != StatePaused {
		return
	}
	_ = capture.Close()
	s.capture = nil
	s.chunks = nil
	s.gate = false
	s.state = StateFailed
	s.cause = err
	s.log.Error().Stack().Err(err).Msg("capture failed mid-recording")
}

func wholeSeconds(d time.Duration) float64 {
	return math.Floor(d.Seconds())
}
