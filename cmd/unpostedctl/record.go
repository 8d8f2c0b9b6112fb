package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dhanaBhai/unposted/internal/logger"
	"github.com/dhanaBhai/unposted/internal/model"
	"github.com/dhanaBhai/unposted/internal/recorder"
	"github.com/dhanaBhai/unposted/internal/transcribe"
)

const (
	retryAttempts  = 4
	baseBackoff    = 500 * time.Millisecond
	maxBackoffWait = 5 * time.Second
)

type recordOpts struct {
	api          string
	inputFormat  string
	inputDevice  string
	sampleRate   int
	channels     int
	noTranscribe bool
}

// runRecord drives one recording session from interactive commands on in:
// p pauses, r resumes, s stops, q discards. After a stop it previews the
// take, transcribes it unless that is disabled, and saves the entry through
// the service. A failed transcription still saves the take, without a
// transcript; the transcript can be patched in later.
func runRecord(ctx context.Context, dev recorder.Device, tr transcribe.Transcriber, opts recordOpts, in io.Reader, out io.Writer) error {
	session := recorder.New(dev, recorder.Config{
		SampleRate:  opts.sampleRate,
		Channels:    opts.channels,
		InputFormat: opts.inputFormat,
		InputDevice: opts.inputDevice,
	}, logger.New("unpostedctl"))

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	fmt.Fprintln(out, "recording (p=pause, r=resume, s=stop, q=discard)")

	scanner := bufio.NewScanner(in)
	for session.State() == recorder.StateRecording || session.State() == recorder.StatePaused {
		if !scanner.Scan() {
			// Input closed; stop and keep what was captured so far.
			if err := session.Stop(); err != nil {
				return fmt.Errorf("stop recording: %w", err)
			}
			break
		}
		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "p":
			if err := session.Pause(); err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			fmt.Fprintf(out, "paused at %.0fs\n", session.Elapsed())
		case "r":
			if err := session.Resume(); err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			fmt.Fprintln(out, "recording resumed")
		case "s":
			if err := session.Stop(); err != nil {
				return fmt.Errorf("stop recording: %w", err)
			}
		case "q":
			_ = session.Stop()
			_ = session.Discard()
			fmt.Fprintln(out, "discarded")
			return nil
		case "":
		default:
			fmt.Fprintln(out, "commands: p=pause r=resume s=stop q=discard")
		}
	}

	if session.State() == recorder.StateFailed {
		if err := session.Err(); err != nil {
			return fmt.Errorf("recording failed: %w", err)
		}
		return fmt.Errorf("recording failed")
	}

	preview, ok := session.Preview()
	if !ok {
		return fmt.Errorf("nothing recorded")
	}
	fmt.Fprintf(out, "stopped; %.0f seconds recorded. save? (y/n) ", preview)

	confirmed := false
	if scanner.Scan() {
		confirmed = strings.TrimSpace(strings.ToLower(scanner.Text())) == "y"
	}
	if !confirmed {
		_ = session.Discard()
		fmt.Fprintln(out, "discarded")
		return nil
	}

	audio, duration, err := session.Save()
	if err != nil {
		return err
	}

	transcript := ""
	if !opts.noTranscribe {
		result, err := transcribeWithRetry(ctx, tr, audio)
		if err != nil {
			fmt.Fprintf(out, "transcription failed: %v; saving without transcript\n", err)
		} else {
			transcript = result.Transcript
		}
	}

	entry, err := saveEntryWithRetry(ctx, opts.api, transcript, duration, audio)
	if err != nil {
		return fmt.Errorf("save entry: %w", err)
	}
	fmt.Fprintf(out, "saved entry %s (%s)\n", entry.ID, entry.Title)
	return nil
}

func transcribeWithRetry(ctx context.Context, tr transcribe.Transcriber, audio []byte) (transcribe.Result, error) {
	var result transcribe.Result
	err := retryWithBackoff(ctx, retryAttempts, func() error {
		res, err := tr.Transcribe(ctx, audio, "recording.raw")
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	return result, err
}

func saveEntryWithRetry(ctx context.Context, api, transcript string, duration float64, audio []byte) (model.Entry, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"transcript": transcript,
		"duration":   duration,
		"audio":      audio,
	})
	if err != nil {
		return model.Entry{}, err
	}

	var entry model.Entry
	err = retryWithBackoff(ctx, retryAttempts, func() error {
		resp, err := http.Post(api+"/api/entries", "application/json", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusCreated:
			return json.NewDecoder(resp.Body).Decode(&entry)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// The request itself is bad; retrying cannot help.
			return model.NewValidationError("entry", unexpectedStatus(resp).Error())
		default:
			return unexpectedStatus(resp)
		}
	})
	return entry, err
}

// retryWithBackoff runs op up to attempts times with exponential backoff,
// failing fast on validation errors.
func retryWithBackoff(ctx context.Context, attempts int, op func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = baseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = maxBackoffWait
	exp.Reset()

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if model.IsValidationError(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-time.After(exp.NextBackOff()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
