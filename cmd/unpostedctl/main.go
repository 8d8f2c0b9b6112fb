package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhanaBhai/unposted/internal/capture"
	"github.com/dhanaBhai/unposted/internal/transcribe"
)

var (
	apiFlag string
	rootCmd = &cobra.Command{
		Use:   "unpostedctl",
		Short: "CLI client for the unposted journal service",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8765", "Journal service base URL")

	// record subcommand
	var (
		ffmpegBin     string
		inputFormat   string
		inputDevice   string
		sampleRate    int
		channels      int
		strategy      string
		transcribeURL string
		transcribeKey string
		timeoutSec    int
		noTranscribe  bool
	)
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Record a journal entry from the microphone",
		Long: `Record captures microphone audio until stopped, transcribes it, and saves
the entry through the journal service. While recording, type a command and
press enter: p pauses, r resumes, s stops and saves, q discards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var tr transcribe.Transcriber
			if !noTranscribe {
				switch strategy {
				case "http":
					if transcribeURL == "" {
						return fmt.Errorf("--transcribe-url required with --strategy http")
					}
					tr = transcribe.NewHTTP(transcribeURL, transcribeKey, time.Duration(timeoutSec)*time.Second)
				case "mock", "":
					tr = transcribe.NewMock()
				default:
					return fmt.Errorf("unsupported --strategy %q (mock, http)", strategy)
				}
			}

			opts := recordOpts{
				api:          apiFlag,
				inputFormat:  inputFormat,
				inputDevice:  inputDevice,
				sampleRate:   sampleRate,
				channels:     channels,
				noTranscribe: noTranscribe,
			}
			return runRecord(cmd.Context(), capture.NewDevice(ffmpegBin), tr, opts, os.Stdin, os.Stdout)
		},
	}
	recordCmd.Flags().StringVar(&ffmpegBin, "ffmpeg", "ffmpeg", "ffmpeg binary used for capture")
	recordCmd.Flags().StringVar(&inputFormat, "format", "pulse", "ffmpeg input format (pulse, alsa, avfoundation)")
	recordCmd.Flags().StringVar(&inputDevice, "device", "default", "capture device name")
	recordCmd.Flags().IntVar(&sampleRate, "rate", 16000, "sample rate in Hz")
	recordCmd.Flags().IntVar(&channels, "channels", 1, "channel count")
	recordCmd.Flags().StringVar(&strategy, "strategy", "mock", "transcription strategy (mock, http)")
	recordCmd.Flags().StringVar(&transcribeURL, "transcribe-url", "", "transcription endpoint for --strategy http")
	recordCmd.Flags().StringVar(&transcribeKey, "transcribe-key", "", "bearer token for the transcription endpoint")
	recordCmd.Flags().IntVar(&timeoutSec, "timeout", 120, "transcription timeout in seconds")
	recordCmd.Flags().BoolVar(&noTranscribe, "no-transcribe", false, "save the entry without a transcript")
	rootCmd.AddCommand(recordCmd)

	// list subcommand
	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List journal entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(apiFlag, os.Stdout)
		},
	})

	// show subcommand
	rootCmd.AddCommand(&cobra.Command{
		Use:   "show <entry-id>",
		Short: "Show one entry as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(apiFlag, args[0], os.Stdout)
		},
	})

	// delete subcommand
	rootCmd.AddCommand(&cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Delete one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(apiFlag, args[0], os.Stdout)
		},
	})

	// wipe subcommand
	var wipeYes bool
	wipeCmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every entry in the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !wipeYes {
				return fmt.Errorf("refusing to wipe without --yes")
			}
			return runWipe(apiFlag, os.Stdout)
		},
	}
	wipeCmd.Flags().BoolVar(&wipeYes, "yes", false, "confirm wiping all entries")
	rootCmd.AddCommand(wipeCmd)

	// streak subcommand
	rootCmd.AddCommand(&cobra.Command{
		Use:   "streak",
		Short: "Show the current daily journaling streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreak(apiFlag, os.Stdout)
		},
	})

	// insights subcommand
	rootCmd.AddCommand(&cobra.Command{
		Use:   "insights <entry-id>",
		Short: "Generate a reflection for one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsights(apiFlag, args[0], os.Stdout)
		},
	})

	// export subcommand
	var exportOut string
	exportCmd := &cobra.Command{
		Use:   "export <entry-id>",
		Short: "Export an entry's audio to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if exportOut == "" {
				return fmt.Errorf("--out required")
			}
			return runExport(apiFlag, args[0], exportOut, os.Stdout)
		},
	}
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "destination file for the audio payload")
	rootCmd.AddCommand(exportCmd)

	// health subcommand
	rootCmd.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(apiFlag, os.Stdout)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
