package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/dhanaBhai/unposted/journalservice"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	if err := promptPassphraseIfNeeded(); err != nil {
		log.Error().Err(err).Msg("passphrase prompt failed")
		os.Exit(1)
	}

	if err := journalservice.Run(); err != nil {
		log.Error().Err(err).Msg("unposted-service exited with error")
		os.Exit(1)
	}
}

// promptPassphraseIfNeeded asks for the encryption passphrase interactively
// when encryption is enabled but no passphrase was provided, so dev machines
// don't have to keep it in the environment. Headless runs still fail fast in
// config validation.
func promptPassphraseIfNeeded() error {
	enabled, _ := strconv.ParseBool(os.Getenv("UNPOSTED_ENABLE_ENCRYPTION"))
	if !enabled || os.Getenv("UNPOSTED_PASSPHRASE") != "" {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}

	fmt.Print("Enter encryption passphrase: ")
	pass, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(pass)) == "" {
		return fmt.Errorf("empty passphrase")
	}
	return os.Setenv("UNPOSTED_PASSPHRASE", string(pass))
}
