package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/Strob0t/GroupWarden/internal/config"
)

// runSetup handles the "setup" subcommand: it hashes an admin API key for
// the config file and optionally writes a starter YAML.
func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	writeConfig := fs.Bool("write-config", false, "write a starter groupwarden.yaml if none exists")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := promptSecret("Admin API key: ")
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	confirm, err := promptSecret("Confirm API key: ")
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	if key != confirm {
		return fmt.Errorf("keys do not match")
	}
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash key: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\nPut this under auth.api_key_hash in %s:\n\n  %s\n\n",
		config.DefaultConfigFile, hash)

	if *writeConfig {
		return writeStarterConfig(string(hash))
	}
	return nil
}

func writeStarterConfig(hash string) error {
	if _, err := os.Stat(config.DefaultConfigFile); err == nil {
		return fmt.Errorf("%s already exists, not overwriting", config.DefaultConfigFile)
	}

	starter := fmt.Sprintf(`server:
  port: "8090"

moderation:
  group_id: ""        # WhatsApp group JID, e.g. 1234567890@g.us
  group_name: ""
  report_time: "20:00"

decision:
  interpreter: python
  classify_script: moderation_api.py
  feedback_script: process_feedback.py
  stats_script: get_daily_stats.py

auth:
  api_key_hash: "%s"
`, hash)

	if err := os.WriteFile(config.DefaultConfigFile, []byte(starter), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", config.DefaultConfigFile, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s. Fill in moderation.group_id before starting.\n", config.DefaultConfigFile)
	return nil
}

// promptSecret reads a value from the terminal without echoing.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
