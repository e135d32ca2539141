package config

import (
	"os"
	"os/exec"
	"strings"
	"testing"
)

func TestParseEnvSeedDefaults(t *testing.T) {
	var cfg Seed

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.DBPath != "tavern.db" {
		t.Fatalf("db path = %q, want tavern.db", cfg.DBPath)
	}
	if cfg.Travelers != 5 {
		t.Fatalf("travelers = %d, want 5", cfg.Travelers)
	}
	if cfg.StartingBalance != 100 {
		t.Fatalf("starting balance = %d, want 100", cfg.StartingBalance)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("TAVERN_SEED_TRAVELERS", "12")
	t.Setenv("TAVERN_SEED_TEXT", "stream-night")

	var cfg Seed
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Travelers != 12 {
		t.Fatalf("travelers = %d, want 12", cfg.Travelers)
	}
	if cfg.SeedText != "stream-night" {
		t.Fatalf("seed text = %q, want stream-night", cfg.SeedText)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("TAVERN_SEED_TRAVELERS", "not-an-int")

	var cfg Seed
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

// TestExitfExitsWithCode1 verifies that Exitf writes to stderr and exits
// with code 1. It uses the subprocess test pattern because os.Exit cannot
// be intercepted in-process.
func TestExitfExitsWithCode1(t *testing.T) {
	if os.Getenv("TEST_EXITF_SUBPROCESS") == "1" {
		Exitf("fatal: %s", "something broke")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitfExitsWithCode1$")
	cmd.Env = append(os.Environ(), "TEST_EXITF_SUBPROCESS=1")

	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %d", exitErr.ExitCode())
	}
	if !strings.Contains(string(out), "fatal: something broke") {
		t.Fatalf("expected stderr to contain %q, got %q", "fatal: something broke", string(out))
	}
}
