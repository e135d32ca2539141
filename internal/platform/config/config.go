// Package config loads configuration from the environment and provides
// the fatal-exit helper for CLI entry points.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Seed configures the seeding CLI. Flags override these values.
type Seed struct {
	// DBPath locates the SQLite database file.
	DBPath string `env:"TAVERN_DB_PATH" envDefault:"tavern.db"`
	// SeedText feeds deterministic generation; the same text produces
	// the same demo data.
	SeedText string `env:"TAVERN_SEED_TEXT" envDefault:"tavern-demo"`
	// Travelers is how many demo traveler profiles to create.
	Travelers int `env:"TAVERN_SEED_TRAVELERS" envDefault:"5"`
	// StartingBalance is credited to each demo wallet.
	StartingBalance int64 `env:"TAVERN_SEED_BALANCE" envDefault:"100"`
	// PartyID names the demo party roster.
	PartyID string `env:"TAVERN_SEED_PARTY" envDefault:"demo-party"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
// It provides a consistent fatal-exit pattern for CLI entry points.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
