// Package main seeds a local database with deterministic demo data:
// traveler and job profiles, ability scores, funded wallets, and a demo
// party roster. The same seed text always produces the same data.
package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/distortia/tavern/internal/alignment"
	"github.com/distortia/tavern/internal/character"
	"github.com/distortia/tavern/internal/character/tables"
	"github.com/distortia/tavern/internal/dice"
	"github.com/distortia/tavern/internal/platform/config"
	"github.com/distortia/tavern/internal/random"
	"github.com/distortia/tavern/internal/storage/sqlite"
)

func main() {
	var cfg config.Seed
	if err := config.ParseEnv(&cfg); err != nil {
		config.Exitf("load config: %v", err)
	}

	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.SeedText, "seed", cfg.SeedText, "seed text for deterministic generation")
	flag.IntVar(&cfg.Travelers, "travelers", cfg.Travelers, "number of demo travelers")
	flag.Int64Var(&cfg.StartingBalance, "balance", cfg.StartingBalance, "starting wallet balance")
	flag.StringVar(&cfg.PartyID, "party", cfg.PartyID, "demo party roster id")
	flag.Parse()

	if cfg.Travelers <= 0 {
		config.Exitf("travelers must be positive, got %d", cfg.Travelers)
	}

	store, err := sqlite.Open(cfg.DBPath, nil)
	if err != nil {
		config.Exitf("open store: %v", err)
	}
	defer store.Close()

	if err := run(context.Background(), store, cfg); err != nil {
		config.Exitf("seed: %v", err)
	}
}

func run(ctx context.Context, store *sqlite.Store, cfg config.Seed) error {
	now := time.Now()
	factionCounts := make(map[string]int)

	roster, err := store.GetRoster(ctx, cfg.PartyID)
	if err != nil {
		return fmt.Errorf("get roster: %w", err)
	}

	for i := 1; i <= cfg.Travelers; i++ {
		ownerID := "demo-user-" + strconv.Itoa(i)

		for _, kind := range []string{"traveler", "job"} {
			set, ok := tables.ByKind(kind)
			if !ok {
				return fmt.Errorf("unknown kind %q", kind)
			}
			seedText := random.JoinParts(cfg.SeedText, kind, ownerID)
			profile, fallbacks := character.Generate(seedText, set, nil, now)
			profile.ID = random.JoinParts("seed", kind, ownerID)
			profile.OwnerID = ownerID
			if err := store.PutProfile(ctx, profile); err != nil {
				return fmt.Errorf("put %s profile for %s: %w", kind, ownerID, err)
			}
			if len(fallbacks) > 0 {
				fmt.Printf("  %s %s fell back on %v\n", ownerID, kind, fallbacks)
			}
			if kind == "traveler" {
				factionCounts[profile.Fields["faction"]]++
			}
		}

		state := dice.NewAbilityState(ownerID, random.JoinParts(cfg.SeedText, "abilities", ownerID))
		if err := store.PutAbilityState(ctx, *state); err != nil {
			return fmt.Errorf("put abilities for %s: %w", ownerID, err)
		}

		if _, err := store.Credit(ctx, ownerID, cfg.StartingBalance); err != nil {
			return fmt.Errorf("fund wallet for %s: %w", ownerID, err)
		}
		if err := roster.Add(ownerID, now); err != nil {
			return fmt.Errorf("add %s to party: %w", ownerID, err)
		}
	}

	if err := store.PutRoster(ctx, roster); err != nil {
		return fmt.Errorf("put roster: %w", err)
	}

	fmt.Printf("seeded %d travelers with jobs, abilities, and %d coin each\n", cfg.Travelers, cfg.StartingBalance)
	fmt.Printf("party %q has %d active members\n", cfg.PartyID, len(roster.ActiveIdentities()))
	if dominant := alignment.Resolve(factionCounts); dominant != "" {
		fmt.Printf("dominant faction: %s (%d of %d)\n", dominant, factionCounts[dominant], cfg.Travelers)
	}
	return nil
}
