// chainctl works on credential ledger snapshots from the command
// line: validate a saved chain, print its blocks, mine a synthetic
// one under load, or mint an admin token for the server config. It
// never talks to a running server; everything here operates on the
// snapshot file directly.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"credchain/internal/chain"
	"credchain/internal/platform/secrets"
	"credchain/internal/sim"
	"credchain/internal/snapshot"
	"credchain/pkg/platform/sentinel"
)

func main() {
	app := &cli.App{
		Name:  "chainctl",
		Usage: "inspect and exercise credential ledger snapshots",
		Commands: []*cli.Command{
			validateCommand(),
			showCommand(),
			simulateCommand(),
			tokenCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		color.Red("✗ %v", err)
		os.Exit(1)
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "check a snapshot's hashes, links and proof-of-work",
		Flags: append(snapshotFlags(),
			&cli.IntFlag{
				Name:  "difficulty",
				Value: chain.DefaultDifficulty,
				Usage: "proof-of-work target the chain was mined at",
			},
		),
		Action: func(c *cli.Context) error {
			blocks, err := loadBlocks(c.Context, c.String("snapshot"), c.String("passphrase"))
			if err != nil {
				return err
			}
			valid, err := chain.ValidateBlocks(c.Context, blocks, c.Int("difficulty"))
			if err != nil {
				return err
			}
			if !valid {
				return fmt.Errorf("chain does not validate (%d blocks, difficulty %d)", len(blocks), c.Int("difficulty"))
			}
			color.Green("✓ chain valid (%d blocks, difficulty %d)", len(blocks), c.Int("difficulty"))
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "print the blocks in a snapshot",
		Flags: append(snapshotFlags(),
			&cli.Int64Flag{
				Name:  "index",
				Value: -1,
				Usage: "print a single block as JSON instead of the listing",
			},
		),
		Action: func(c *cli.Context) error {
			blocks, err := loadBlocks(c.Context, c.String("snapshot"), c.String("passphrase"))
			if err != nil {
				return err
			}
			if idx := c.Int64("index"); idx >= 0 {
				return printBlock(blocks, uint64(idx))
			}
			printListing(blocks)
			return nil
		},
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "mine a synthetic chain under load and report latencies",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "holders",
				Value: 4,
				Usage: "number of concurrent credential issuers",
			},
			&cli.IntFlag{
				Name:  "credentials",
				Value: 8,
				Usage: "credential blocks each holder mines",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "mean gap between one holder's appends (0 mines flat out)",
			},
			&cli.IntFlag{
				Name:  "proofs",
				Value: 32,
				Usage: "proof artifacts to generate and verify",
			},
			&cli.IntFlag{
				Name:  "conc-proofs",
				Value: 4,
				Usage: "number of concurrent proof generations",
			},
			&cli.IntFlag{
				Name:  "difficulty",
				Value: chain.DefaultDifficulty,
				Usage: "proof-of-work target for the simulated chain",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log every mined block",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
			defer stop()

			// Diagnostics go to stderr so the report stays clean on
			// stdout.
			level := slog.LevelWarn
			if c.Bool("verbose") {
				level = slog.LevelInfo
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			res, err := sim.Run(ctx, sim.Config{
				Holders:              c.Int("holders"),
				CredentialsPerHolder: c.Int("credentials"),
				MeanIssueInterval:    c.Duration("interval"),
				Proofs:               c.Int("proofs"),
				ProofConcurrency:     c.Int("conc-proofs"),
				Difficulty:           c.Int("difficulty"),
			}, logger)
			if err != nil {
				return err
			}

			color.Green("✓ simulation finished in %v", res.Elapsed.Round(time.Millisecond))
			fmt.Printf("  blocks mined:    %d (chain valid: %v)\n", res.Blocks, res.Valid)
			fmt.Printf("  proofs verified: %d\n", res.Proofs)
			printLatency("mining", res.Mining)
			printLatency("proving", res.Proving)
			return nil
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "mint an admin token and the bcrypt hash the server stores",
		Action: func(c *cli.Context) error {
			token, err := secrets.NewToken()
			if err != nil {
				return err
			}
			hash, err := secrets.Hash(token)
			if err != nil {
				return err
			}
			color.Yellow("admin token (shown once): %s", token)
			fmt.Printf("CREDCHAIN_ADMIN_TOKEN_HASH=%s\n", hash)
			return nil
		},
	}
}

func snapshotFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "snapshot",
			Usage:    "path of the snapshot file",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "passphrase",
			Usage: "unseal an encrypted snapshot",
		},
	}
}

// loadBlocks reads and decodes a snapshot file, unsealing it first
// when a passphrase is given.
func loadBlocks(ctx context.Context, path, passphrase string) ([]chain.Block, error) {
	var store snapshot.Store
	store, err := snapshot.NewFileStore(path)
	if err != nil {
		return nil, err
	}
	if passphrase != "" {
		store, err = snapshot.NewSealedStore(store, passphrase)
		if err != nil {
			return nil, err
		}
	}
	blob, err := store.Load(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("no snapshot at %s", path)
	}
	if err != nil {
		return nil, err
	}
	blocks, err := chain.DecodeBlocks(blob)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, errors.New("snapshot holds no blocks")
	}
	return blocks, nil
}

func printBlock(blocks []chain.Block, index uint64) error {
	for _, b := range blocks {
		if b.Index != index {
			continue
		}
		out, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	return fmt.Errorf("no block with index %d", index)
}

func printListing(blocks []chain.Block) {
	revoked := revokedSet(blocks)
	for _, b := range blocks {
		line := fmt.Sprintf("#%-4d %-14s %s  %s  %s",
			b.Index,
			b.Payload.Kind(),
			time.Unix(0, b.Timestamp).UTC().Format(time.RFC3339),
			shortHash(b.Hash),
			describePayload(b.Payload),
		)
		switch {
		case revoked[b.Index]:
			color.Red("%s  [revoked]", line)
		case b.Payload.Kind() == chain.KindGenesis:
			color.Cyan("%s", line)
		case b.Payload.Kind() == chain.KindRevocation:
			color.Yellow("%s", line)
		default:
			fmt.Println(line)
		}
	}
	fmt.Printf("%d blocks\n", len(blocks))
}

func revokedSet(blocks []chain.Block) map[uint64]bool {
	revoked := make(map[uint64]bool)
	for _, b := range blocks {
		if p, ok := b.Payload.(chain.RevocationPayload); ok {
			revoked[p.TargetIndex] = true
		}
	}
	return revoked
}

func describePayload(p chain.Payload) string {
	switch v := p.(type) {
	case chain.GenesisPayload:
		return v.Note
	case chain.CredentialPayload:
		return v.Record.Attribute
	case chain.CredentialSetPayload:
		if v.SubjectLabel != "" {
			return fmt.Sprintf("%s (%d records)", v.SubjectLabel, len(v.Records))
		}
		return fmt.Sprintf("%d records", len(v.Records))
	case chain.RevocationPayload:
		if v.Reason != "" {
			return fmt.Sprintf("revokes #%d: %s", v.TargetIndex, v.Reason)
		}
		return fmt.Sprintf("revokes #%d", v.TargetIndex)
	default:
		return ""
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func printLatency(label string, s sim.LatencyStats) {
	if s.Count == 0 {
		fmt.Printf("  %-8s no observations\n", label)
		return
	}
	fmt.Printf("  %-8s n=%-4d min=%v median=%v p95=%v max=%v mean=%v\n",
		label, s.Count,
		roundLatency(s.Min), roundLatency(s.Median), roundLatency(s.P95),
		roundLatency(s.Max), roundLatency(s.Mean))
}

func roundLatency(d time.Duration) time.Duration {
	return d.Round(10 * time.Microsecond)
}
