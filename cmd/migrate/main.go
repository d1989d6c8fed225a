// Command migrate copies ledger files from a local directory into the
// configured store, rewriting them in the canonical format. It moves a
// file-backed install to GCS and upgrades tables written with localized
// headers or decimal amounts.
package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/Yuan922/MoneyMemoAI/internal/app"
	"github.com/Yuan922/MoneyMemoAI/internal/config"
	"github.com/Yuan922/MoneyMemoAI/internal/ledger"
	"github.com/Yuan922/MoneyMemoAI/internal/logger"
)

var (
	configPath = flag.String("config", "", "config file")
	fromDir    = flag.String("from", "", "directory holding expenses_<user>.csv files (required)")
	dryRun     = flag.Bool("dry-run", false, "report what would be migrated without writing")
)

// migration counts the outcome per ledger file.
type migration struct {
	Migrated  int
	Unchanged int
	Failed    int
}

func main() {
	flag.Parse()
	log := logger.New()

	if *fromDir == "" {
		log.Fatal().Msg("Error: -from flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx := logger.WithContext(context.Background(), log)
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	res, err := migrateLedgers(ctx, ledger.NewFileStore(*fromDir), a.Store, *dryRun, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	fmt.Printf("migrated=%d unchanged=%d failed=%d\n", res.Migrated, res.Unchanged, res.Failed)
	if res.Failed > 0 {
		os.Exit(1)
	}
}

// migrateLedgers copies every ledger in src to dst. A ledger whose canonical
// encoding already matches the destination is skipped. Per-user failures are
// logged and counted so one bad file does not stop the run.
func migrateLedgers(ctx context.Context, src *ledger.FileStore, dst ledger.Store, dryRun bool, log zerolog.Logger) (migration, error) {
	users, err := src.Users()
	if err != nil {
		return migration{}, err
	}

	log.Info().Int("ledgers", len(users)).Bool("dry_run", dryRun).Msg("Starting ledger migration")

	var res migration
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ulog := log.With().Str("user_id", userID).Logger()

		l, err := src.Load(ctx, userID)
		if err != nil {
			ulog.Error().Err(err).Msg("Failed to read source ledger")
			res.Failed++
			continue
		}
		srcSum, err := checksum(l)
		if err != nil {
			ulog.Error().Err(err).Msg("Failed to encode source ledger")
			res.Failed++
			continue
		}

		// Loading also primes the destination's concurrency token.
		existing, err := dst.Load(ctx, userID)
		if err != nil {
			ulog.Error().Err(err).Msg("Failed to read destination ledger")
			res.Failed++
			continue
		}
		if dstSum, err := checksum(existing); err == nil && existing.Len() > 0 && dstSum == srcSum {
			ulog.Debug().Msg("Destination already up to date")
			res.Unchanged++
			continue
		}

		if dryRun {
			ulog.Info().Int("records", l.Len()).Int("replacing", existing.Len()).Msg("[DRY RUN] Would migrate ledger")
			res.Migrated++
			continue
		}

		if err := dst.Save(ctx, userID, l); err != nil {
			ulog.Error().Err(err).Msg("Failed to write destination ledger")
			res.Failed++
			continue
		}
		ulog.Info().Int("records", l.Len()).Str("checksum", fmt.Sprintf("%x", srcSum[:8])).Msg("Migrated ledger")
		res.Migrated++
	}

	return res, nil
}

func checksum(l ledger.Ledger) ([32]byte, error) {
	var buf bytes.Buffer
	if err := ledger.Encode(&buf, l); err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(buf.Bytes()), nil
}
