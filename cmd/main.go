package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kouhin/envflag"
	"github.com/vechain/vouchledger/cmd/vouchledger"
	"github.com/vechain/vouchledger/config"
	"github.com/vechain/vouchledger/types"
)

var (
	adminFlag       = flag.String("admin", "", "ledger admin principal, only read for a new journal (env var: ADMIN)")
	thorFlag        = flag.String("thor-url", config.DefaultThorURL, "thor node URL to take block heights from, local clock if empty (env var: THOR_URL)")
	intervalFlag    = flag.Duration("block-interval", config.DefaultBlockInterval, "block polling interval (env var: BLOCK_INTERVAL)")
	maxTxsFlag      = flag.Int("max-block-txs", 0, "max transactions per block, 0 for no limit (env var: MAX_BLOCK_TXS)")
	influxUrlFlag   = flag.String("influx-url", config.DefaultInfluxDB, "influxdb URL, (env var: INFLUX_URL)")
	influxTokenFlag = flag.String("influx-token", config.DefaultInfluxToken, "influxdb auth token, (env var: INFLUX_TOKEN)")
	influxOrg       = flag.String("influx-org", config.DefaultInfluxOrg, "influxdb organization, (env var: INFLUX_ORG)")
	influxBucket    = flag.String("influx-bucket", config.DefaultInfluxBucket, "influxdb bucket, (env var: INFLUX_BUCKET)")
	journalFlag     = flag.String("journal-path", config.DefaultJournalPath, "sqlite journal file path, (env var: JOURNAL_PATH)")
	rosterFlag      = flag.String("roster-path", "", "excel roster imported into a new ledger, (env var: ROSTER_PATH)")

	minStakeFlag     = flag.Uint64("min-stake", config.DefaultMinStakeAmount, "initial minimum stake (env var: MIN_STAKE)")
	maxStakeFlag     = flag.Uint64("max-stake", config.DefaultMaxStakeAmount, "initial maximum stake (env var: MAX_STAKE)")
	lockPeriodFlag   = flag.Uint64("stake-lock-period", config.DefaultStakeLockPeriod, "initial stake lock period in blocks (env var: STAKE_LOCK_PERIOD)")
	decayFlag        = flag.Uint64("score-decay-factor", config.DefaultScoreDecayFactor, "initial score decay factor (env var: SCORE_DECAY_FACTOR)")
	minEndorsersFlag = flag.Uint64("min-endorsers", config.DefaultMinEndorsers, "initial minimum endorsers (env var: MIN_ENDORSERS)")
	maxEndorsersFlag = flag.Uint64("max-endorsers-per-user", config.DefaultMaxEndorsersPerUser, "initial endorsement limit per endorser (env var: MAX_ENDORSERS_PER_USER)")
	thresholdFlag    = flag.Uint64("score-threshold", config.DefaultScoreThreshold, "initial score threshold (env var: SCORE_THRESHOLD)")
	verificationFlag = flag.Bool("verification-required", config.DefaultVerificationRequired, "require verified endorsers (env var: VERIFICATION_REQUIRED)")
)

func main() {
	if err := parseFlags(); err != nil {
		slog.Error("failed to parse flags", "error", err)
		flag.PrintDefaults()
		os.Exit(1)
	}
	ctx := exitContext()

	cmd, err := vouchledger.New(ctx, vouchledger.Options{
		Admin: types.Principal(*adminFlag),
		Params: types.Params{
			MinStakeAmount:       *minStakeFlag,
			MaxStakeAmount:       *maxStakeFlag,
			StakeLockPeriod:      *lockPeriodFlag,
			ScoreDecayFactor:     *decayFlag,
			MinEndorsers:         *minEndorsersFlag,
			MaxEndorsersPerUser:  *maxEndorsersFlag,
			ScoreThreshold:       *thresholdFlag,
			VerificationRequired: *verificationFlag,
		},
		ThorURL:        *thorFlag,
		BlockInterval:  *intervalFlag,
		MaxTxsPerBlock: *maxTxsFlag,
		InfluxURL:      *influxUrlFlag,
		InfluxToken:    *influxTokenFlag,
		InfluxOrg:      *influxOrg,
		InfluxBucket:   *influxBucket,
		JournalPath:    *journalFlag,
		RosterPath:     *rosterFlag,
	})
	if err != nil {
		slog.Error("failed to create vouchledger command", "error", err)
		os.Exit(1)
	}
	cmd.Run()
	if err := cmd.Wait(); err != nil {
		slog.Error("vouchledger failed", "error", err)
	}
	if err := cmd.Stop(); err != nil {
		slog.Error("failed to stop vouchledger", "error", err)
		os.Exit(1)
	}
}

func parseFlags() error {
	if err := envflag.Parse(); err != nil {
		return err
	}

	if *adminFlag == "" {
		return errors.New(config.ErrAdminRequired)
	}
	if *influxTokenFlag == "" {
		return errors.New(config.ErrInfluxTokenRequired)
	}
	if *thorFlag == config.DefaultThorURL {
		slog.Warn("thor node URL not set via flag or env, heights follow the local clock", "interval", *intervalFlag)
	}
	if *influxUrlFlag == config.DefaultInfluxDB {
		slog.Warn("influxdb URL not set via flag or env, using default", "url", config.DefaultInfluxDB)
	}
	return nil
}

func exitContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		slog.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}
