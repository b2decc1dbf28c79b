// Package main is the Publisher process entry point: runs the
// scheduled discover→compare→submit loop of spec.md §4.10.
package main

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/sljivkov/ofz-bond-oracle/internal/chain"
	"github.com/sljivkov/ofz-bond-oracle/internal/config"
	"github.com/sljivkov/ofz-bond-oracle/internal/discovery"
	"github.com/sljivkov/ofz-bond-oracle/internal/publish"
)

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(writer).With().Timestamp().Logger()
}

func main() {
	cfg, err := config.NewPublisherConfig(config.WithPublisherEnvFile(".env"))
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info().Msg("🚀 starting publisher")

	var chainID *big.Int
	if cfg.ChainID != "" {
		chainID = mustParseChainID(cfg.ChainID)
	}

	contractABI, err := chain.LoadABI(cfg.BondOracleABIPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ failed to load bond oracle abi")
	}

	ctx := context.Background()
	chainClient, err := chain.New(ctx, cfg.EthereumRPCURL, common.HexToAddress(cfg.BondOracleAddress), contractABI, cfg.GetPrivateKeyHex(), chainID)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ failed to connect to chain RPC")
	}
	chainClient.SetGasLimit(cfg.GasLimitUpdatePrice)
	if chainClient.IsPoA() {
		logger.Info().Msg("⚙️ PoA network detected, extraData tolerance applied")
	}

	if _, err := chainClient.CodeAt(ctx); err != nil {
		logger.Fatal().Err(err).Msg("❌ bond oracle contract not deployed at configured address")
	}

	providerClient := publish.NewProviderClient(cfg.OffchainProviderBaseURL, time.Duration(cfg.RequestsTimeoutSeconds)*time.Second)
	discoverySvc := discovery.New(providerClient, chainClient)

	txService := publish.NewTxService(chainClient, time.Duration(cfg.TxReceiptTimeoutSeconds)*time.Second)
	cycle := publish.NewCycle(discoverySvc, chainClient, providerClient, txService, cfg.PriceChangeThresholdPct, logger)

	// Run one cycle immediately on startup, matching publisher.py's
	// main() running an initial update cycle before handing off to
	// BlockingScheduler — otherwise the first on-chain update would wait
	// a full POLL_INTERVAL_SECONDS after every restart.
	if err := cycle.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("❌ initial publish cycle failed")
	}

	scheduler := publish.NewScheduler(cycle, cfg.PollIntervalSeconds, time.Duration(cfg.SchedulerMisfireGraceTime)*time.Second, logger)
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("❌ failed to start scheduler")
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-stopCtx.Done()

	logger.Info().Msg("🛑 shutting down")
	scheduler.Stop()
}

func mustParseChainID(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid CHAIN_ID: " + s)
	}
	return n
}
