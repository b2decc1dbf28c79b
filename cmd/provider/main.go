// Package main is the Provider process entry point: serves the HTTP
// surface of spec.md §4.7 over an EIP-712 signing core.
package main

import (
	"context"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/sljivkov/ofz-bond-oracle/internal/cache"
	"github.com/sljivkov/ofz-bond-oracle/internal/config"
	"github.com/sljivkov/ofz-bond-oracle/internal/exchange"
	"github.com/sljivkov/ofz-bond-oracle/internal/httpapi"
	"github.com/sljivkov/ofz-bond-oracle/internal/nonce"
	"github.com/sljivkov/ofz-bond-oracle/internal/pricing"
	"github.com/sljivkov/ofz-bond-oracle/internal/signer"
)

func newLogger(level string, debug bool) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(level, debug))
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(writer).With().Timestamp().Logger()
}

func parseLevel(level string, debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return parsed
}

func main() {
	cfg, err := config.NewProviderConfig(config.WithEnvFile(".env"))
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.LogLevel, cfg.Debug)
	logger.Info().Msg("🚀 starting provider")

	if err := cfg.EnsureCacheDir(); err != nil {
		logger.Fatal().Err(err).Msg("❌ failed to prepare cache directory")
	}

	nonceStore, err := nonce.Open(cfg.NonceFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ failed to open nonce store")
	}

	var chainID *big.Int
	if cfg.ChainID != "" {
		chainID = mustParseChainID(cfg.ChainID)
	}

	sig, err := signer.New(cfg.GetPrivateKeyHex(), chainID, common.HexToAddress(cfg.BondOracleAddress), nonceStore, cfg.SignatureExpirySeconds)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ failed to initialize signer")
	}
	logger.Info().Str("signer_address", sig.Address().Hex()).Msg("🔑 signer ready")

	exchangeClient := exchange.New("https://iss.moex.com", 15*time.Second, logger)
	resolver := pricing.NewResolver(exchangeClient, nil)

	priceCache := cache.NewPriceCache(cfg.CacheDir+"/prices.json", time.Duration(cfg.CacheTTLSeconds)*time.Second)

	registryClient, err := newRegistryClient(context.Background(), cfg.EthRPCURL, cfg.BondOracleAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ failed to connect to chain RPC for bond registry lookups")
	}

	registeredBonds := cache.NewRegisteredBondCache(
		time.Duration(cfg.RegisteredBondsCacheTTL)*time.Second,
		func(ctx context.Context) (map[string]struct{}, error) {
			// Provider-side rescan intersects the exchange's active
			// instrument list with the contract's secidToBond registry,
			// matching Publisher-side discovery.Service's behaviour
			// but owned independently, per spec.md §4.9.
			return rescanAgainstContract(ctx, exchangeClient, registryClient)
		},
	)

	svc := httpapi.NewService(exchangeClient, resolver, sig, priceCache, registeredBonds, cfg.PriceScalingFactor, cfg.CacheTTLSeconds, logger)
	router := httpapi.NewRouter(svc)

	srv := &http.Server{
		Addr:    cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("📡 listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("❌ server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info().Msg("🛑 shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
