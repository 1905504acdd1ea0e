// Command facilitatord runs the x402 facilitator as an HTTP service.
// Configuration comes from the environment:
//
//	FACILITATOR_LISTEN_ADDR  listen address (default ":8402")
//	FACILITATOR_NETWORK      network identifier (default "base-sepolia")
//	FACILITATOR_RPC_URL      EVM node RPC endpoint (required)
//	FACILITATOR_PRIVATE_KEY  hex private key for the submitting credential
//	FACILITATOR_KEYSTORE     keystore file path (alternative to private key)
//	FACILITATOR_KEYSTORE_PASSWORD
//	FACILITATOR_MNEMONIC     BIP39 mnemonic (alternative to private key)
//	FACILITATOR_AUTH_TOKEN   optional bearer token for the HTTP surface
//	FACILITATOR_GAS_POLICY   "fixed" (default) or "estimate"
//	FACILITATOR_GAS_LIMIT    gas ceiling for the fixed policy
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	facilitator "github.com/mark3labs/x402-facilitator"
	"github.com/mark3labs/x402-facilitator/evm"
	facilitatorhttp "github.com/mark3labs/x402-facilitator/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("facilitatord exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	networkID := envOr("FACILITATOR_NETWORK", "base-sepolia")
	chain, ok := facilitator.ChainByNetwork(networkID)
	if !ok {
		return errors.New("unsupported network: " + networkID)
	}

	rpcURL := os.Getenv("FACILITATOR_RPC_URL")
	if rpcURL == "" {
		return errors.New("FACILITATOR_RPC_URL required")
	}

	signer, err := loadSigner()
	if err != nil {
		return err
	}

	backend, err := evm.Dial(rpcURL)
	if err != nil {
		return err
	}
	defer backend.Close()

	ledger, err := evm.NewClient(
		backend,
		common.HexToAddress(chain.USDCAddress),
		signer,
		chain.ChainID,
		evm.WithGasPolicy(gasPolicyFromEnv()),
	)
	if err != nil {
		return err
	}

	f, err := facilitator.New(
		facilitator.WithChain(chain),
		facilitator.WithLedger(ledger),
		facilitator.WithSigner(signer),
		facilitator.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(facilitatorhttp.RequireAuthorization(os.Getenv("FACILITATOR_AUTH_TOKEN")))
	r.Mount("/", facilitatorhttp.NewHandler(f).Router())

	addr := envOr("FACILITATOR_LISTEN_ADDR", ":8402")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("facilitator listening", "addr", addr, "network", networkID, "signer", signer.Address().Hex())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadSigner builds the submitting credential from whichever key source
// the environment provides.
func loadSigner() (*evm.Signer, error) {
	if key := os.Getenv("FACILITATOR_PRIVATE_KEY"); key != "" {
		return evm.NewSigner(evm.WithPrivateKey(key))
	}
	if path := os.Getenv("FACILITATOR_KEYSTORE"); path != "" {
		return evm.NewSigner(evm.WithKeystore(path, os.Getenv("FACILITATOR_KEYSTORE_PASSWORD")))
	}
	if mnemonic := os.Getenv("FACILITATOR_MNEMONIC"); mnemonic != "" {
		return evm.NewSigner(evm.WithMnemonic(mnemonic, 0))
	}
	return nil, errors.New("one of FACILITATOR_PRIVATE_KEY, FACILITATOR_KEYSTORE or FACILITATOR_MNEMONIC required")
}

func gasPolicyFromEnv() evm.GasPolicy {
	if os.Getenv("FACILITATOR_GAS_POLICY") == "estimate" {
		return evm.EstimateGasPolicy{}
	}
	limit := evm.DefaultSettleGasLimit
	if raw := os.Getenv("FACILITATOR_GAS_LIMIT"); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return evm.FixedGasPolicy{Limit: limit}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
