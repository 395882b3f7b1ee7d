// Package main registers an admin wallet: it stores the wallet row with the
// admin flag set and submits the on-chain verified-user registration.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/inc4/meme-land-backend/internal/config"
	"github.com/inc4/meme-land-backend/internal/logging"
	"github.com/inc4/meme-land-backend/internal/presale"
	"github.com/inc4/meme-land-backend/internal/solana"
	"github.com/inc4/meme-land-backend/internal/storage/migrations"
	"github.com/inc4/meme-land-backend/internal/storage/postgres"
	"github.com/inc4/meme-land-backend/internal/wallet"
)

func main() {
	addr := flag.String("wallet", "", "base58 wallet address to register as admin")
	referrer := flag.String("referrer", "", "optional referrer wallet address")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall operation timeout")
	flag.Parse()

	logger, err := logging.New()
	if err != nil {
		os.Stderr.WriteString("build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	if *addr == "" {
		logger.Fatal("--wallet is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	payer, err := solana.KeypairFromBase58(cfg.PayerKey)
	if err != nil {
		logger.Fatal("parse payer key", zap.Error(err))
	}

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint, solana.WithMaxRetries(0))
	gateway := presale.NewProgramGateway(rpc, payer, cfg.ProgramID, cfg.VRFProgramID)
	chain := presale.NewClient(gateway, rpc, cfg.ProgramID, cfg.VRFProgramID, nil, logger)

	svc := wallet.NewService(postgres.NewWalletStore(pool), chain, logger)

	w, err := svc.AddSingle(ctx, *addr, *referrer, true)
	if err != nil {
		logger.Fatal("register admin", zap.Error(err))
	}

	logger.Info("admin registered",
		zap.String("wallet", w.Wallet),
		zap.String("inviteCode", w.InviteCode))
}
