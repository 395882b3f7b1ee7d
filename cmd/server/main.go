// Package main runs the presale backend: it restores campaign timers and
// missed participation events on startup, then follows the program's event
// stream, keeping the database in step with the chain.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/inc4/meme-land-backend/internal/campaign"
	"github.com/inc4/meme-land-backend/internal/config"
	"github.com/inc4/meme-land-backend/internal/distribution"
	"github.com/inc4/meme-land-backend/internal/events"
	"github.com/inc4/meme-land-backend/internal/logging"
	"github.com/inc4/meme-land-backend/internal/observability"
	"github.com/inc4/meme-land-backend/internal/participation"
	"github.com/inc4/meme-land-backend/internal/presale"
	"github.com/inc4/meme-land-backend/internal/solana"
	"github.com/inc4/meme-land-backend/internal/storage/clickhouse"
	"github.com/inc4/meme-land-backend/internal/storage/migrations"
	"github.com/inc4/meme-land-backend/internal/storage/postgres"
)

func main() {
	logger, err := logging.New()
	if err != nil {
		os.Stderr.WriteString("build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage.
	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return err
	}

	campaignStore := postgres.NewCampaignStore(pool)
	participationStore := postgres.NewParticipationStore(pool)

	var archive participation.ArchiveSink
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		archive = clickhouse.NewParticipationArchive(conn)
	} else {
		logger.Info("clickhouse archive disabled")
	}

	// Chain clients.
	payer, err := solana.KeypairFromBase58(cfg.PayerKey)
	if err != nil {
		return err
	}

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)
	// The presale client owns its own retry budget, so its RPC transport
	// makes a single attempt per call.
	presaleRPC := solana.NewHTTPClient(cfg.RPCEndpoint, solana.WithMaxRetries(0))

	ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, nil, logger.Named("ws"))
	if err != nil {
		return err
	}
	defer ws.Close()

	gateway := presale.NewProgramGateway(presaleRPC, payer, cfg.ProgramID, cfg.VRFProgramID)
	chain := presale.NewClient(gateway, presaleRPC, cfg.ProgramID, cfg.VRFProgramID, nil, logger.Named("presale"))

	// Domain services.
	scheduler := campaign.NewScheduler(campaignStore, chain, cfg.ProgramID, logger.Named("scheduler"))
	campaignSvc := campaign.NewService(campaignStore, chain, scheduler, campaign.Durations{
		PresaleDuration:   cfg.PresaleDuration,
		DistributionDelay: cfg.DistributionDelay,
		DrawStartDelay:    cfg.DrawStartDelay,
		DrawDuration:      cfg.DrawDuration,
	}, cfg.TokenURI, logger.Named("campaign"))

	decoder := events.NewDecoder(logger.Named("decoder"))
	replayer := events.NewReplayer(rpc, decoder, cfg.ProgramID, nil, logger.Named("replay"))
	ingestor := participation.NewIngestor(participationStore, campaignStore, replayer, archive, logger.Named("ingestor"))
	assigner := distribution.NewAssigner(participationStore, campaignStore, chain, logger.Named("distribution"))

	router := &eventRouter{
		ingestor:  ingestor,
		campaigns: campaignSvc,
		assigner:  assigner,
		log:       logger.Named("router"),
	}

	// Subscribe before recovery so nothing emitted in between is lost; the
	// ingestor gates live events until its replay completes.
	notifications, err := ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{cfg.ProgramID}})
	if err != nil {
		return err
	}

	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	if err := ingestor.Start(ctx); err != nil {
		return err
	}

	metricsSrv := serveMetrics(cfg.MetricsAddr, logger)
	defer shutdownMetrics(metricsSrv, logger)

	logger.Info("server started",
		zap.String("programId", cfg.ProgramID),
		zap.String("metricsAddr", cfg.MetricsAddr))

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case notif, ok := <-notifications:
			if !ok {
				return errors.New("log subscription closed")
			}
			router.handle(ctx, notif, decoder)
		}
	}
}

// eventRouter fans decoded events out to the domain handlers.
type eventRouter struct {
	ingestor  *participation.Ingestor
	campaigns *campaign.Service
	assigner  *distribution.Assigner
	log       *zap.Logger
}

var _ events.Handler = (*eventRouter)(nil)

func (r *eventRouter) handle(ctx context.Context, notif solana.LogNotification, decoder *events.Decoder) {
	// Failed transactions emit logs too; their events never took effect.
	if notif.Err != nil {
		return
	}
	observability.RecordHighestSlot(notif.Slot)

	for _, ev := range decoder.DecodeLogs(notif.Logs, notif.Slot, notif.Signature) {
		if err := ev.Dispatch(ctx, r); err != nil {
			r.log.Error("event handling failed",
				zap.String("event", ev.Name()),
				zap.String("signature", notif.Signature),
				zap.Error(err))
		}
	}
}

func (r *eventRouter) HandleParticipate(ctx context.Context, ev *events.ParticipateEvent) error {
	return r.ingestor.HandleParticipate(ctx, ev)
}

func (r *eventRouter) HandleStatusChanged(ctx context.Context, ev *events.StatusChangedEvent) error {
	observability.RecordStatusTransition(string(ev.Status))
	return r.campaigns.ReconcileStatus(ctx, ev)
}

func (r *eventRouter) HandleCalculateDistribution(ctx context.Context, ev *events.CalculateDistributionEvent) error {
	return r.assigner.HandleCalculateDistribution(ctx, ev)
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

func shutdownMetrics(srv *http.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("metrics server shutdown", zap.Error(err))
	}
}
