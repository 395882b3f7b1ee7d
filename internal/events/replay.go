package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/inc4/meme-land-backend/internal/observability"
	"github.com/inc4/meme-land-backend/internal/solana"
)

// Default replay tuning.
const (
	DefaultReplayPageSize  = 100
	DefaultReplayBatchSize = 500
	DefaultReplayRPS       = 10
)

// ReplayerConfig tunes the history walk.
type ReplayerConfig struct {
	// PageSize is the signature page size for history pagination.
	PageSize int
	// BatchSize is the number of events accumulated before a flush.
	BatchSize int
	// RequestsPerSecond caps the RPC call rate against the provider.
	RequestsPerSecond int
}

// Replayer walks a program's transaction history newest-first and replays
// decoded events in batches.
type Replayer struct {
	rpc       solana.RPCClient
	decoder   *Decoder
	programID string
	pageSize  int
	batchSize int
	limiter   *rate.Limiter
	log       *zap.Logger
}

// NewReplayer builds a replayer over the finalized history of programID.
func NewReplayer(rpc solana.RPCClient, decoder *Decoder, programID string, config *ReplayerConfig, log *zap.Logger) *Replayer {
	cfg := ReplayerConfig{
		PageSize:          DefaultReplayPageSize,
		BatchSize:         DefaultReplayBatchSize,
		RequestsPerSecond: DefaultReplayRPS,
	}
	if config != nil {
		if config.PageSize > 0 {
			cfg.PageSize = config.PageSize
		}
		if config.BatchSize > 0 {
			cfg.BatchSize = config.BatchSize
		}
		if config.RequestsPerSecond > 0 {
			cfg.RequestsPerSecond = config.RequestsPerSecond
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Replayer{
		rpc:       rpc,
		decoder:   decoder,
		programID: programID,
		pageSize:  cfg.PageSize,
		batchSize: cfg.BatchSize,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		log:       log,
	}
}

// Replay walks transaction history newest-first, decoding events from every
// finalized transaction at or after sinceSlot, and flushes them to onBatch in
// batches. onBatch may be called zero or more times, including with a final
// partial batch. A single transaction that fails to fetch or decode is logged
// and skipped; the walk continues.
func (r *Replayer) Replay(ctx context.Context, sinceSlot int64, onBatch func(ctx context.Context, batch []Event) error) error {
	var (
		batch  []Event
		cursor string
		total  int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := onBatch(ctx, batch); err != nil {
			return fmt.Errorf("apply batch: %w", err)
		}
		observability.RecordEventsRecovered(len(batch))
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		sigs, err := r.rpc.GetSignaturesForAddress(ctx, r.programID, &solana.SignaturesOpts{
			Before: cursor,
			Limit:  r.pageSize,
		})
		if err != nil {
			return fmt.Errorf("fetch signatures before %q: %w", cursor, err)
		}
		observability.RecordReplayPage()
		if len(sigs) == 0 {
			break
		}

		for _, sig := range sigs {
			// History is newest-first: the first transaction older than
			// sinceSlot terminates the walk.
			if sig.Slot < sinceSlot {
				if err := flush(); err != nil {
					return err
				}
				r.log.Info("replay complete",
					zap.Int64("sinceSlot", sinceSlot),
					zap.Int("events", total))
				return nil
			}

			if sig.Err != nil {
				continue
			}

			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}

			tx, err := r.rpc.GetTransaction(ctx, sig.Signature)
			if err != nil {
				r.log.Warn("skipping transaction",
					zap.String("signature", sig.Signature),
					zap.Error(err))
				continue
			}
			if tx == nil || tx.Meta == nil || tx.Meta.Err != nil {
				continue
			}

			batch = append(batch, r.decoder.DecodeLogs(tx.Meta.LogMessages, tx.Slot, sig.Signature)...)

			if len(batch) >= r.batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}

		cursor = sigs[len(sigs)-1].Signature
		if len(sigs) < r.pageSize {
			break
		}
	}

	if err := flush(); err != nil {
		return err
	}
	r.log.Info("replay complete",
		zap.Int64("sinceSlot", sinceSlot),
		zap.Int("events", total))
	return nil
}
