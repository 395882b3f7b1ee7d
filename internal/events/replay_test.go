package events

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inc4/meme-land-backend/internal/solana"
)

// mockRPC serves a canned transaction history newest-first.
type mockRPC struct {
	solana.RPCClient

	history []mockTx
	failTxs map[string]error
}

type mockTx struct {
	signature string
	slot      int64
	failed    bool
	logs      []string
}

func (m *mockRPC) GetSignaturesForAddress(_ context.Context, _ string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	start := 0
	if opts.Before != "" {
		for i, tx := range m.history {
			if tx.signature == opts.Before {
				start = i + 1
				break
			}
		}
	}

	end := start + opts.Limit
	if end > len(m.history) {
		end = len(m.history)
	}

	var sigs []solana.SignatureInfo
	for _, tx := range m.history[start:end] {
		info := solana.SignatureInfo{Signature: tx.signature, Slot: tx.slot}
		if tx.failed {
			info.Err = map[string]interface{}{"InstructionError": true}
		}
		sigs = append(sigs, info)
	}
	return sigs, nil
}

func (m *mockRPC) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if err := m.failTxs[signature]; err != nil {
		return nil, err
	}
	for _, tx := range m.history {
		if tx.signature == signature {
			return &solana.Transaction{
				Slot:      tx.slot,
				Signature: tx.signature,
				Meta:      &solana.TransactionMeta{LogMessages: tx.logs},
			}, nil
		}
	}
	return nil, nil
}

func participateLine(t *testing.T, name string) string {
	t.Helper()
	var p []byte
	p = appendStr(p, name)
	p = appendStr(p, "SYM")
	p = appendU64(p, 1_000_000_000)
	p = appendU64(p, 2_000_000_000)
	p = appendPubkey(p, 1)
	p = appendPubkey(p, 2)
	p = appendPubkey(p, 3)
	return dataLine("ParticipateEvent", p)
}

func fastConfig() *ReplayerConfig {
	return &ReplayerConfig{PageSize: 2, BatchSize: 500, RequestsPerSecond: 100000}
}

func TestReplayer_WalksUntilSinceSlot(t *testing.T) {
	rpc := &mockRPC{history: []mockTx{
		{signature: "s5", slot: 50, logs: []string{participateLine(t, "a")}},
		{signature: "s4", slot: 40, logs: []string{participateLine(t, "b")}},
		{signature: "s3", slot: 30, logs: []string{participateLine(t, "c")}},
		{signature: "s2", slot: 20, logs: []string{participateLine(t, "d")}},
		{signature: "s1", slot: 10, logs: []string{participateLine(t, "e")}},
	}}

	r := NewReplayer(rpc, NewDecoder(nil), "prog", fastConfig(), nil)

	var got []string
	err := r.Replay(context.Background(), 30, func(_ context.Context, batch []Event) error {
		for _, ev := range batch {
			got = append(got, ev.(*ParticipateEvent).TokenName)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got, "walk stops at the first tx older than sinceSlot")
}

func TestReplayer_FlushesAtBatchSize(t *testing.T) {
	var history []mockTx
	for i := 10; i > 0; i-- {
		history = append(history, mockTx{
			signature: fmt.Sprintf("s%d", i),
			slot:      int64(i),
			logs:      []string{participateLine(t, "x")},
		})
	}
	rpc := &mockRPC{history: history}

	cfg := fastConfig()
	cfg.BatchSize = 3
	r := NewReplayer(rpc, NewDecoder(nil), "prog", cfg, nil)

	var batches []int
	err := r.Replay(context.Background(), 0, func(_ context.Context, batch []Event) error {
		batches = append(batches, len(batch))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 3, 1}, batches)
}

func TestReplayer_SkipsFailedTransactions(t *testing.T) {
	rpc := &mockRPC{history: []mockTx{
		{signature: "s3", slot: 30, logs: []string{participateLine(t, "ok")}},
		{signature: "s2", slot: 20, failed: true, logs: []string{participateLine(t, "bad")}},
		{signature: "s1", slot: 10, logs: []string{participateLine(t, "ok2")}},
	}}

	r := NewReplayer(rpc, NewDecoder(nil), "prog", fastConfig(), nil)

	var got []string
	err := r.Replay(context.Background(), 0, func(_ context.Context, batch []Event) error {
		for _, ev := range batch {
			got = append(got, ev.(*ParticipateEvent).TokenName)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "ok2"}, got)
}

func TestReplayer_SingleFetchFailureSkipped(t *testing.T) {
	rpc := &mockRPC{
		history: []mockTx{
			{signature: "s3", slot: 30, logs: []string{participateLine(t, "a")}},
			{signature: "s2", slot: 20, logs: []string{participateLine(t, "b")}},
			{signature: "s1", slot: 10, logs: []string{participateLine(t, "c")}},
		},
		failTxs: map[string]error{"s2": errors.New("rpc timeout")},
	}

	r := NewReplayer(rpc, NewDecoder(nil), "prog", fastConfig(), nil)

	var got []string
	err := r.Replay(context.Background(), 0, func(_ context.Context, batch []Event) error {
		for _, ev := range batch {
			got = append(got, ev.(*ParticipateEvent).TokenName)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, got)
}

func TestReplayer_EmptyHistoryNoBatches(t *testing.T) {
	r := NewReplayer(&mockRPC{}, NewDecoder(nil), "prog", fastConfig(), nil)

	calls := 0
	err := r.Replay(context.Background(), 0, func(_ context.Context, _ []Event) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, calls, "onBatch may be called zero times")
}

func TestReplayer_BatchErrorPropagates(t *testing.T) {
	rpc := &mockRPC{history: []mockTx{
		{signature: "s1", slot: 10, logs: []string{participateLine(t, "a")}},
	}}

	r := NewReplayer(rpc, NewDecoder(nil), "prog", fastConfig(), nil)

	wantErr := errors.New("store down")
	err := r.Replay(context.Background(), 0, func(_ context.Context, _ []Event) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
}
