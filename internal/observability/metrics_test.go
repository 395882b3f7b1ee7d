package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// Counters are process-global, so every assertion measures a delta.

func TestRecordCounters(t *testing.T) {
	decoded := DefaultMetrics.EventsDecoded.WithLabelValues("ParticipateEvent")
	before := testutil.ToFloat64(decoded)
	RecordEventDecoded("ParticipateEvent")
	RecordEventDecoded("ParticipateEvent")
	assert.Equal(t, before+2, testutil.ToFloat64(decoded))

	before = testutil.ToFloat64(DefaultMetrics.EventDecodeErrors)
	RecordDecodeError()
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.EventDecodeErrors))

	skipped := DefaultMetrics.ParticipationsSkipped.WithLabelValues("duplicate")
	before = testutil.ToFloat64(skipped)
	RecordParticipationSkipped("duplicate")
	assert.Equal(t, before+1, testutil.ToFloat64(skipped))

	before = testutil.ToFloat64(DefaultMetrics.ReplayEventsRecovered)
	RecordEventsRecovered(37)
	assert.Equal(t, before+37, testutil.ToFloat64(DefaultMetrics.ReplayEventsRecovered))

	before = testutil.ToFloat64(DefaultMetrics.ReplayPagesFetched)
	RecordReplayPage()
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.ReplayPagesFetched))

	exhausted := DefaultMetrics.RetryExhausted.WithLabelValues("setStatus")
	before = testutil.ToFloat64(exhausted)
	RecordRetryExhausted("setStatus")
	assert.Equal(t, before+1, testutil.ToFloat64(exhausted))

	submitted := DefaultMetrics.TxSubmitted.WithLabelValues("createToken")
	before = testutil.ToFloat64(submitted)
	RecordTxSubmitted("createToken")
	assert.Equal(t, before+1, testutil.ToFloat64(submitted))

	before = testutil.ToFloat64(DefaultMetrics.WSReconnects)
	RecordWSReconnect()
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.WSReconnects))

	before = testutil.ToFloat64(DefaultMetrics.PositionsAssigned)
	RecordPositionsAssigned(100)
	assert.Equal(t, before+100, testutil.ToFloat64(DefaultMetrics.PositionsAssigned))

	before = testutil.ToFloat64(DefaultMetrics.DrawsCompleted)
	RecordDrawCompleted()
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.DrawsCompleted))
}

func TestRecordRPCCall(t *testing.T) {
	failures := DefaultMetrics.RPCCallErrors.WithLabelValues("getTransaction")
	before := testutil.ToFloat64(failures)

	RecordRPCCall("getTransaction", 0.05, nil)
	assert.Equal(t, before, testutil.ToFloat64(failures))

	RecordRPCCall("getTransaction", 0.05, errors.New("rate limited"))
	assert.Equal(t, before+1, testutil.ToFloat64(failures))
}

func TestTimerGauge(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.ArmedTimers)

	RecordTimerArmed()
	RecordTimerArmed()
	assert.Equal(t, before+2, testutil.ToFloat64(DefaultMetrics.ArmedTimers))

	RecordTimerDone()
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.ArmedTimers))
}

func TestRecordHighestSlot(t *testing.T) {
	RecordHighestSlot(253104211)
	assert.Equal(t, float64(253104211), testutil.ToFloat64(DefaultMetrics.HighestSlotSeen))
}
