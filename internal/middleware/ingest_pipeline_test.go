package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"TradeLens/internal/domain/models"
	domrepo "TradeLens/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSink struct {
	mu       sync.Mutex
	got      []*models.Execution
	failNext int
}

func (s *stubSink) Ingest(_ context.Context, execs []*models.Execution) (*domrepo.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return nil, errors.New("store unavailable")
	}
	s.got = append(s.got, execs...)
	return &domrepo.BatchResult{Inserted: len(execs)}, nil
}

func (s *stubSink) received() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, float64) {}
func (nopRecorder) RecordOperationError(string)     {}
func (nopRecorder) RecordImport(int, int)           {}
func (nopRecorder) RecordPairsComputed(string, int) {}
func (nopRecorder) RecordCacheHit(string)           {}
func (nopRecorder) RecordCacheMiss(string)          {}
func (nopRecorder) SetExecutionsStored(int)         {}

func feedExec(symbol string) *models.Execution {
	return &models.Execution{
		Symbol: symbol, Side: models.SideBuy, Quantity: 10, Price: 100,
		Timestamp: time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC),
		OrderType: "MARKET", Status: models.StatusFilled,
	}
}

func TestPipelineForwardsValidExecution(t *testing.T) {
	sink := &stubSink{}
	p := NewIngestPipeline(sink, nopRecorder{})

	res, err := p.Ingest(context.Background(), []*models.Execution{feedExec("AAPL")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, sink.received())
}

func TestPipelineRejectsInvalidExecution(t *testing.T) {
	sink := &stubSink{}
	p := NewIngestPipeline(sink, nopRecorder{})

	bad := feedExec("AAPL")
	bad.Side = "HOLD"
	_, err := p.Ingest(context.Background(), []*models.Execution{bad})
	require.Error(t, err)
	assert.Zero(t, sink.received())

	zeroQty := feedExec("AAPL")
	zeroQty.Quantity = 0
	_, err = p.Ingest(context.Background(), []*models.Execution{zeroQty})
	assert.Error(t, err)
}

func TestPipelineThrottlesBursts(t *testing.T) {
	sink := &stubSink{}
	p := NewIngestPipeline(sink, nopRecorder{}, WithMaxRPS(1))
	ctx := context.Background()

	_, err := p.Ingest(ctx, []*models.Execution{feedExec("AAPL")})
	require.NoError(t, err)

	// Same symbol inside the window is dropped, a different one passes.
	res, err := p.Ingest(ctx, []*models.Execution{feedExec("AAPL")})
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)

	res, err = p.Ingest(ctx, []*models.Execution{feedExec("TSLA")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 2, sink.received())
}

func TestPipelineBuffersOnStoreFailureAndFlushes(t *testing.T) {
	sink := &stubSink{failNext: 1}
	p := NewIngestPipeline(sink, nopRecorder{}, WithBufferSize(4))
	ctx := context.Background()

	_, err := p.Ingest(ctx, []*models.Execution{feedExec("AAPL")})
	require.Error(t, err)
	assert.Zero(t, sink.received())

	p.Start(ctx)
	defer p.Stop()

	require.Eventually(t, func() bool { return sink.received() == 1 },
		2*time.Second, 10*time.Millisecond, "buffered execution should flush once the store recovers")
}

func TestPipelineStartStopIdempotent(t *testing.T) {
	p := NewIngestPipeline(&stubSink{}, nopRecorder{})
	ctx := context.Background()
	p.Start(ctx)
	p.Start(ctx)
	p.Stop()
	p.Stop()
}
