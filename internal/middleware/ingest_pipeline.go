package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradeLens/internal/domain/models"
	domrepo "TradeLens/internal/domain/repository"
)

// IngestSink is the downstream the pipeline forwards accepted executions to.
type IngestSink interface {
	Ingest(ctx context.Context, execs []*models.Execution) (*domrepo.BatchResult, error)
}

// IngestPipeline sits between the executions feed and the journal store. It
// validates rows, throttles per-symbol bursts, and buffers accepted rows when
// the store is unavailable so a short outage does not shed the feed. Flushing
// retries with backoff; the store dedupe makes redelivery harmless.
type IngestPipeline struct {
	sink     IngestSink
	recorder domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.Execution
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-symbol last accepted time
}

type PipelineOption func(*IngestPipeline)

// WithMaxRPS caps accepted executions per second per symbol. Zero disables
// the throttle.
func WithMaxRPS(n int) PipelineOption {
	return func(p *IngestPipeline) {
		p.maxRPS = n
	}
}

// WithBufferSize sets how many executions the outage buffer holds.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func NewIngestPipeline(sink IngestSink, recorder domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		sink:     sink,
		recorder: recorder,
		maxRPS:   20,
		bufSize:  1000,
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.Execution, p.bufSize)
	return p
}

// Start launches background flushing of buffered executions.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case e := <-p.bufCh:
				if e == nil {
					continue
				}
				if _, err := p.sink.Ingest(ctx, []*models.Execution{e}); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.recorder.RecordOperationError("ingest_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- e:
					default:
						p.recorder.RecordOperationError("ingest_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop halts the background flusher. Buffered executions stay queued; the
// store dedupe covers whatever the feed redelivers after restart.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Ingest validates and throttles the batch, then forwards what survived.
// Invalid rows fail the whole call so the consumer's retry/DLQ policy sees
// them; throttled rows are dropped silently.
func (p *IngestPipeline) Ingest(ctx context.Context, execs []*models.Execution) (*domrepo.BatchResult, error) {
	start := time.Now()

	accepted := make([]*models.Execution, 0, len(execs))
	for _, e := range execs {
		if err := validateExecution(e); err != nil {
			p.recorder.RecordOperationError("ingest_validate")
			return nil, err
		}
		if !p.allow(e.Symbol, start) {
			p.recorder.RecordOperationError("ingest_throttle")
			continue
		}
		accepted = append(accepted, e)
	}
	if len(accepted) == 0 {
		return &domrepo.BatchResult{}, nil
	}

	res, err := p.sink.Ingest(ctx, accepted)
	if err != nil {
		p.recorder.RecordOperationError("ingest_store")
		for _, e := range accepted {
			select {
			case p.bufCh <- e:
			default:
				p.recorder.RecordOperationError("ingest_buffer_full")
			}
		}
		return nil, fmt.Errorf("ingest downstream: %w", err)
	}
	p.recorder.RecordOperation("ingest_pipeline", time.Since(start).Seconds())
	return res, nil
}

func validateExecution(e *models.Execution) error {
	if e == nil {
		return fmt.Errorf("execution nil")
	}
	if e.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if e.Side != models.SideBuy && e.Side != models.SideSell {
		return fmt.Errorf("unknown side %q", e.Side)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	if e.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if e.Price < 0 {
		return fmt.Errorf("negative price")
	}
	return nil
}

func (p *IngestPipeline) allow(symbol string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[symbol]
	if last.IsZero() || now.Sub(last) >= time.Second/time.Duration(p.maxRPS) {
		p.lastSeen[symbol] = now
		return true
	}
	return false
}
