package usecase

import (
	"context"
	"encoding/json"

	"TradeLens/internal/domain/models"
	domrepo "TradeLens/internal/domain/repository"
	pkgkafka "TradeLens/pkg/kafka"
	applogger "TradeLens/pkg/logger"
)

// ExecutionIngestor lands feed rows in the journal. Satisfied by the trades
// usecase directly or by the ingest pipeline wrapping it.
type ExecutionIngestor interface {
	Ingest(ctx context.Context, execs []*models.Execution) (*domrepo.BatchResult, error)
}

// KafkaExecutionsHandler consumes the executions feed topic and lands rows
// in the journal through the same ingest path as HTTP import: dedupe,
// version bump, cache flush, journal events.
type KafkaExecutionsHandler struct {
	topic  string
	trades ExecutionIngestor
	logger *applogger.Logger
}

func NewKafkaExecutionsHandler(topic string, trades ExecutionIngestor, logger *applogger.Logger) *KafkaExecutionsHandler {
	return &KafkaExecutionsHandler{topic: topic, trades: trades, logger: logger}
}

func (h *KafkaExecutionsHandler) Topic() string { return h.topic }

// Handle accepts one execution per message. Invalid payloads error so the
// consumer's retry/DLQ policy applies.
func (h *KafkaExecutionsHandler) Handle(ctx context.Context, b []byte) error {
	var req models.TradeWriteRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.logger.Warn("executions feed unmarshal failed", applogger.Error(err))
		return err
	}
	e, err := buildExecution(&req)
	if err != nil {
		h.logger.Warn("executions feed rejected row",
			applogger.String("symbol", req.Symbol), applogger.Error(err))
		return err
	}
	batch, err := h.trades.Ingest(ctx, []*models.Execution{e})
	if err != nil {
		return err
	}
	if batch.Duplicates > 0 {
		h.logger.Debug("executions feed duplicate skipped",
			applogger.String("symbol", e.Symbol))
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaExecutionsHandler)(nil)
