package usecase

import (
	"context"
	"fmt"
	"time"

	"TradeLens/internal/domain/models"
	domrepo "TradeLens/internal/domain/repository"
	domsvc "TradeLens/internal/domain/service"
	pkgcache "TradeLens/pkg/cache"
	applogger "TradeLens/pkg/logger"
	"TradeLens/pkg/queue"
)

// Job message types enqueued after journal writes.
const (
	JobAnalyticsWarmup = "analytics.warmup"
	JobArchiveSync     = "archive.sync"
)

// WarmupPayload pins the journal version that triggered the warmup.
type WarmupPayload struct {
	Version uint64 `json:"version"`
}

// ArchiveSyncPayload pins the journal version that triggered the export.
type ArchiveSyncPayload struct {
	Version uint64 `json:"version"`
}

// warmupLockTTL covers a crashed worker; the normal path unlocks on return.
const warmupLockTTL = time.Minute

// WarmupJob precomputes the common unbounded FIFO views after a bulk write
// so the first dashboard load after an import hits warm cache.
type WarmupJob struct {
	analytics     *AnalyticsUseCase
	locks         pkgcache.Service
	logger        *applogger.Logger
	concentration float64
}

func NewWarmupJob(analytics *AnalyticsUseCase, logger *applogger.Logger) *WarmupJob {
	return &WarmupJob{analytics: analytics, logger: logger, concentration: 10}
}

// SetDefaultConcentration pins the top-percent value the distribution warm
// call primes. It should match the request-model default so the first
// dashboard load hits the warmed key.
func (j *WarmupJob) SetDefaultConcentration(p float64) {
	if p > 0 {
		j.concentration = p
	}
}

// SetSingleFlight makes concurrent workers skip a version another worker is
// already warming.
func (j *WarmupJob) SetSingleFlight(c pkgcache.Service) {
	j.locks = c
}

func (j *WarmupJob) Name() string { return "analytics-warmup" }
func (j *WarmupJob) Type() string { return JobAnalyticsWarmup }

func (j *WarmupJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[WarmupPayload](payload)
	if err != nil {
		return fmt.Errorf("warmup payload: %w", err)
	}
	// A newer write queued its own warmup; computing against this stale
	// version would only cache entries nobody will read.
	if current := j.analytics.store.Version(); current != p.Version {
		j.logger.Debug("warmup skipped, journal moved on",
			applogger.Any("queued_version", p.Version),
			applogger.Any("current_version", current))
		return nil
	}

	if j.locks != nil {
		key := fmt.Sprintf("%s:warmup:lock:%d", analyticsKeyPrefix, p.Version)
		if ok, err := j.locks.TryLock(ctx, key, warmupLockTTL); err == nil && !ok {
			j.logger.Debug("warmup already in flight", applogger.Any("version", p.Version))
			return nil
		}
		// TTL covers the unlock failing on a canceled context.
		defer func() {
			if err := j.locks.Unlock(ctx, key); err != nil {
				j.logger.Warn("warmup unlock failed", applogger.Error(err))
			}
		}()
	}

	base := &models.AnalyticsRangeRequest{}
	if _, err := j.analytics.ComputeMetrics(ctx, base); err != nil {
		return fmt.Errorf("warm metrics: %w", err)
	}
	if _, err := j.analytics.ComputeEvaluationMetrics(ctx, base); err != nil {
		return fmt.Errorf("warm evaluation: %w", err)
	}
	if _, err := j.analytics.ComputeDistributionConcentration(ctx, &models.DistributionRequest{ConcentrationPercent: j.concentration}); err != nil {
		return fmt.Errorf("warm distribution: %w", err)
	}
	if _, err := j.analytics.ComputeTiltMetric(ctx, base); err != nil {
		return fmt.Errorf("warm tilt: %w", err)
	}
	return nil
}

// ArchiveSyncJob re-derives the full FIFO pairing and exports it to the
// warehouse sink.
type ArchiveSyncJob struct {
	store   domrepo.ExecutionStore
	matcher domsvc.LotMatcher
	archive domrepo.ArchiveSink
	logger  *applogger.Logger
}

func NewArchiveSyncJob(store domrepo.ExecutionStore, matcher domsvc.LotMatcher, archive domrepo.ArchiveSink, logger *applogger.Logger) *ArchiveSyncJob {
	return &ArchiveSyncJob{store: store, matcher: matcher, archive: archive, logger: logger}
}

func (j *ArchiveSyncJob) Name() string { return "archive-sync" }
func (j *ArchiveSyncJob) Type() string { return JobArchiveSync }

func (j *ArchiveSyncJob) Handle(ctx context.Context, payload interface{}) error {
	if _, err := queue.ParsePayload[ArchiveSyncPayload](payload); err != nil {
		return fmt.Errorf("archive payload: %w", err)
	}
	// No warehouse configured; the enqueue side does not know that.
	if j.archive == nil {
		return nil
	}
	execs, err := j.store.ListFilled(ctx)
	if err != nil {
		return fmt.Errorf("archive snapshot: %w", err)
	}
	res := j.matcher.Pair(execs, models.PairingFIFO, nil, nil)
	if err := j.archive.ArchivePairs(ctx, models.PairingFIFO, res.Pairs); err != nil {
		return err
	}
	j.logger.Info("pair archive synced", applogger.Int("pairs", len(res.Pairs)))
	return nil
}

var (
	_ queue.Job = (*WarmupJob)(nil)
	_ queue.Job = (*ArchiveSyncJob)(nil)
)
