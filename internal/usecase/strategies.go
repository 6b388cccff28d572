package usecase

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"TradeLens/internal/domain/models"
	domrepo "TradeLens/internal/domain/repository"
	xhttp "TradeLens/pkg/http"
	applogger "TradeLens/pkg/logger"
	"TradeLens/pkg/ws"
)

// StrategiesUseCase manages strategy labels. Renames flow into cached
// analytics through the store version bump, so no explicit flush here.
type StrategiesUseCase struct {
	store  domrepo.StrategyStore
	events domrepo.EventPublisher
	hub    *ws.Hub
	logger *applogger.Logger
}

func NewStrategiesUseCase(store domrepo.StrategyStore, events domrepo.EventPublisher, hub *ws.Hub, logger *applogger.Logger) *StrategiesUseCase {
	return &StrategiesUseCase{store: store, events: events, hub: hub, logger: logger}
}

func (uc *StrategiesUseCase) List(ctx context.Context) ([]models.Strategy, error) {
	return uc.store.ListStrategies(ctx)
}

func (uc *StrategiesUseCase) Create(ctx context.Context, req *models.StrategyWriteRequest) (*models.Strategy, error) {
	st := strategyFromRequest(req)
	if st.Name == "" {
		return nil, xhttp.NewAppError("ERR_VALIDATION", "name", "name is required", http.StatusBadRequest)
	}
	id, err := uc.store.CreateStrategy(ctx, st)
	if err != nil {
		if errors.Is(err, domrepo.ErrDuplicate) {
			return nil, xhttp.NewAppError("ERR_VALIDATION", "name", "strategy name already exists", http.StatusBadRequest).
				WithParam("name", st.Name)
		}
		return nil, err
	}
	st.ID = id
	uc.changed(ctx)
	return st, nil
}

func (uc *StrategiesUseCase) Update(ctx context.Context, id int64, req *models.StrategyWriteRequest) (*models.Strategy, error) {
	st := strategyFromRequest(req)
	st.ID = id
	if st.Name == "" {
		return nil, xhttp.NewAppError("ERR_VALIDATION", "name", "name is required", http.StatusBadRequest)
	}
	if err := uc.store.UpdateStrategy(ctx, st); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, xhttp.NotFoundErrorf("strategy %d not found", id)
		case errors.Is(err, domrepo.ErrDuplicate):
			return nil, xhttp.NewAppError("ERR_VALIDATION", "name", "strategy name already exists", http.StatusBadRequest).
				WithParam("name", st.Name)
		}
		return nil, err
	}
	uc.changed(ctx)
	return st, nil
}

// Delete removes a strategy; executions that carried it fall back to
// unassigned.
func (uc *StrategiesUseCase) Delete(ctx context.Context, id int64) error {
	if err := uc.store.DeleteStrategy(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return xhttp.NotFoundErrorf("strategy %d not found", id)
		}
		return err
	}
	uc.changed(ctx)
	return nil
}

func (uc *StrategiesUseCase) changed(ctx context.Context) {
	ev := models.JournalEvent{Type: models.EventStrategyMutated, Count: 1, At: time.Now().UTC()}
	if s, ok := uc.store.(interface{ Version() uint64 }); ok {
		ev.Version = s.Version()
	}
	if uc.hub != nil {
		uc.hub.Broadcast(ev)
	}
	if uc.events != nil {
		if err := uc.events.Publish(ctx, ev); err != nil {
			uc.logger.Warn("strategy event publish failed", applogger.Error(err))
		}
	}
}

func strategyFromRequest(req *models.StrategyWriteRequest) *models.Strategy {
	return &models.Strategy{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Notes:       req.Notes,
		Color:       strings.TrimSpace(req.Color),
	}
}
