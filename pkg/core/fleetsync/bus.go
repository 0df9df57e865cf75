package fleetsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

// BusOptions configures the bus document sync
type BusOptions struct {
	// SkipOrderSweep leaves the maintenance order flag to the order hook
	SkipOrderSweep bool
}

// SyncBusDocuments recomputes the derived status of every bus that is not
// decommissioned. Overdue documents always count; in-progress maintenance
// orders count unless opts.SkipOrderSweep is set. Only state changes are
// reported as transitions; flag-only changes are written silently.
func SyncBusDocuments(ctx context.Context, store db.BusStatusStore, logger *zap.Logger, today time.Time, opts BusOptions) (*Summary, error) {
	today = model.Day(today)
	summary := newSummary(JobBusDocuments, today)

	buses, err := store.ListBuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buses: %w", err)
	}

	logger.Debug("Checking bus documents",
		zap.Int("buses", len(buses)),
		zap.String("today", model.FormatDate(today)),
		zap.Bool("order_sweep", !opts.SkipOrderSweep))

	for i := range buses {
		bus := &buses[i]
		if bus.State == model.BusDecommissioned {
			continue
		}

		var orders []model.MaintenanceOrder
		if !opts.SkipOrderSweep {
			orders, err = store.ListMaintenanceOrders(ctx, bus.ID)
			if err != nil {
				summary.skip(logger, "bus", bus.ID, fmt.Errorf("failed to list maintenance orders: %w", err))
				continue
			}
		}

		transition, err := applyBusStatus(ctx, store, logger, bus, DeriveBusStatus(bus, orders, today, !opts.SkipOrderSweep))
		if err != nil {
			summary.skip(logger, "bus", bus.ID, err)
			continue
		}
		if transition != nil {
			summary.record(*transition)
		}
	}

	logger.Info("Bus document sync finished",
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped))

	return summary, nil
}

// RecomputeBusOrderBlock re-derives one bus after a maintenance order changed.
// Documents are re-checked too, so an order ending never clears a document block.
// Returns the state transition, or nil when the visible state is unchanged.
func RecomputeBusOrderBlock(ctx context.Context, store db.BusStatusStore, logger *zap.Logger, busID string, today time.Time) (*Transition, error) {
	today = model.Day(today)

	bus, err := store.GetBus(ctx, busID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bus %s: %w", busID, err)
	}
	if bus.State == model.BusDecommissioned {
		logger.Debug("Bus is decommissioned, order hook has nothing to do", zap.String("bus_id", busID))
		return nil, nil
	}

	orders, err := store.ListMaintenanceOrders(ctx, busID)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance orders: %w", err)
	}

	transition, err := applyBusStatus(ctx, store, logger, bus, DeriveBusStatus(bus, orders, today, true))
	if errors.Is(err, errChanged) {
		// Another writer got there first; re-read once and derive again
		bus, err = store.GetBus(ctx, busID)
		if err != nil {
			return nil, fmt.Errorf("failed to get bus %s: %w", busID, err)
		}
		transition, err = applyBusStatus(ctx, store, logger, bus, DeriveBusStatus(bus, orders, today, true))
	}
	if err != nil {
		return nil, err
	}

	if transition != nil {
		logger.Info("Bus state recomputed after maintenance order change",
			zap.String("bus_id", busID),
			zap.String("from", transition.From),
			zap.String("to", transition.To))
	}
	return transition, nil
}

func applyBusStatus(ctx context.Context, store db.BusStatusStore, logger *zap.Logger, bus *model.Bus, next db.BusStatus) (*Transition, error) {
	prev := db.StatusOf(bus)
	if equalStatus(prev, next) {
		return nil, nil
	}

	ok, err := store.UpdateBusStatus(ctx, bus.ID, prev, next)
	if err != nil {
		return nil, fmt.Errorf("failed to update bus status: %w", err)
	}
	if !ok {
		return nil, errChanged
	}

	if prev.State == next.State {
		logger.Debug("Bus maintenance flags changed",
			zap.String("bus_id", bus.ID),
			zap.Bool("blocked_by_documents", next.BlockedByDocuments),
			zap.Bool("blocked_by_order", next.BlockedByOrder))
		return nil, nil
	}

	return &Transition{
		EntityKind: "bus",
		EntityID:   bus.ID,
		From:       string(prev.State),
		To:         string(next.State),
		Reason:     statusReason(next),
	}, nil
}
