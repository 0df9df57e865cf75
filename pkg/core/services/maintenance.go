package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/fleetsync"
	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

// MaintenanceOrderInput creates or replaces a maintenance order. An empty ID creates a new order.
// EndDate is exclusive; an empty EndDate leaves the order open-ended.
type MaintenanceOrderInput struct {
	ID          string
	BusID       string `validate:"required"`
	StartDate   string `validate:"required,datetime=2006-01-02"`
	EndDate     string `validate:"omitempty,datetime=2006-01-02"`
	State       string `validate:"required,oneof=in_progress completed cancelled"`
	Description string `validate:"max=2000"`
}

// MaintenanceOrderResult is a saved order and the bus state changes it caused
type MaintenanceOrderResult struct {
	Order       *model.MaintenanceOrder
	Transitions []fleetsync.Transition
}

// SaveMaintenanceOrder creates or updates an order and re-derives the status of every bus it touches.
// A failed bus recompute is logged and left to the daily bus sync.
func SaveMaintenanceOrder(ctx context.Context, store db.MaintenanceOrderStore, logger *zap.Logger, input MaintenanceOrderInput, today time.Time) (*MaintenanceOrderResult, error) {
	order, err := orderFromInput(input)
	if err != nil {
		return nil, err
	}

	if _, err := store.GetBus(ctx, order.BusID); err != nil {
		return nil, notFoundOr(err, "bus", order.BusID)
	}

	affected := []string{order.BusID}
	if order.ID == "" {
		order.ID = uuid.New().String()
	} else {
		existing, err := store.GetMaintenanceOrder(ctx, order.ID)
		if err != nil {
			return nil, notFoundOr(err, "maintenance_order", order.ID)
		}
		if existing.BusID != order.BusID {
			affected = append(affected, existing.BusID)
		}
	}

	logger.Debug("Saving maintenance order",
		zap.String("order_id", order.ID),
		zap.String("bus_id", order.BusID),
		zap.String("state", string(order.State)))

	if err := store.SaveMaintenanceOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save maintenance order: %w", err)
	}

	logger.Info("Maintenance order saved", zap.String("order_id", order.ID), zap.String("bus_id", order.BusID))

	return &MaintenanceOrderResult{
		Order:       order,
		Transitions: recomputeBuses(ctx, store, logger, affected, today),
	}, nil
}

// DeleteMaintenanceOrder removes an order and re-derives its bus status
func DeleteMaintenanceOrder(ctx context.Context, store db.MaintenanceOrderStore, logger *zap.Logger, id string, today time.Time) (*MaintenanceOrderResult, error) {
	order, err := store.GetMaintenanceOrder(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "maintenance_order", id)
	}

	if err := store.DeleteMaintenanceOrder(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, &NotFoundError{Kind: "maintenance_order", ID: id}
		}
		return nil, fmt.Errorf("failed to delete maintenance order: %w", err)
	}

	logger.Info("Maintenance order deleted", zap.String("order_id", id), zap.String("bus_id", order.BusID))

	return &MaintenanceOrderResult{
		Order:       order,
		Transitions: recomputeBuses(ctx, store, logger, []string{order.BusID}, today),
	}, nil
}

func recomputeBuses(ctx context.Context, store db.BusStatusStore, logger *zap.Logger, busIDs []string, today time.Time) []fleetsync.Transition {
	transitions := []fleetsync.Transition{}
	for _, busID := range busIDs {
		t, err := fleetsync.RecomputeBusOrderBlock(ctx, store, logger, busID, today)
		if err != nil {
			logger.Warn("Failed to recompute bus status after maintenance order change",
				zap.String("bus_id", busID),
				zap.Error(err))
			continue
		}
		if t != nil {
			transitions = append(transitions, *t)
		}
	}
	return transitions
}

func orderFromInput(input MaintenanceOrderInput) (*model.MaintenanceOrder, error) {
	if err := validate.Struct(input); err != nil {
		return nil, validationErrorFrom(err)
	}

	start, err := model.ParseDate(input.StartDate)
	if err != nil {
		return nil, &ValidationError{Field: "StartDate", Reason: err.Error()}
	}

	order := &model.MaintenanceOrder{
		ID:          input.ID,
		BusID:       input.BusID,
		StartDate:   start,
		State:       model.MaintenanceOrderState(input.State),
		Description: input.Description,
	}

	if input.EndDate != "" {
		end, err := model.ParseDate(input.EndDate)
		if err != nil {
			return nil, &ValidationError{Field: "EndDate", Reason: err.Error()}
		}
		if !end.After(start) {
			return nil, &ValidationError{Field: "EndDate", Reason: "must be after the start date"}
		}
		order.EndDate = &end
	}

	return order, nil
}
