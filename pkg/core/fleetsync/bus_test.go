package fleetsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
)

func TestSyncBusDocuments_OverdueTechnicalReview(t *testing.T) {
	ctx := context.Background()
	today := date("2025-03-10")

	store := newMockFleetStore()
	store.addBus(model.Bus{
		ID:                      "X",
		Type:                    model.BusSingleDeck,
		State:                   model.BusOperational,
		InsuranceExpiry:         datePtr("2026-01-01"),
		CirculationPermitExpiry: datePtr("2026-01-01"),
		TechnicalReviewExpiry:   datePtr("2025-03-01"),
	})

	summary, err := SyncBusDocuments(ctx, store, zap.NewNop(), today, BusOptions{})
	require.NoError(t, err)
	require.Len(t, summary.Transitions, 1)
	assert.Equal(t, Transition{
		EntityKind: "bus",
		EntityID:   "X",
		From:       "operational",
		To:         "maintenance",
		Reason:     "technical_review",
	}, summary.Transitions[0])

	bus := store.buses["X"]
	assert.Equal(t, model.BusMaintenance, bus.State)
	assert.True(t, bus.BlockedByDocuments)
	assert.False(t, bus.BlockedByOrder)
	assert.Equal(t, []model.DocumentKind{model.DocumentTechnicalReview}, bus.MaintenanceReasons)

	again, err := SyncBusDocuments(ctx, store, zap.NewNop(), today, BusOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Updated)
	assert.Empty(t, again.Transitions)
	assert.Equal(t, 1, store.busWrites)
}

func TestSyncBusDocuments_RenewedDocumentsRevert(t *testing.T) {
	store := newMockFleetStore()
	store.addBus(model.Bus{
		ID:                    "X",
		State:                 model.BusMaintenance,
		BlockedByDocuments:    true,
		MaintenanceReasons:    []model.DocumentKind{model.DocumentInsurance},
		InsuranceExpiry:       datePtr("2026-01-01"),
		TechnicalReviewExpiry: datePtr("2026-01-01"),
	})

	summary, err := SyncBusDocuments(context.Background(), store, zap.NewNop(), date("2025-03-10"), BusOptions{})
	require.NoError(t, err)
	require.Len(t, summary.Transitions, 1)
	assert.Equal(t, "operational", summary.Transitions[0].To)
	assert.False(t, store.buses["X"].BlockedByDocuments)
	assert.Empty(t, store.buses["X"].MaintenanceReasons)
}

func TestSyncBusDocuments_OrderKeepsBusInMaintenance(t *testing.T) {
	store := newMockFleetStore()
	store.addBus(model.Bus{
		ID:                 "X",
		State:              model.BusMaintenance,
		BlockedByDocuments: true,
		MaintenanceReasons: []model.DocumentKind{model.DocumentInsurance},
		InsuranceExpiry:    datePtr("2026-01-01"),
	})
	store.orders = []model.MaintenanceOrder{
		{ID: "o1", BusID: "X", StartDate: date("2025-03-01"), State: model.OrderInProgress},
	}

	summary, err := SyncBusDocuments(context.Background(), store, zap.NewNop(), date("2025-03-10"), BusOptions{})
	require.NoError(t, err)

	// Documents cleared but the order still blocks: flags change, state does not
	assert.Empty(t, summary.Transitions)
	bus := store.buses["X"]
	assert.Equal(t, model.BusMaintenance, bus.State)
	assert.False(t, bus.BlockedByDocuments)
	assert.True(t, bus.BlockedByOrder)
}

func TestSyncBusDocuments_SkipOrderSweepKeepsOrderFlag(t *testing.T) {
	store := newMockFleetStore()
	store.addBus(model.Bus{ID: "X", State: model.BusMaintenance, BlockedByOrder: true})
	store.listOrdersErr = errBoom

	summary, err := SyncBusDocuments(context.Background(), store, zap.NewNop(), date("2025-03-10"), BusOptions{SkipOrderSweep: true})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Skipped)
	assert.Empty(t, summary.Transitions)
	assert.True(t, store.buses["X"].BlockedByOrder)
	assert.Equal(t, model.BusMaintenance, store.buses["X"].State)
}

func TestSyncBusDocuments_OrderEndingOvernightReleasesBus(t *testing.T) {
	store := newMockFleetStore()
	store.addBus(model.Bus{ID: "X", State: model.BusMaintenance, BlockedByOrder: true})
	store.orders = []model.MaintenanceOrder{
		{ID: "o1", BusID: "X", StartDate: date("2025-03-01"), EndDate: datePtr("2025-03-10"), State: model.OrderInProgress},
	}

	summary, err := SyncBusDocuments(context.Background(), store, zap.NewNop(), date("2025-03-10"), BusOptions{})
	require.NoError(t, err)
	require.Len(t, summary.Transitions, 1)
	assert.Equal(t, "operational", summary.Transitions[0].To)
	assert.False(t, store.buses["X"].BlockedByOrder)
}

func TestSyncBusDocuments_DecommissionedUntouched(t *testing.T) {
	store := newMockFleetStore()
	store.addBus(model.Bus{ID: "X", State: model.BusDecommissioned, InsuranceExpiry: datePtr("2020-01-01")})

	summary, err := SyncBusDocuments(context.Background(), store, zap.NewNop(), date("2025-03-10"), BusOptions{})
	require.NoError(t, err)
	assert.Empty(t, summary.Transitions)
	assert.Equal(t, model.BusDecommissioned, store.buses["X"].State)
	assert.Equal(t, 0, store.busWrites)
}

func TestSyncBusDocuments_SkipsFailedBus(t *testing.T) {
	store := newMockFleetStore()
	store.addBus(model.Bus{ID: "A", State: model.BusOperational, InsuranceExpiry: datePtr("2025-01-01")})
	store.addBus(model.Bus{ID: "B", State: model.BusOperational, InsuranceExpiry: datePtr("2025-01-01")})
	store.addBus(model.Bus{ID: "C", State: model.BusOperational, InsuranceExpiry: datePtr("2025-01-01")})
	store.updateBusErr["A"] = errBoom
	store.staleBuses["B"] = true

	summary, err := SyncBusDocuments(context.Background(), store, zap.NewNop(), date("2025-03-10"), BusOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, "C", summary.Transitions[0].EntityID)
}

func TestRecomputeBusOrderBlock(t *testing.T) {
	ctx := context.Background()
	today := date("2025-03-10")

	store := newMockFleetStore()
	store.addBus(model.Bus{ID: "X", State: model.BusOperational})
	store.orders = []model.MaintenanceOrder{
		{ID: "o1", BusID: "X", StartDate: date("2025-03-10"), State: model.OrderInProgress},
	}

	transition, err := RecomputeBusOrderBlock(ctx, store, zap.NewNop(), "X", today)
	require.NoError(t, err)
	require.NotNil(t, transition)
	assert.Equal(t, "maintenance", transition.To)
	assert.Equal(t, "maintenance order in progress", transition.Reason)
	assert.True(t, store.buses["X"].BlockedByOrder)

	store.orders[0].State = model.OrderCompleted
	transition, err = RecomputeBusOrderBlock(ctx, store, zap.NewNop(), "X", today)
	require.NoError(t, err)
	require.NotNil(t, transition)
	assert.Equal(t, "operational", transition.To)
}

func TestRecomputeBusOrderBlock_DocumentBlockSurvivesOrderEnd(t *testing.T) {
	store := newMockFleetStore()
	store.addBus(model.Bus{
		ID:                 "X",
		State:              model.BusMaintenance,
		BlockedByOrder:     true,
		BlockedByDocuments: true,
		MaintenanceReasons: []model.DocumentKind{model.DocumentInsurance},
		InsuranceExpiry:    datePtr("2025-01-01"),
	})

	transition, err := RecomputeBusOrderBlock(context.Background(), store, zap.NewNop(), "X", date("2025-03-10"))
	require.NoError(t, err)
	assert.Nil(t, transition)
	assert.Equal(t, model.BusMaintenance, store.buses["X"].State)
	assert.False(t, store.buses["X"].BlockedByOrder)
	assert.True(t, store.buses["X"].BlockedByDocuments)
}

func TestRecomputeBusOrderBlock_RetriesOnceAfterConcurrentWrite(t *testing.T) {
	store := newMockFleetStore()
	store.addBus(model.Bus{ID: "X", State: model.BusOperational})
	store.orders = []model.MaintenanceOrder{
		{ID: "o1", BusID: "X", StartDate: date("2025-03-01"), State: model.OrderInProgress},
	}
	store.staleBuses["X"] = true

	transition, err := RecomputeBusOrderBlock(context.Background(), store, zap.NewNop(), "X", date("2025-03-10"))
	require.NoError(t, err)
	require.NotNil(t, transition)
	assert.Equal(t, model.BusMaintenance, store.buses["X"].State)
}

func TestRecomputeBusOrderBlock_UnknownBus(t *testing.T) {
	store := newMockFleetStore()

	_, err := RecomputeBusOrderBlock(context.Background(), store, zap.NewNop(), "missing", date("2025-03-10"))
	require.Error(t, err)
}

func TestOverdueDocuments(t *testing.T) {
	bus := &model.Bus{
		InsuranceExpiry:         datePtr("2025-03-09"),
		CirculationPermitExpiry: datePtr("2025-03-10"),
		TechnicalReviewExpiry:   datePtr("2025-01-01"),
	}

	assert.Equal(t,
		[]model.DocumentKind{model.DocumentInsurance, model.DocumentTechnicalReview},
		OverdueDocuments(bus, date("2025-03-10")))
	assert.Empty(t, OverdueDocuments(&model.Bus{}, date("2025-03-10")))
}
