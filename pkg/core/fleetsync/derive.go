package fleetsync

import (
	"time"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

// OverdueDocuments returns the bus documents that expired before today.
// A nil expiry date is never overdue.
func OverdueDocuments(bus *model.Bus, today time.Time) []model.DocumentKind {
	today = model.Day(today)
	overdue := []model.DocumentKind{}

	docs := []struct {
		kind   model.DocumentKind
		expiry *time.Time
	}{
		{model.DocumentInsurance, bus.InsuranceExpiry},
		{model.DocumentCirculationPermit, bus.CirculationPermitExpiry},
		{model.DocumentTechnicalReview, bus.TechnicalReviewExpiry},
	}
	for _, d := range docs {
		if d.expiry != nil && model.Day(*d.expiry).Before(today) {
			overdue = append(overdue, d.kind)
		}
	}
	return overdue
}

// HasActiveOrder reports whether any in-progress order covers today
func HasActiveOrder(orders []model.MaintenanceOrder, today time.Time) bool {
	for i := range orders {
		if orders[i].CoversDay(today) {
			return true
		}
	}
	return false
}

// DeriveBusStatus computes the derived status of a bus for today.
// When withOrders is false the stored order flag is kept as is.
// Decommissioned buses keep their state; only their flags are refreshed.
func DeriveBusStatus(bus *model.Bus, orders []model.MaintenanceOrder, today time.Time, withOrders bool) db.BusStatus {
	reasons := OverdueDocuments(bus, today)

	next := db.BusStatus{
		BlockedByDocuments: len(reasons) > 0,
		BlockedByOrder:     bus.BlockedByOrder,
		MaintenanceReasons: reasons,
	}
	if withOrders {
		next.BlockedByOrder = HasActiveOrder(orders, today)
	}
	next.State = stateFor(bus.State, next.BlockedByDocuments, next.BlockedByOrder)
	return next
}

func stateFor(current model.BusState, byDocuments, byOrder bool) model.BusState {
	if current == model.BusDecommissioned {
		return current
	}
	if byDocuments || byOrder {
		return model.BusMaintenance
	}
	return model.BusOperational
}

func equalStatus(a, b db.BusStatus) bool {
	if a.State != b.State || a.BlockedByDocuments != b.BlockedByDocuments || a.BlockedByOrder != b.BlockedByOrder {
		return false
	}
	if len(a.MaintenanceReasons) != len(b.MaintenanceReasons) {
		return false
	}
	for i := range a.MaintenanceReasons {
		if a.MaintenanceReasons[i] != b.MaintenanceReasons[i] {
			return false
		}
	}
	return true
}

// statusReason describes why a bus holds its derived status
func statusReason(s db.BusStatus) string {
	switch {
	case s.BlockedByDocuments && s.BlockedByOrder:
		return "overdue " + joinKinds(s.MaintenanceReasons) + " and maintenance order in progress"
	case s.BlockedByDocuments:
		return joinKinds(s.MaintenanceReasons)
	case s.BlockedByOrder:
		return "maintenance order in progress"
	}
	return "no overdue documents or active maintenance orders"
}

func joinKinds(kinds []model.DocumentKind) string {
	out := ""
	for i, k := range kinds {
		if i > 0 {
			out += ","
		}
		out += string(k)
	}
	return out
}
