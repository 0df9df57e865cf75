package fleetsync

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Job names accepted by the trigger
const (
	JobLicenseExpiry = "license_expiry"
	JobLeaveMirror   = "leave_mirror"
	JobBusDocuments  = "bus_documents"
)

// Jobs lists every synchronizer job in the order the daemon runs them.
// The jobs are independent; the order only affects log output.
var Jobs = []string{JobLicenseExpiry, JobLeaveMirror, JobBusDocuments}

// Transition records one derived-state write
type Transition struct {
	EntityKind string
	EntityID   string
	From       string
	To         string
	Reason     string
}

// Warning records an entity that needs attention or was skipped
type Warning struct {
	EntityKind string
	EntityID   string
	Message    string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %s: %s", w.EntityKind, w.EntityID, w.Message)
}

// Summary is the outcome of one job run
type Summary struct {
	Job         string
	Date        time.Time
	Updated     int
	Skipped     int
	Warnings    []Warning
	Transitions []Transition
}

func newSummary(job string, today time.Time) *Summary {
	return &Summary{
		Job:         job,
		Date:        today,
		Warnings:    []Warning{},
		Transitions: []Transition{},
	}
}

// record appends the transitions of one successfully processed entity
func (s *Summary) record(transitions ...Transition) {
	s.Transitions = append(s.Transitions, transitions...)
	s.Updated += len(transitions)
}

func (s *Summary) warn(kind, id, message string) {
	s.Warnings = append(s.Warnings, Warning{EntityKind: kind, EntityID: id, Message: message})
}

// skip logs a per-entity failure and excludes the entity from the run
func (s *Summary) skip(logger *zap.Logger, kind, id string, err error) {
	logger.Warn("Skipping entity",
		zap.String("job", s.Job),
		zap.String("entity_kind", kind),
		zap.String("entity_id", id),
		zap.Error(err))
	s.Skipped++
	s.warn(kind, id, "skipped: "+err.Error())
}

// errChanged is used when a compare-and-set write finds the row already modified
var errChanged = errors.New("record changed during sync, will be re-evaluated on the next run")
