package types

import (
	"fmt"
	"strings"
	"time"
)

// Operation is the change applied to a single leaf
type Operation string

const (
	OperationCreated  Operation = "created"
	OperationModified Operation = "modified"
	OperationDeleted  Operation = "deleted"
)

// ParseOperation converts a wire string into an Operation
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case OperationCreated, OperationModified, OperationDeleted:
		return op, nil
	default:
		return "", NewError(KindParseError, "parse operation", fmt.Errorf("unknown operation %q", s))
	}
}

// Phase is the lifecycle stage of a transaction
type Phase string

const (
	PhaseProposed   Phase = "proposed"
	PhaseCommitting Phase = "committing"
	PhaseConfirmed  Phase = "confirmed"
	PhaseAborted    Phase = "aborted"
)

// ParsePhase converts a wire string into a Phase
func ParsePhase(s string) (Phase, error) {
	switch p := Phase(strings.ToLower(strings.TrimSpace(s))); p {
	case PhaseProposed, PhaseCommitting, PhaseConfirmed, PhaseAborted:
		return p, nil
	default:
		return "", NewError(KindParseError, "parse phase", fmt.Errorf("unknown phase %q", s))
	}
}

// ConfigChangeEvent describes one changed leaf of the configuration tree.
// Value is nil when the leaf carries no value (typically deletions).
type ConfigChangeEvent struct {
	Path      string    `json:"path"`
	Operation Operation `json:"operation"`
	Value     *string   `json:"value,omitempty"`
	Phase     Phase     `json:"phase,omitempty"`
}

// ValueOr returns the event value or def when absent
func (e ConfigChangeEvent) ValueOr(def string) string {
	if e.Value == nil {
		return def
	}
	return *e.Value
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// TransactionStatus is the outcome of a handled transaction
type TransactionStatus string

const (
	TransactionStatusApplied   TransactionStatus = "applied"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusPartial   TransactionStatus = "partial"
	TransactionStatusPersisted TransactionStatus = "persisted"
	TransactionStatusAborted   TransactionStatus = "aborted"
	TransactionStatusSkipped   TransactionStatus = "skipped"
)

// TransactionReport records how a transaction was handled
type TransactionReport struct {
	ID             string            `json:"id"`
	Phase          Phase             `json:"phase"`
	Status         TransactionStatus `json:"status"`
	Total          int               `json:"total"`
	Applied        int               `json:"applied"`
	NTPRegenerated bool              `json:"ntp_regenerated"`
	ErrorKind      Kind              `json:"error_kind,omitempty"`
	Error          string            `json:"error,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`
}
