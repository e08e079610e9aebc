// Package dispatcher applies transactions of configuration change events to
// the operating system.
//
// Each Committing transaction is applied event by event in delivery order.
// The first failing event stops the transaction; events applied before it
// are not rolled back and the failure is reported as a partial apply. When
// any event touched the NTP subtree the time-daemon config is regenerated
// once, after the last event, and the time service is toggled if the enabled
// leaf changed.
package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sysconfd/internal/ntp"
	"sysconfd/internal/types"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// HostnameSetter reads and sets the kernel hostname
type HostnameSetter interface {
	Hostname() (string, error)
	SetHostname(name string) error
}

// FieldUpdater rewrites one account field
type FieldUpdater interface {
	GetField(user string) (string, error)
	SetField(user, value string) error
}

// ValueStore keeps single string values by key
type ValueStore interface {
	ReadValue(key string) (string, error)
	WriteValue(key, value string) error
}

// ZoneManager swaps the active timezone
type ZoneManager interface {
	SetZone(name string) error
	GetZone() (string, error)
	Unset() (bool, error)
}

// StartupStore persists the accepted tree across restarts
type StartupStore interface {
	Empty(ctx context.Context) (bool, error)
	LoadTree(ctx context.Context) (map[string]string, error)
	SaveTree(ctx context.Context, tree map[string]string) error
}

// Publisher receives a report for every handled transaction
type Publisher interface {
	Publish(ctx context.Context, report *types.TransactionReport) error
}

// Deps are the collaborators the dispatcher routes events to
type Deps struct {
	Host        HostnameSetter
	Passwd      FieldUpdater
	ContactUser string
	Location    ValueStore
	Timezone    ZoneManager
	NTP         *ntp.Registry
	Startup     StartupStore
	Audit       Publisher
	Clock       clockwork.Clock
}

// Dispatcher applies change transactions. Transactions are handled one at a
// time in call order.
type Dispatcher struct {
	mu     sync.Mutex
	deps   Deps
	router *Router
	logger *zap.Logger

	treeMu  sync.RWMutex
	running map[string]string
}

// txnState carries what a transaction touched across its events
type txnState struct {
	ntpTouched bool
	ntpEnabled *bool
}

// New creates a dispatcher
func New(deps Deps, logger *zap.Logger) *Dispatcher {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	d := &Dispatcher{
		deps:    deps,
		logger:  logger,
		running: make(map[string]string),
	}
	d.router = d.newRouter()
	return d
}

func (d *Dispatcher) newRouter() *Router {
	r := NewRouter()
	r.Handle(HostnamePath, d.applyHostname)
	r.Handle(ContactPath, d.applyContact)
	r.Handle(LocationPath, d.applyLocation)
	r.Handle(TimezoneNamePath, d.applyTimezoneName)
	r.Handle(TimezoneOffsetPath, d.applyTimezoneOffset)
	r.HandlePrefix(NTPPrefix, d.applyNTP)
	r.SetFallback(d.applyUnknown)
	return r
}

// HandleTransaction handles one transaction phase and returns its report.
// The returned error carries the failure Kind; the report is filled in
// either way.
func (d *Dispatcher) HandleTransaction(ctx context.Context, phase types.Phase, events []types.ConfigChangeEvent) (*types.TransactionReport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	report := &types.TransactionReport{
		ID:        uuid.NewString(),
		Phase:     phase,
		Total:     len(events),
		StartedAt: d.deps.Clock.Now(),
	}
	logger := d.logger.With(
		zap.String("transaction_id", report.ID),
		zap.String("phase", string(phase)),
		zap.Int("events", len(events)))

	var err error
	switch phase {
	case types.PhaseProposed:
		report.Status = types.TransactionStatusSkipped
		logger.Debug("Proposed transaction acknowledged")

	case types.PhaseCommitting:
		err = d.commit(ctx, events, report)
		switch {
		case err == nil:
			report.Status = types.TransactionStatusApplied
		case types.KindOf(err) == types.KindPartialApply:
			report.Status = types.TransactionStatusPartial
		default:
			report.Status = types.TransactionStatusFailed
		}

	case types.PhaseConfirmed:
		err = d.persist(ctx)
		if err == nil {
			report.Status = types.TransactionStatusPersisted
		} else {
			report.Status = types.TransactionStatusFailed
		}

	case types.PhaseAborted:
		report.Status = types.TransactionStatusAborted
		err = types.NewError(types.KindAborted, "handle transaction",
			fmt.Errorf("transaction aborted by the configuration system"))

	default:
		report.Status = types.TransactionStatusFailed
		err = types.NewError(types.KindParseError, "handle transaction", fmt.Errorf("unknown phase %q", phase))
	}

	report.FinishedAt = d.deps.Clock.Now()
	if err != nil {
		report.ErrorKind = types.KindOf(err)
		report.Error = err.Error()
		logger.Error("Transaction failed",
			zap.String("status", string(report.Status)),
			zap.Int("applied", report.Applied),
			zap.Error(err))
	} else {
		logger.Info("Transaction handled",
			zap.String("status", string(report.Status)),
			zap.Int("applied", report.Applied),
			zap.Bool("ntp_regenerated", report.NTPRegenerated))
	}

	d.publish(ctx, report)
	return report, err
}

// commit applies events in order and regenerates derived artifacts
func (d *Dispatcher) commit(ctx context.Context, events []types.ConfigChangeEvent, report *types.TransactionReport) error {
	txn := &txnState{}

	for i, ev := range events {
		apply := d.router.Route(ev.Path)
		changed, err := apply(ctx, ev, txn)
		if err != nil {
			return d.failure(report.Applied, fmt.Errorf("event %d of %d (%s %s): %w",
				i+1, len(events), ev.Operation, ev.Path, err))
		}
		if changed {
			report.Applied++
		}
		d.recordRunning(ev)
	}

	if txn.ntpTouched {
		if err := d.deps.NTP.WriteConfig(); err != nil {
			return d.failure(report.Applied, err)
		}
		report.NTPRegenerated = true
	}

	if txn.ntpEnabled != nil {
		var err error
		if *txn.ntpEnabled {
			err = d.deps.NTP.Enable(ctx)
		} else {
			err = d.deps.NTP.Disable(ctx)
		}
		if err != nil {
			return d.failure(report.Applied, err)
		}
		report.Applied++
	}

	return nil
}

// failure tags err as a partial apply when earlier events took effect
func (d *Dispatcher) failure(applied int, err error) error {
	if applied == 0 {
		return err
	}
	return types.NewError(types.KindPartialApply, "commit",
		fmt.Errorf("%d event(s) stay applied: %w", applied, err))
}

// persist writes the running tree to the startup store
func (d *Dispatcher) persist(ctx context.Context) error {
	if d.deps.Startup == nil {
		return types.NewError(types.KindIOFailure, "persist", fmt.Errorf("no startup store configured"))
	}
	if err := d.deps.Startup.SaveTree(ctx, d.Running()); err != nil {
		return fmt.Errorf("failed to persist running tree: %w", err)
	}
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, report *types.TransactionReport) {
	if d.deps.Audit == nil {
		return
	}
	if err := d.deps.Audit.Publish(context.WithoutCancel(ctx), report); err != nil {
		d.logger.Warn("Transaction report not fully published",
			zap.String("transaction_id", report.ID),
			zap.Error(err))
	}
}

// Running returns a copy of the accepted running tree
func (d *Dispatcher) Running() map[string]string {
	d.treeMu.RLock()
	defer d.treeMu.RUnlock()

	tree := make(map[string]string, len(d.running))
	for k, v := range d.running {
		tree[k] = v
	}
	return tree
}

func (d *Dispatcher) setRunning(tree map[string]string) {
	d.treeMu.Lock()
	defer d.treeMu.Unlock()

	d.running = make(map[string]string, len(tree))
	for k, v := range tree {
		d.running[k] = v
	}
}

// recordRunning folds an applied event into the running tree. Deleting a
// server entry or its key drops every leaf of that entry.
func (d *Dispatcher) recordRunning(ev types.ConfigChangeEvent) {
	d.treeMu.Lock()
	defer d.treeMu.Unlock()

	if ev.Operation != types.OperationDeleted {
		if ev.Value != nil {
			d.running[ev.Path] = *ev.Value
		}
		return
	}

	delete(d.running, ev.Path)
	if ref, err := parseServerPath(ev.Path); err == nil && (ref.Leaf == "" || ref.Leaf == leafName) {
		single := serverEntryPath(ref.Name)
		double := fmt.Sprintf("%s[name=%q]", NTPServerPrefix, ref.Name)
		for p := range d.running {
			if strings.HasPrefix(p, single) || strings.HasPrefix(p, double) {
				delete(d.running, p)
			}
		}
	}
}
