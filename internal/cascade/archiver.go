// Package cascade archives and restores whole subtrees of the hierarchy.
//
// Calls are issued one at a time, ancestors before descendants, so a cascade
// that stops early leaves an archived prefix of the subtree and never an
// archived child under a live parent. Nothing is rolled back: running the
// same cascade again only touches what is still left to do.
package cascade

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/hierarchy"
	"github.com/lifeplanner/core/internal/infrastructure/logger"
	"github.com/lifeplanner/core/internal/infrastructure/metrics"
	"github.com/lifeplanner/core/internal/store"
)

// Target is the single-entity archive primitive of one entity kind.
type Target interface {
	Archive(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

// Source publishes the changes of one entity kind, typically its store.
type Source interface {
	Subscribe(l store.Listener) func()
}

// Tree is the hierarchy view a cascade plans against.
type Tree interface {
	Descendants(ref entities.Ref) []entities.Ref
	Lookup(ref entities.Ref) (hierarchy.Node, bool)
	Parent(ref entities.Ref) (entities.Ref, bool)
}

type Option func(*Archiver)

func WithLogger(l *logger.Logger) Option {
	return func(a *Archiver) { a.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Archiver) { a.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

// Archiver runs cascades. Only one cascade runs at a time.
type Archiver struct {
	targets map[entities.Kind]Target
	tree    Tree
	ledger  *Ledger
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string

	mu sync.Mutex

	// inflight is the ref of the step being applied, so Watch can tell the
	// cascade's own changes from direct ones.
	stepMu   sync.Mutex
	inflight entities.Ref
	stops    []func()
}

func NewArchiver(targets map[entities.Kind]Target, tree Tree, opts ...Option) *Archiver {
	a := &Archiver{
		targets: targets,
		tree:    tree,
		ledger:  NewLedger(),
		logger:  logger.NewNop(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Watch keeps provenance in step with archive and restore calls made on src
// outside a cascade. A direct archive makes the entity its own origin, so no
// restore of an ancestor brings it back; a direct restore drops its record.
func (a *Archiver) Watch(kind entities.Kind, src Source) {
	stop := src.Subscribe(func(c store.Change) { a.observe(kind, c) })
	a.stepMu.Lock()
	a.stops = append(a.stops, stop)
	a.stepMu.Unlock()
}

// Close stops every Watch subscription.
func (a *Archiver) Close() {
	a.stepMu.Lock()
	stops := a.stops
	a.stops = nil
	a.stepMu.Unlock()
	for _, stop := range stops {
		stop()
	}
}

func (a *Archiver) observe(kind entities.Kind, c store.Change) {
	if c.Action != store.ActionArchived && c.Action != store.ActionRestored {
		return
	}
	ref := entities.Ref{Kind: kind, ID: c.ID}
	a.stepMu.Lock()
	own := a.inflight == ref
	a.stepMu.Unlock()
	if own {
		return
	}

	if c.Action == store.ActionRestored {
		a.ledger.Forget(ref)
		return
	}
	a.ledger.Record(ref, Provenance{
		Operation:  a.newID(),
		Origin:     ref,
		Derivation: DerivationOrigin,
		At:         a.now(),
	})
}

func (a *Archiver) apply(ctx context.Context, dir Direction, ref entities.Ref) error {
	a.stepMu.Lock()
	a.inflight = ref
	a.stepMu.Unlock()
	defer func() {
		a.stepMu.Lock()
		a.inflight = entities.Ref{}
		a.stepMu.Unlock()
	}()

	target := a.targets[ref.Kind]
	var err error
	if dir == DirectionArchive {
		err = target.Archive(ctx, ref.ID)
	} else {
		err = target.Restore(ctx, ref.ID)
	}
	a.metrics.ObserveCascadeStep(string(dir), err)
	return err
}

// Ledger exposes the provenance records, mostly for inspection.
func (a *Archiver) Ledger() *Ledger {
	return a.ledger
}

type step struct {
	ref        entities.Ref
	derivation Derivation
}

// Archive archives origin and every live descendant. Entities that are
// already archived are skipped but still traversed. When origin is already
// archived as the origin of an earlier operation, that operation is resumed
// and keeps its id.
//
// The returned error is only set when the cascade could not start; a
// cascade that stopped part way returns a Result in StatePartialFailure.
func (a *Archiver) Archive(ctx context.Context, origin entities.Ref) (*Result, error) {
	if err := a.check(origin); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	res := &Result{Direction: DirectionArchive, Origin: origin, State: StateRequested}
	res.Operation = a.newID()

	originArchived := a.isArchived(origin)
	if originArchived {
		if rec, ok := a.ledger.Lookup(origin); ok && rec.Derivation == DerivationOrigin && rec.Origin == origin {
			res.Operation = rec.Operation
			res.Resumed = true
		}
	}

	res.State = StateComputing
	var plan []step
	if originArchived {
		res.Skipped = append(res.Skipped, origin)
	} else {
		plan = append(plan, step{ref: origin, derivation: DerivationOrigin})
	}
	for _, ref := range a.tree.Descendants(origin) {
		if a.isArchived(ref) {
			res.Skipped = append(res.Skipped, ref)
			continue
		}
		plan = append(plan, step{ref: ref, derivation: DerivationCascade})
	}

	res.State = StateApplying
	a.ledger.setLatest(origin, res.Operation)
	for i, st := range plan {
		if err := a.apply(ctx, DirectionArchive, st.ref); err != nil {
			res.fail(st.ref, err, refs(plan[i+1:]))
			break
		}
		a.ledger.Record(st.ref, Provenance{
			Operation:  res.Operation,
			Origin:     origin,
			Derivation: st.derivation,
			At:         a.now(),
		})
		res.Succeeded = append(res.Succeeded, st.ref)
	}
	if res.State != StatePartialFailure {
		res.State = StateDone
	}

	a.finish(res)
	return res, nil
}

// Restore restores origin, then the descendants that origin's latest archive
// operation archived. A descendant is left archived when it was archived
// directly, by another ancestor, or by an older operation, and also when an
// ancestor between it and origin stays archived.
func (a *Archiver) Restore(ctx context.Context, origin entities.Ref) (*Result, error) {
	if err := a.check(origin); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	res := &Result{Direction: DirectionRestore, Origin: origin, State: StateRequested}
	op, hasOp := a.ledger.Latest(origin)
	if hasOp {
		res.Operation = op
	} else {
		res.Operation = a.newID()
	}

	res.State = StateComputing
	var plan []step
	if n, known := a.tree.Lookup(origin); known && !n.Archived {
		res.Skipped = append(res.Skipped, origin)
	} else {
		plan = append(plan, step{ref: origin, derivation: DerivationOrigin})
	}

	planned := map[entities.Ref]bool{origin: true}
	for _, ref := range a.tree.Descendants(origin) {
		if hasOp && a.isArchived(ref) && a.derivedFrom(ref, origin, op) && a.chainLive(ref, origin, planned) {
			planned[ref] = true
			plan = append(plan, step{ref: ref, derivation: DerivationCascade})
			continue
		}
		res.Skipped = append(res.Skipped, ref)
	}

	res.State = StateApplying
	for i, st := range plan {
		if err := a.apply(ctx, DirectionRestore, st.ref); err != nil {
			res.fail(st.ref, err, refs(plan[i+1:]))
			break
		}
		a.ledger.Forget(st.ref)
		res.Succeeded = append(res.Succeeded, st.ref)
	}
	if res.State != StatePartialFailure {
		res.State = StateDone
		if hasOp {
			a.ledger.clearLatest(origin, op)
		}
	}

	a.finish(res)
	return res, nil
}

func (a *Archiver) check(origin entities.Ref) error {
	if !origin.Kind.IsValid() {
		return fmt.Errorf("%w: %q", entities.ErrInvalidKind, origin.Kind)
	}
	if origin.ID == "" {
		return fmt.Errorf("%w: id is required", entities.ErrValidation)
	}
	if _, ok := a.targets[origin.Kind]; !ok {
		return fmt.Errorf("no cascade target for %s", origin.Kind)
	}
	return nil
}

// isArchived reports the archived state known to the tree. Entities the tree
// has not loaded count as live so the call is still forwarded.
func (a *Archiver) isArchived(ref entities.Ref) bool {
	n, ok := a.tree.Lookup(ref)
	return ok && n.Archived
}

func (a *Archiver) derivedFrom(ref, origin entities.Ref, op string) bool {
	rec, ok := a.ledger.Lookup(ref)
	return ok && rec.Derivation == DerivationCascade && rec.Origin == origin && rec.Operation == op
}

// chainLive reports whether every ancestor between ref and origin is live or
// already planned for restore.
func (a *Archiver) chainLive(ref, origin entities.Ref, planned map[entities.Ref]bool) bool {
	seen := map[entities.Ref]bool{ref: true}
	cur := ref
	for {
		parent, ok := a.tree.Parent(cur)
		if !ok || seen[parent] {
			return false
		}
		seen[parent] = true
		if parent == origin {
			return true
		}
		if a.isArchived(parent) && !planned[parent] {
			return false
		}
		cur = parent
	}
}

func (a *Archiver) finish(res *Result) {
	a.logger.LogCascade(string(res.Direction), res.Operation, res.Origin.String(), string(res.State), len(res.Succeeded), res.Err)
	a.metrics.ObserveCascade(string(res.Direction), string(res.State))
}

func refs(steps []step) []entities.Ref {
	out := make([]entities.Ref, len(steps))
	for i, st := range steps {
		out[i] = st.ref
	}
	return out
}
