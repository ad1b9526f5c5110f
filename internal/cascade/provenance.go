package cascade

import (
	"sync"
	"time"

	"github.com/lifeplanner/core/internal/domain/entities"
)

// Derivation records why an entity was archived.
type Derivation string

const (
	// DerivationOrigin marks the entity the user archived directly.
	DerivationOrigin Derivation = "origin"
	// DerivationCascade marks an entity archived because an ancestor was.
	DerivationCascade Derivation = "cascade"
)

// Provenance is the ledger entry written for every successful archive call
// a cascade issues.
type Provenance struct {
	Operation  string
	Origin     entities.Ref
	Derivation Derivation
	At         time.Time
}

// Ledger is the in-memory provenance side table. Each entity keeps only the
// record of the latest operation that archived it, and each origin keeps the
// id of its latest archive operation.
type Ledger struct {
	mu      sync.RWMutex
	records map[entities.Ref]Provenance
	latest  map[entities.Ref]string
}

func NewLedger() *Ledger {
	return &Ledger{
		records: make(map[entities.Ref]Provenance),
		latest:  make(map[entities.Ref]string),
	}
}

func (l *Ledger) Record(ref entities.Ref, p Provenance) {
	l.mu.Lock()
	l.records[ref] = p
	l.mu.Unlock()
}

func (l *Ledger) Lookup(ref entities.Ref) (Provenance, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.records[ref]
	return p, ok
}

// Forget drops the record of ref once it has been restored.
func (l *Ledger) Forget(ref entities.Ref) {
	l.mu.Lock()
	delete(l.records, ref)
	l.mu.Unlock()
}

// Latest returns the id of the most recent archive operation started at origin.
func (l *Ledger) Latest(origin entities.Ref) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	op, ok := l.latest[origin]
	return op, ok
}

func (l *Ledger) setLatest(origin entities.Ref, op string) {
	l.mu.Lock()
	l.latest[origin] = op
	l.mu.Unlock()
}

func (l *Ledger) clearLatest(origin entities.Ref, op string) {
	l.mu.Lock()
	if l.latest[origin] == op {
		delete(l.latest, origin)
	}
	l.mu.Unlock()
}

// Len returns the number of entities with a live record.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
