// Package scope implements the profiling scope every stage opens around a
// unit of work (spec §4.6). A Scope acquires a metrics child on Open and,
// on Close, emits the elapsed wall time under the scope's name and rolls
// the child up into its parent. Scopes nest for free: opening a scope
// inside a worker that is itself inside a scope just creates another child
// one level deeper.
//
// Profiling is not part of the pipeline's correctness: misuse (double
// close) is logged, never raised.
package scope

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oriys/pocketetl/spi"
)

// Scope is a single scoped acquisition of a metrics child.
type Scope struct {
	name   string
	parent spi.Metrics
	child  spi.Metrics
	start  time.Time

	mu     sync.Mutex
	closed bool
}

// Open acquires a child of parent and starts the scope's timer. parent must
// not be nil.
func Open(name string, parent spi.Metrics) *Scope {
	return &Scope{
		name:   name,
		parent: parent,
		child:  parent.CreateChildMetrics(),
		start:  time.Now(),
	}
}

// Metrics returns the scope's child sink, for use by the work the scope
// wraps.
func (s *Scope) Metrics() spi.Metrics { return s.child }

// Close emits the scope's elapsed time on the parent and releases the
// child. Closing an already-closed scope is logged and otherwise ignored.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		slog.Warn("pocketetl: profiling scope closed more than once", "scope", s.name)
		return
	}
	s.closed = true
	elapsedMs := float64(time.Since(s.start)) / float64(time.Millisecond)
	s.parent.AddTime(s.name, elapsedMs)
	s.child.Close()
}
