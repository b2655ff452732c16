package compiler

import (
	"context"
	"sync"

	"github.com/GraphiteEditor/graphdoc/internal/graph"
	"github.com/GraphiteEditor/graphdoc/internal/log"
	"github.com/GraphiteEditor/graphdoc/internal/proto"
)

// Result is the outcome of one submitted compile. Exactly one of the fields
// is meaningful: a network, an error, or the superseded marker.
type Result struct {
	Network    *proto.Network
	Err        error
	Superseded bool
}

// Service runs compiles for documents with at most one live request per
// document: a newer submission supersedes an older one still running rather
// than queueing behind it. Cancellation is advisory; a superseded compile is
// allowed to finish and its result is discarded.
type Service struct {
	compiler *Compiler

	mu     sync.Mutex
	latest map[string]uint64
}

// NewService wraps a compiler in per-document supersede semantics.
func NewService(c *Compiler) *Service {
	return &Service{
		compiler: c,
		latest:   make(map[string]uint64),
	}
}

// Submit schedules a compile of the document's network. The network is
// cloned synchronously, so the caller may keep editing it immediately. The
// returned channel delivers exactly one Result.
func (s *Service) Submit(ctx context.Context, documentID string, network *graph.NodeNetwork) <-chan Result {
	s.mu.Lock()
	s.latest[documentID]++
	generation := s.latest[documentID]
	s.mu.Unlock()

	owned := network.Clone()
	out := make(chan Result, 1)
	go func() {
		resolved, err := s.compiler.Compile(ctx, owned)

		s.mu.Lock()
		current := s.latest[documentID]
		s.mu.Unlock()
		if current != generation {
			log.Debug(log.CatCompile, "discarding superseded compile",
				"document", documentID, "generation", generation)
			out <- Result{Superseded: true}
			return
		}
		out <- Result{Network: resolved, Err: err}
	}()
	return out
}
