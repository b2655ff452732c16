// Package compiler orchestrates the compile pass: validate the nested
// network, flatten it, check that no import slot was left open, and resolve
// every node into the executor-ready proto-network.
package compiler

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/GraphiteEditor/graphdoc/internal/cachemanager"
	"github.com/GraphiteEditor/graphdoc/internal/flatten"
	"github.com/GraphiteEditor/graphdoc/internal/graph"
	"github.com/GraphiteEditor/graphdoc/internal/log"
	"github.com/GraphiteEditor/graphdoc/internal/proto"
)

// CacheKey keys compiled results by the source network's content hash.
type CacheKey string

// DefaultCacheTTL bounds how long a compiled network stays cached.
const DefaultCacheTTL = 10 * time.Minute

// Compiler runs compile passes. Construct with New; the zero value is not
// usable.
type Compiler struct {
	tracer trace.Tracer
	cache  cachemanager.CacheManager[CacheKey, *proto.Network]
	seed   uint64
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithTracer sets the tracer for span instrumentation. A nil tracer keeps
// the default noop tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Compiler) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithCache enables reuse of compiled results across passes over unchanged
// networks.
func WithCache(cache cachemanager.CacheManager[CacheKey, *proto.Network]) Option {
	return func(c *Compiler) {
		c.cache = cache
	}
}

// WithSeed overrides the fresh-id seed. Two compilers with the same seed
// produce byte-identical output for the same input.
func WithSeed(seed uint64) Option {
	return func(c *Compiler) {
		c.seed = seed
	}
}

// New returns a Compiler with a noop tracer, no cache, and the default seed.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		tracer: noop.NewTracerProvider().Tracer("noop"),
		seed:   graph.DefaultIDSeed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile lowers a nested network into a proto-network. The input is not
// modified; the pass works on an owned clone. Repeated compiles of an
// unchanged network return byte-identical results. Results are read through
// the configured cache, keyed by content hash; failed passes are never
// cached.
func (c *Compiler) Compile(ctx context.Context, network *graph.NodeNetwork) (*proto.Network, error) {
	ctx, span := c.tracer.Start(ctx, "compiler.compile",
		trace.WithAttributes(attribute.Int("graph.nodes", len(network.Nodes))))
	defer span.End()

	key := CacheKey(fmt.Sprintf("%016x", network.ContentHash()))
	span.SetAttributes(attribute.String("graph.content_hash", string(key)))

	ran := false
	passes := cachemanager.NewReadThroughCache(c.cache,
		func(ctx context.Context, network *graph.NodeNetwork) (*proto.Network, error) {
			ran = true
			return c.compile(ctx, network)
		}, c.cache == nil)
	resolved, err := passes.Get(ctx, key, network, DefaultCacheTTL)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", !ran))
	return resolved, nil
}

// compile runs the full pass on a cache miss.
func (c *Compiler) compile(ctx context.Context, network *graph.NodeNetwork) (*proto.Network, error) {
	span := trace.SpanFromContext(ctx)

	if err := network.Validate(); err != nil {
		span.RecordError(err)
		log.ErrorErr(log.CatCompile, "network validation failed", err)
		return nil, err
	}

	working := network.Clone()
	gen := graph.NewIDGenerator(c.seed)
	if err := flatten.FlattenAll(working, gen); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if len(working.Exports) > 0 {
		if root, ok := graph.AsNodeRef(working.Exports[0]); ok {
			if err := flatten.CheckResolved(working, root.NodeID); err != nil {
				span.RecordError(err)
				return nil, err
			}
		}
	}

	resolved, err := proto.ResolveNetwork(working)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	log.Info(log.CatCompile, "compile pass complete",
		"nodes", len(resolved.Nodes), "inputs", len(resolved.Inputs))
	return resolved, nil
}
