// Package observability provides hooks for metrics, tracing, and logging.
//
// Instrumentation is optional: the engine runner, the caches and the
// solution stores report events to globally registered hooks, and the
// defaults do nothing. Binaries that want telemetry register an
// implementation at startup; [OTelHooks] forwards everything to
// OpenTelemetry.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Libraries import only this package, never a telemetry backend, and
// hooks are registered by main so no import cycles arise.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    h, _ := observability.NewOTelHooks(tracer, meter)
//	    observability.SetEngineHooks(h)
//	    observability.SetCacheHooks(h)
//	    observability.SetStoreHooks(h)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Engine().OnTreeStart(ctx, root)
//	// ... build the tree ...
//	observability.Engine().OnTreeComplete(ctx, root, nodes, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Engine Hooks
// =============================================================================

// EngineHooks receives events from the analysis runner.
type EngineHooks interface {
	// Dependency-tree events
	OnTreeStart(ctx context.Context, root string)
	OnTreeComplete(ctx context.Context, root string, nodes int, duration time.Duration, err error)

	// Layout events
	OnLayoutStart(ctx context.Context, root string, expanded int)
	OnLayoutComplete(ctx context.Context, root string, nodes int, duration time.Duration, err error)

	// Derivative events
	OnDerivativeStart(ctx context.Context, root, method string)
	OnDerivativeComplete(ctx context.Context, root, method string, partials int, duration time.Duration, err error)

	// Render events
	OnRenderStart(ctx context.Context, format string)
	OnRenderComplete(ctx context.Context, format string, size int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from solution stores.
type StoreHooks interface {
	// OnQuery records the start of a store operation. backend is "mongo",
	// "sqlite" or "memory"; op is the Store method ("get", "list", "entity").
	OnQuery(ctx context.Context, backend, op string)

	// OnQueryComplete records the end of a store operation.
	OnQueryComplete(ctx context.Context, backend, op string, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEngineHooks is a no-op implementation of EngineHooks.
type NoopEngineHooks struct{}

func (NoopEngineHooks) OnTreeStart(context.Context, string)                                {}
func (NoopEngineHooks) OnTreeComplete(context.Context, string, int, time.Duration, error)   {}
func (NoopEngineHooks) OnLayoutStart(context.Context, string, int)                         {}
func (NoopEngineHooks) OnLayoutComplete(context.Context, string, int, time.Duration, error) {}
func (NoopEngineHooks) OnDerivativeStart(context.Context, string, string)                  {}
func (NoopEngineHooks) OnDerivativeComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopEngineHooks) OnRenderStart(context.Context, string)                                {}
func (NoopEngineHooks) OnRenderComplete(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnQuery(context.Context, string, string)                                {}
func (NoopStoreHooks) OnQueryComplete(context.Context, string, string, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	engineHooks EngineHooks = NoopEngineHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	storeHooks  StoreHooks  = NoopStoreHooks{}
	hooksMu     sync.RWMutex
)

// SetEngineHooks registers custom engine hooks.
// This should be called once at application startup.
func SetEngineHooks(h EngineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		engineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// Engine returns the registered engine hooks.
func Engine() EngineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return engineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// TrackQuery reports the start of a store operation and returns a function
// that reports its end:
//
//	done := observability.TrackQuery(ctx, "mongo", "get")
//	defer func() { done(err) }()
func TrackQuery(ctx context.Context, backend, op string) func(error) {
	h := Store()
	h.OnQuery(ctx, backend, op)
	start := time.Now()
	return func(err error) {
		h.OnQueryComplete(ctx, backend, op, time.Since(start), err)
	}
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	engineHooks = NoopEngineHooks{}
	cacheHooks = NoopCacheHooks{}
	storeHooks = NoopStoreHooks{}
}
