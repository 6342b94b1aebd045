// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about materialization, cache operations, and the
// host/frame message protocol.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetMaterializeHooks(&myMaterializeHooks{})
//	    observability.SetProtocolHooks(&myProtocolHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Materialize().OnMaterializeStart(ctx, nodeID)
//	// ... synthesize, merge, insert ...
//	observability.Materialize().OnMaterializeComplete(ctx, nodeID, file, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Materialize Hooks
// =============================================================================

// MaterializeHooks receives events from the materializer.
type MaterializeHooks interface {
	OnMaterializeStart(ctx context.Context, nodeID string)
	OnMaterializeComplete(ctx context.Context, nodeID, file string, duration time.Duration, err error)

	// OnReorder records a sibling swap attempt.
	OnReorder(ctx context.Context, file, direction string, err error)
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
// Protocol Hooks
// =============================================================================

// ProtocolHooks receives events from the host side of the frame protocol.
type ProtocolHooks interface {
	// OnSend records an outgoing message to one frame.
	OnSend(ctx context.Context, frameID, msgType string)

	// OnReceive records an incoming message from one frame.
	OnReceive(ctx context.Context, frameID, msgType string)

	// OnRequestResolved records how a request/response exchange ended:
	// "answered", "timeout", "superseded", "cancelled" or "no-frame".
	OnRequestResolved(ctx context.Context, msgType, outcome string, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopMaterializeHooks is a no-op implementation of MaterializeHooks.
type NoopMaterializeHooks struct{}

func (NoopMaterializeHooks) OnMaterializeStart(context.Context, string) {}
func (NoopMaterializeHooks) OnMaterializeComplete(context.Context, string, string, time.Duration, error) {
}
func (NoopMaterializeHooks) OnReorder(context.Context, string, string, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopProtocolHooks is a no-op implementation of ProtocolHooks.
type NoopProtocolHooks struct{}

func (NoopProtocolHooks) OnSend(context.Context, string, string)                           {}
func (NoopProtocolHooks) OnReceive(context.Context, string, string)                        {}
func (NoopProtocolHooks) OnRequestResolved(context.Context, string, string, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	materializeHooks MaterializeHooks = NoopMaterializeHooks{}
	cacheHooks       CacheHooks       = NoopCacheHooks{}
	protocolHooks    ProtocolHooks    = NoopProtocolHooks{}
	hooksMu          sync.RWMutex
)

// SetMaterializeHooks registers custom materialize hooks.
// This should be called once at application startup.
func SetMaterializeHooks(h MaterializeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		materializeHooks = h
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

// SetProtocolHooks registers custom protocol hooks.
// This should be called once at application startup before any frame connects.
func SetProtocolHooks(h ProtocolHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		protocolHooks = h
	}
}

// Materialize returns the registered materialize hooks.
func Materialize() MaterializeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return materializeHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Protocol returns the registered protocol hooks.
func Protocol() ProtocolHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return protocolHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	materializeHooks = NoopMaterializeHooks{}
	cacheHooks = NoopCacheHooks{}
	protocolHooks = NoopProtocolHooks{}
}
