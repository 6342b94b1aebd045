package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Materialize hooks
	m := NoopMaterializeHooks{}
	m.OnMaterializeStart(ctx, "node-1")
	m.OnMaterializeComplete(ctx, "node-1", "/App.tsx", time.Millisecond, nil)
	m.OnReorder(ctx, "/App.tsx", "prev", nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "instrument")
	c.OnCacheMiss(ctx, "instrument")
	c.OnCacheSet(ctx, "artifact", 1024)

	// Protocol hooks
	p := NoopProtocolHooks{}
	p.OnSend(ctx, "frame-1", "inspection-mode")
	p.OnReceive(ctx, "frame-1", "inspector-ready")
	p.OnRequestResolved(ctx, "find-drop-target", "timeout", 500*time.Millisecond)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Materialize().(NoopMaterializeHooks); !ok {
		t.Error("Materialize() should return NoopMaterializeHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Protocol().(NoopProtocolHooks); !ok {
		t.Error("Protocol() should return NoopProtocolHooks by default")
	}

	// Set custom hooks
	customMaterialize := &testMaterializeHooks{}
	SetMaterializeHooks(customMaterialize)
	if Materialize() != customMaterialize {
		t.Error("SetMaterializeHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customProtocol := &testProtocolHooks{}
	SetProtocolHooks(customProtocol)
	if Protocol() != customProtocol {
		t.Error("SetProtocolHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Materialize().(NoopMaterializeHooks); !ok {
		t.Error("Reset() should restore NoopMaterializeHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testProtocolHooks{}
	SetProtocolHooks(custom)

	// Setting nil should be ignored
	SetProtocolHooks(nil)

	if Protocol() != custom {
		t.Error("SetProtocolHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testMaterializeHooks struct{ NoopMaterializeHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testProtocolHooks struct{ NoopProtocolHooks }
