package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooks(t *testing.T) {
	ctx := context.Background()

	// Calls must not panic.
	g := NoopGraphHooks{}
	g.OnLoad(ctx, "package:react", 3, 2, 0, time.Second, nil)
	g.OnResolve(ctx, "react", 2, 10, time.Second, errors.New("boom"))

	ty := NoopTyposquatHooks{}
	ty.OnLookupStart(ctx, "react")
	ty.OnDelivered(ctx, "react", 2)
	ty.OnStaleDiscard(ctx, "react", "vue")
	ty.OnLookupFailed(ctx, "react", errors.New("boom"))

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "http")
	c.OnCacheMiss(ctx, "http")
	c.OnCacheSet(ctx, "http", 100)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "registry.npmjs.org", "/react")
	h.OnResponse(ctx, "GET", "registry.npmjs.org", "/react", 200, time.Second)
	h.OnError(ctx, "GET", "registry.npmjs.org", "/react", errors.New("boom"))
}

func TestDefaults(t *testing.T) {
	Reset()

	if _, ok := Graph().(NoopGraphHooks); !ok {
		t.Errorf("Graph() = %T, want NoopGraphHooks", Graph())
	}
	if _, ok := Typosquat().(NoopTyposquatHooks); !ok {
		t.Errorf("Typosquat() = %T, want NoopTyposquatHooks", Typosquat())
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Errorf("Cache() = %T, want NoopCacheHooks", Cache())
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Errorf("HTTP() = %T, want NoopHTTPHooks", HTTP())
	}
}

func TestSetAndReset(t *testing.T) {
	t.Cleanup(Reset)

	SetGraphHooks(&testGraphHooks{})
	SetTyposquatHooks(&testTyposquatHooks{})
	SetCacheHooks(&testCacheHooks{})
	SetHTTPHooks(&testHTTPHooks{})

	if _, ok := Graph().(*testGraphHooks); !ok {
		t.Errorf("Graph() = %T after set", Graph())
	}
	if _, ok := Typosquat().(*testTyposquatHooks); !ok {
		t.Errorf("Typosquat() = %T after set", Typosquat())
	}
	if _, ok := Cache().(*testCacheHooks); !ok {
		t.Errorf("Cache() = %T after set", Cache())
	}
	if _, ok := HTTP().(*testHTTPHooks); !ok {
		t.Errorf("HTTP() = %T after set", HTTP())
	}

	Reset()

	if _, ok := Typosquat().(NoopTyposquatHooks); !ok {
		t.Errorf("Typosquat() = %T after Reset", Typosquat())
	}
}

func TestSetNilIgnored(t *testing.T) {
	t.Cleanup(Reset)

	custom := &testTyposquatHooks{}
	SetTyposquatHooks(custom)
	SetTyposquatHooks(nil)

	if Typosquat() != custom {
		t.Error("SetTyposquatHooks(nil) should be ignored")
	}

	SetGraphHooks(nil)
	if _, ok := Graph().(NoopGraphHooks); !ok {
		t.Error("SetGraphHooks(nil) should be ignored")
	}
}

func TestCustomHooksReceiveEvents(t *testing.T) {
	t.Cleanup(Reset)

	rec := &testTyposquatHooks{}
	SetTyposquatHooks(rec)

	ctx := context.Background()
	Typosquat().OnStaleDiscard(ctx, "a", "b")
	Typosquat().OnStaleDiscard(ctx, "b", "")

	if rec.stale != 2 {
		t.Errorf("stale = %d, want 2", rec.stale)
	}
}

// Test implementations
type testGraphHooks struct{ NoopGraphHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }

type testTyposquatHooks struct {
	NoopTyposquatHooks
	stale int
}

func (h *testTyposquatHooks) OnStaleDiscard(context.Context, string, string) { h.stale++ }
