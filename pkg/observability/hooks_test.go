package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnLoadComplete(ctx, "ccsd.yaml", 2, time.Second, nil)
	p.OnBinarizeComplete(ctx, "r2", 17, time.Millisecond, nil)
	p.OnRunComplete(ctx, 2, time.Second, nil)

	// Eval hooks
	e := NoopEvalHooks{}
	e.OnEvaluateStart(ctx, "run", 17)
	e.OnEvaluateComplete(ctx, "run", time.Second, nil)
	e.OnLeafYield(ctx, "g", time.Millisecond, nil)
	e.OnCombine(ctx, "product", time.Millisecond)
	e.OnPostProcess(ctx, "antisymmetrize", 4, time.Millisecond)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "leaf")
	c.OnCacheMiss(ctx, "product")
	c.OnCacheStore(ctx, "sum", "decaying")
	c.OnCacheReset(ctx, "all", 3)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Eval().(NoopEvalHooks); !ok {
		t.Error("Eval() should return NoopEvalHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	// Set custom hooks
	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customEval := &testEvalHooks{}
	SetEvalHooks(customEval)
	if Eval() != customEval {
		t.Error("SetEvalHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Eval().(NoopEvalHooks); !ok {
		t.Error("Reset() should restore NoopEvalHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testEvalHooks{}
	SetEvalHooks(custom)

	// Setting nil should be ignored
	SetEvalHooks(nil)

	if Eval() != custom {
		t.Error("SetEvalHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testPipelineHooks struct{ NoopPipelineHooks }
type testEvalHooks struct{ NoopEvalHooks }
type testCacheHooks struct{ NoopCacheHooks }
