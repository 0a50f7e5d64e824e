package admin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/valyala/fasthttp"

	"github.com/coactor/machine/pkg/concurrency"
	"github.com/coactor/machine/pkg/echo"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	pool := concurrency.NewExecutorPool(concurrency.PoolConfig{ThreadCount: 2, BindExecutorToThread: true})
	t.Cleanup(func() { pool.Shutdown(context.Background()) })

	svc := echo.NewService(pool, nil)
	if err := svc.Start(); err != nil {
		t.Fatalf("svc.Start() error = %v", err)
	}

	return NewServer("127.0.0.1:0", svc, pool, nil)
}

func requestCtx(path string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI(path)
	return ctx
}

func TestStatusEndpointReportsServiceState(t *testing.T) {
	s := newTestServer(t)

	ctx := requestCtx("/status")
	s.handle(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status code = %d, want 200", ctx.Response.StatusCode())
	}

	var snap StatusSnapshot
	if err := json.Unmarshal(ctx.Response.Body(), &snap); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if snap.ServiceState != "Running" {
		t.Errorf("ServiceState = %q, want Running", snap.ServiceState)
	}
	if snap.Connections != 0 {
		t.Errorf("Connections = %d, want 0", snap.Connections)
	}
}

func TestMetricsEndpointServesPrometheusExposition(t *testing.T) {
	s := newTestServer(t)

	ctx := requestCtx("/metrics")
	s.handle(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status code = %d, want 200", ctx.Response.StatusCode())
	}
	if len(ctx.Response.Body()) == 0 {
		t.Error("expected non-empty metrics exposition body")
	}
}

func TestUnknownPathReturnsNotFound(t *testing.T) {
	s := newTestServer(t)

	ctx := requestCtx("/nope")
	s.handle(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Errorf("status code = %d, want 404", ctx.Response.StatusCode())
	}
}
