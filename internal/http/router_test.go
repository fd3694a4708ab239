package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-messenger-store/internal/config"
)

type fakeStore struct{ ready atomic.Bool }

func (f *fakeStore) Ready() bool { return f.ready.Load() }

func newRouter(t *testing.T, deps Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{Driver: config.DriverSQLite, OTEL: config.OTELConfig{ServiceName: "messenger-test"}}
	return NewRouter(cfg, deps)
}

func get(r http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r := newRouter(t, Deps{Store: &fakeStore{}})

	w, body := get(r, "/health")
	if w.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("GET /health = %d %v", w.Code, body)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID")
	}

	w, _ = get(r, "/metrics")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ops_http_requests_total") {
		t.Fatalf("GET /metrics = %d, body lacks ops metrics", w.Code)
	}
}

func TestRouter_ReadyFollowsStore(t *testing.T) {
	st := &fakeStore{}
	r := newRouter(t, Deps{Store: st})

	w, body := get(r, "/ready")
	if w.Code != http.StatusServiceUnavailable || body["status"] != "connecting" {
		t.Fatalf("before connect: %d %v", w.Code, body)
	}

	st.ready.Store(true)
	w, body = get(r, "/ready")
	if w.Code != http.StatusOK || body["status"] != "ready" || body["driver"] != config.DriverSQLite {
		t.Fatalf("after connect: %d %v", w.Code, body)
	}
}

func TestRouter_ReadyReportsMissingTables(t *testing.T) {
	st := &fakeStore{}
	st.ready.Store(true)

	missing := []string{"messages"}
	var checkErr error
	r := newRouter(t, Deps{Store: st, Tables: func(ctx context.Context) ([]string, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("table check without deadline")
		}
		return missing, checkErr
	}})

	w, body := get(r, "/ready")
	if w.Code != http.StatusServiceUnavailable || body["status"] != "schema_incomplete" {
		t.Fatalf("missing tables: %d %v", w.Code, body)
	}

	checkErr = errors.New("timeout")
	w, body = get(r, "/ready")
	if w.Code != http.StatusServiceUnavailable || body["status"] != "unknown" {
		t.Fatalf("check error: %d %v", w.Code, body)
	}

	missing, checkErr = nil, nil
	if w, _ = get(r, "/ready"); w.Code != http.StatusOK {
		t.Fatalf("complete schema: %d", w.Code)
	}
}

func TestRouter_Fallbacks(t *testing.T) {
	r := newRouter(t, Deps{Store: &fakeStore{}})

	w, body := get(r, "/api/v1/messages")
	if w.Code != http.StatusNotFound || body["code"] != "not_found" {
		t.Fatalf("404 fallback: %d %v", w.Code, body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("405 fallback: %d", w.Code)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	r := newRouter(t, Deps{Store: &fakeStore{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, l, r, zerolog.Nop()) }()

	url := "http://" + l.Addr().String() + "/health"
	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err = http.Get(url)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return after cancel")
	}
}
