package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowtorch/errors"
	"github.com/kbukum/flowtorch/logger"
	"github.com/kbukum/flowtorch/observability"
	"github.com/kbukum/flowtorch/plugins/torch"
	"github.com/kbukum/flowtorch/registry"
	"github.com/kbukum/flowtorch/server/middleware"
	"github.com/kbukum/flowtorch/storage/memory"
	"github.com/kbukum/flowtorch/transpiler"
)

const linearGraph = `{"nodes":[{"id":"fc","type":"linear","settings":{"inFeatures":4,"outFeatures":2}}],"edges":[]}`

type envelope struct {
	Data json.RawMessage `json:"data"`
	Meta *Meta           `json:"meta"`
}

func newTestServer(t *testing.T, cfg Config, mutate func(*API)) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := registry.NewLocal()
	if err := torch.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	api := API{
		Service:    "flowtorch",
		Version:    "test",
		Transpiler: transpiler.NewService(reg, transpiler.Config{}),
	}
	if mutate != nil {
		mutate(&api)
	}
	s := New(cfg, logger.Nop())
	s.ApplyMiddleware()
	s.RegisterAPI(api)
	return s
}

func do(t *testing.T, s *Server, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, v any) *Meta {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response %q: %v", rr.Body.String(), err)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("invalid data %s: %v", env.Data, err)
	}
	return env.Meta
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) errors.ErrorBody {
	t.Helper()
	var resp errors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error response %q: %v", rr.Body.String(), err)
	}
	return resp.Error
}

func TestTranspile_OK(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	rr := do(t, s, http.MethodPost, "/v1/transpile", linearGraph, map[string]string{middleware.HeaderRequestID: "req-42"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var res transpiler.Result
	decodeData(t, rr, &res)
	if res.RunID != "req-42" {
		t.Errorf("expected run id from request id, got %q", res.RunID)
	}
	art, ok := res.Artifacts["fc"]
	if !ok {
		t.Fatalf("expected artifact for fc, got %v", res.Artifacts)
	}
	if !strings.Contains(art.Code, "nn.Linear(4, 2)") {
		t.Errorf("unexpected code %q", art.Code)
	}
	if rr.Header().Get(middleware.HeaderRequestID) != "req-42" {
		t.Error("expected request id to be echoed")
	}
}

func TestTranspile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   errors.ErrorCode
	}{
		{"malformed json", `{"nodes":`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"empty body", ``, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"no nodes", `{"nodes":[]}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"cycle", `{"nodes":[{"id":"a","type":"relu"},{"id":"b","type":"relu"}],"edges":[{"source":"a","target":"b"},{"source":"b","target":"a"}]}`,
			http.StatusUnprocessableEntity, errors.ErrCodeGraphCycle},
		{"dangling edge", `{"nodes":[{"id":"a","type":"relu"}],"edges":[{"source":"a","target":"ghost"}]}`,
			http.StatusUnprocessableEntity, errors.ErrCodeInvalidGraph},
	}
	s := newTestServer(t, Config{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, http.MethodPost, "/v1/transpile", tt.body, nil)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if body := decodeErr(t, rr); body.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, body.Code)
			}
		})
	}
}

func TestTranspile_NodeFailureIsPartial(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	body := `{"nodes":[{"id":"ok","type":"relu"},{"id":"bad","type":"linear","settings":{"inFeatures":-1,"outFeatures":2}}]}`
	rr := do(t, s, http.MethodPost, "/v1/transpile", body, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var res transpiler.Result
	decodeData(t, rr, &res)
	if _, ok := res.Artifacts["ok"]; !ok {
		t.Error("expected artifact for ok")
	}
	if f := res.Failures["bad"]; f == nil || f.Code != errors.ErrCodeSettingsInvalid {
		t.Errorf("expected SETTINGS_INVALID for bad, got %+v", f)
	}
}

func TestTranspile_PayloadTooLarge(t *testing.T) {
	s := newTestServer(t, Config{MaxBodySize: "32B"}, nil)
	rr := do(t, s, http.MethodPost, "/v1/transpile", linearGraph, nil)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
	if body := decodeErr(t, rr); body.Code != errors.ErrCodePayloadTooLarge {
		t.Errorf("expected PAYLOAD_TOO_LARGE, got %s", body.Code)
	}
}

func TestTranspile_Export(t *testing.T) {
	store := memory.New()
	s := newTestServer(t, Config{ExportPrefix: "out"}, func(api *API) { api.Store = store })
	rr := do(t, s, http.MethodPost, "/v1/transpile?export=true", linearGraph, map[string]string{middleware.HeaderRequestID: "run-1"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var res transpiler.Result
	meta := decodeData(t, rr, &res)
	if meta == nil || len(meta.Exported) != 1 || meta.Exported[0] != "out/run-1/fc.py" {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if ok, _ := store.Exists(context.Background(), "out/run-1/fc.py"); !ok {
		t.Error("expected artifact in storage")
	}
}

func TestTranspile_ExportErrors(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	rr := do(t, s, http.MethodPost, "/v1/transpile?export=true", linearGraph, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without storage, got %d", rr.Code)
	}
	rr = do(t, s, http.MethodPost, "/v1/transpile?export=maybe", linearGraph, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad flag, got %d", rr.Code)
	}
}

func TestTranspile_RateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{Rate: 0.001, Burst: 1})
	s := newTestServer(t, Config{}, func(api *API) { api.Limiter = limiter })

	if rr := do(t, s, http.MethodPost, "/v1/transpile", linearGraph, nil); rr.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rr.Code)
	}
	rr := do(t, s, http.MethodPost, "/v1/transpile", linearGraph, nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr := do(t, s, http.MethodGet, "/v1/plugins", "", nil); rr.Code != http.StatusOK {
		t.Errorf("plugin catalog must not be throttled, got %d", rr.Code)
	}
}

func TestPlugins(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	rr := do(t, s, http.MethodGet, "/v1/plugins", "", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var defs []struct {
		Slug      string `json:"slug"`
		Namespace string `json:"namespace"`
	}
	meta := decodeData(t, rr, &defs)
	if len(defs) != len(torch.Plugins()) || meta == nil || meta.Total != len(defs) {
		t.Fatalf("expected %d plugins, got %d (meta %+v)", len(torch.Plugins()), len(defs), meta)
	}
	if defs[0].Namespace != torch.Namespace {
		t.Errorf("unexpected namespace %q", defs[0].Namespace)
	}
}

func TestHealth(t *testing.T) {
	up := observability.HealthFunc(func(context.Context) observability.Health {
		return observability.Health{Name: "registry", Status: observability.HealthStatusUp}
	})
	down := observability.HealthFunc(func(context.Context) observability.Health {
		return observability.Health{Name: "formatter", Status: observability.HealthStatusDown, Message: "ruff not found"}
	})
	tests := []struct {
		name     string
		checkers []observability.HealthChecker
		status   int
	}{
		{"no checkers", nil, http.StatusOK},
		{"all up", []observability.HealthChecker{up}, http.StatusOK},
		{"one down", []observability.HealthChecker{up, down}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Config{}, func(api *API) { api.Checkers = tt.checkers })
			rr := do(t, s, http.MethodGet, "/health", "", nil)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			var sh observability.ServiceHealth
			if err := json.Unmarshal(rr.Body.Bytes(), &sh); err != nil {
				t.Fatal(err)
			}
			if sh.Service != "flowtorch" || len(sh.Components) != len(tt.checkers) {
				t.Errorf("unexpected health %+v", sh)
			}
		})
	}
}

func TestInfo(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	rr := do(t, s, http.MethodGet, "/info", "", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"service":"flowtorch"`) {
		t.Fatalf("unexpected response %d %s", rr.Code, rr.Body.String())
	}
}

func TestNoRouteAndMethod(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	rr := do(t, s, http.MethodGet, "/v2/nothing", "", nil)
	if rr.Code != http.StatusNotFound || decodeErr(t, rr).Code != errors.ErrCodeNotFound {
		t.Errorf("expected JSON 404, got %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, s, http.MethodGet, "/v1/transpile", "", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	routes := s.Routes()
	var got []string
	for _, r := range routes {
		got = append(got, r.Method+" "+r.Path)
	}
	want := "GET /v1/plugins,POST /v1/transpile,GET /health,GET /info"
	if strings.Join(got, ",") != want {
		t.Fatalf("routes = %v, want %s", got, want)
	}
	if routes[1].Handler != "handlers.transpile" {
		t.Errorf("unexpected handler name %q", routes[1].Handler)
	}
	if !routes[2].System || routes[0].System {
		t.Error("expected only health and info to be system routes")
	}
}

func TestStartStop(t *testing.T) {
	s := newTestServer(t, Config{Host: "127.0.0.1"}, nil)
	s.httpServer.Addr = "127.0.0.1:0"
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		err  bool
	}{
		{"", 0, false},
		{"512", 512, false},
		{"64kb", 64 << 10, false},
		{"2MB", 2 << 20, false},
		{" 1 GB ", 1 << 30, false},
		{"10B", 10, false},
		{"lots", 0, true},
		{"-1MB", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseSize(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestConfig(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.MaxBodyBytes() != 2<<20 {
		t.Errorf("expected 2MB default, got %d", cfg.MaxBodyBytes())
	}
	bad := []Config{
		{Port: 70000},
		{ReadTimeout: -1},
		{MaxBodySize: "huge"},
		{RateLimit: middleware.RateLimitConfig{Burst: -1}},
	}
	for _, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("expected %+v to be invalid", c)
		}
	}
}
