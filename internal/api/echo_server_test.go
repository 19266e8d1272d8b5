package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/vamp/internal/codec"
	"github.com/samcharles93/vamp/internal/logger"
	"github.com/samcharles93/vamp/internal/vamp"
)

func newTestEcho(cfg Config) *echo.Echo {
	c := codec.NewSynthetic(0, 0, 4, 64)
	engine := &vamp.Engine{
		Coarse: &vamp.StubModel{Lo: 0, Hi: 2, Vocab: 64},
		Fine:   &vamp.StubModel{Lo: 2, Hi: 4, Vocab: 64},
		Codec:  c,
		Log:    logger.New(slog.NewTextHandler(io.Discard, nil)),
	}
	server := NewServer(engine, cfg, logger.New(slog.NewTextHandler(io.Discard, nil)))
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGenerateEndpoint(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	rec := doJSON(t, e, http.MethodPost, "/v1/generate",
		`{"steps":8,"seed":5,"coarse":{"iterations":3},"fine":{"iterations":2}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "gen_") {
		t.Fatalf("unexpected id %q", resp.ID)
	}
	if resp.Layers != 4 || resp.Steps != 8 || resp.Vocab != 64 {
		t.Fatalf("shape %d/%d/%d, want 4/8/64", resp.Layers, resp.Steps, resp.Vocab)
	}
	if len(resp.Tokens) != 4 || len(resp.Tokens[0]) != 8 {
		t.Fatalf("token matrix shape mismatch")
	}
	if len(resp.Waveform) != 0 {
		t.Fatalf("waveform returned without include_waveform")
	}
	if resp.CoarseStats.Iterations != 3 || resp.FineStats.Iterations != 2 {
		t.Fatalf("stats iterations %d/%d, want 3/2", resp.CoarseStats.Iterations, resp.FineStats.Iterations)
	}
}

func TestGenerateIncludesWaveform(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	rec := doJSON(t, e, http.MethodPost, "/v1/generate",
		`{"steps":4,"seed":2,"include_waveform":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Waveform) != 4*512 {
		t.Fatalf("waveform length %d, want %d", len(resp.Waveform), 4*512)
	}
	if resp.SampleRate != 44100 {
		t.Fatalf("sample rate %d, want 44100", resp.SampleRate)
	}
}

func TestGenerationLifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	createRec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"steps":4,"seed":9}`)
	if createRec.Code != http.StatusOK {
		t.Fatalf("create status: got %d body=%s", createRec.Code, createRec.Body.String())
	}

	var created GenerateResponse
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generation id")
	}

	getRec := doJSON(t, e, http.MethodGet, "/v1/generations/"+created.ID, "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", getRec.Code, getRec.Body.String())
	}

	delRec := doJSON(t, e, http.MethodDelete, "/v1/generations/"+created.ID, "")
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete status: got %d body=%s", delRec.Code, delRec.Body.String())
	}
	if !strings.Contains(delRec.Body.String(), `"deleted":true`) {
		t.Fatalf("delete response missing deleted=true: %s", delRec.Body.String())
	}

	getDeletedRec := doJSON(t, e, http.MethodGet, "/v1/generations/"+created.ID, "")
	if getDeletedRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d body=%s", getDeletedRec.Code, getDeletedRec.Body.String())
	}
}

func TestGenerateValidationErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})

	rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"steps":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero steps: expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "steps must be positive") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/generate", `{"steps":8,"coarse":{"filter":"bogus"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad filter: expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/generate", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}

	// Loop stitching without a prompt cannot work.
	rec = doJSON(t, e, http.MethodPost, "/v1/generate", `{"steps":8,"loop":true,"loop_width":2}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("loop without prompt: expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGenerateRateLimited(t *testing.T) {
	t.Parallel()

	// Burst of one with a negligible refill rate: the second request in the
	// same instant must be rejected.
	e := newTestEcho(Config{RequestsPerSecond: 0.0001, Burst: 1})

	rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"steps":4,"seed":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, e, http.MethodPost, "/v1/generate", `{"steps":4,"seed":1}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	rec := doJSON(t, e, http.MethodGet, "/v1/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("status %q, want ok", resp.Status)
	}
}
