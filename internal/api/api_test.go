package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/andresuchdata/rop-engine/internal/api/middleware"
	"github.com/andresuchdata/rop-engine/internal/config"
	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/andresuchdata/rop-engine/internal/pipeline"
	"github.com/andresuchdata/rop-engine/internal/repository/memory"
	"github.com/andresuchdata/rop-engine/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	store  *memory.Store
	part   int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	stores := service.Stores{ROP: store, Runs: store, Inventory: store, History: store, Orders: store}
	cfg := config.DefaultROPConfig()
	svc := service.NewROPService(cfg, stores, nil, nil).WithClock(func() time.Time { return testNow })

	part := store.AddPart("Resistor 10k", "R-10K")
	supplier := store.AddSupplier("Acme Components", true)
	lead := 7
	store.LinkSupplier(part, supplier, &lead)
	store.SetStock(part, decimal.NewFromInt(5))
	for i := 1; i <= 5; i++ {
		store.AddMovements(domain.StockMovement{
			PartID: part, Quantity: decimal.NewFromInt(45), Type: domain.MovementRemoved, OccurredAt: testNow.AddDate(0, 0, -10*i),
		})
	}
	safety := decimal.NewFromInt(10)
	_, err := svc.UpdatePolicy(context.Background(), part, domain.PolicyUpdate{SafetyStock: &safety})
	require.NoError(t, err)

	router := NewRouter(&Services{
		ROPService:    svc,
		Orchestrator:  pipeline.NewOrchestrator(store, store, svc, pipeline.BatchConfigFrom(cfg)),
		ReportService: service.NewReportService(svc, t.TempDir(), nil),
	}, nil)

	return &testServer{router: router, store: store, part: part}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)
	id := "4f6d1c36-6c1f-4d7e-8d8b-2b0f7b8f2a11"

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, id)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, id, w.Header().Get(middleware.RequestIDHeader))
}

func TestSuggestionWorkflow(t *testing.T) {
	s := newTestServer(t)
	partPath := "/api/v1/rop/parts/" + itoa(s.part)

	w := s.do(t, http.MethodPost, partPath+"/calculate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	outcome := decode[domain.CalculationOutcome](t, w)
	assert.Equal(t, domain.StateNeedsReorder, outcome.State)
	require.NotNil(t, outcome.Suggestion)
	assert.Equal(t, "50", outcome.Suggestion.SuggestedOrderQty.String())

	w = s.do(t, http.MethodGet, "/api/v1/rop/suggestions?min_urgency=10&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listing := decode[struct {
		Suggestions []domain.SuggestionView `json:"suggestions"`
		Count       int                     `json:"count"`
	}](t, w)
	require.Equal(t, 1, listing.Count)
	assert.Equal(t, "R-10K", listing.Suggestions[0].PartIPN)

	w = s.do(t, http.MethodGet, partPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	details := decode[domain.PartDetails](t, w)
	assert.True(t, details.HasPolicy)
	require.NotNil(t, details.PendingSuggestion)

	id := outcome.Suggestion.ID
	w = s.do(t, http.MethodPost, "/api/v1/rop/purchase-orders", gin.H{"suggestion_id": id})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		PurchaseOrder domain.PurchaseOrder `json:"purchase_order"`
	}](t, w)
	assert.Equal(t, "ROP-20240510-"+itoa(id), created.PurchaseOrder.Reference)

	w = s.do(t, http.MethodPost, "/api/v1/rop/purchase-orders", gin.H{"suggestion_id": id})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/rop/suggestions/"+itoa(id)+"/dismiss", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown part", http.MethodGet, "/api/v1/rop/parts/999", nil, http.StatusNotFound},
		{"bad part id", http.MethodPost, "/api/v1/rop/parts/abc/calculate", nil, http.StatusBadRequest},
		{"unknown suggestion", http.MethodPost, "/api/v1/rop/suggestions/999/dismiss", nil, http.StatusNotFound},
		{"missing suggestion id", http.MethodPost, "/api/v1/rop/purchase-orders", gin.H{}, http.StatusBadRequest},
		{"invalid service level", http.MethodPut, "/api/v1/rop/parts/" + itoa(s.part) + "/policy", gin.H{"service_level": 20}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			body := decode[map[string]any](t, w)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestUpdatePolicy(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPut, "/api/v1/rop/parts/"+itoa(s.part)+"/policy", gin.H{
		"service_level":               90,
		"use_calculated_safety_stock": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	policy := decode[domain.Policy](t, w)
	assert.Equal(t, 90, policy.ServiceLevel)
	assert.True(t, policy.UseCalculatedSafetyStock)
}

func TestCalculateAllAndRuns(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/rop/calculate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	run := decode[domain.CalculationRun](t, w)
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, 1, run.TotalParts)
	assert.Equal(t, 1, run.SuggestionCount)

	w = s.do(t, http.MethodGet, "/api/v1/rop/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	runs := decode[struct {
		Runs []domain.CalculationRun `json:"runs"`
	}](t, w)
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, run.ID, runs.Runs[0].ID)
}

func TestExportPending(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/rop/parts/"+itoa(s.part)+"/calculate", nil).Code)

	w := s.do(t, http.MethodPost, "/api/v1/rop/reports/pending", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode[service.ExportResult](t, w)
	assert.Equal(t, 1, result.Rows)
	assert.FileExists(t, result.Path)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " "})
	assert.False(t, all)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
