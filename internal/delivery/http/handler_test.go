package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartration/backend/config"
	"github.com/smartration/backend/internal/domain"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type mockReceiptScanner struct {
	scanFunc  func(ctx context.Context, request *domain.ScanRequest) (*domain.ScanResult, error)
	parseFunc func(ctx context.Context, annotations []domain.TextAnnotation, debug bool) (*domain.ReceiptRecord, []domain.LineDecision, error)
}

func (m *mockReceiptScanner) Scan(ctx context.Context, request *domain.ScanRequest) (*domain.ScanResult, error) {
	return m.scanFunc(ctx, request)
}

func (m *mockReceiptScanner) ParseAnnotations(ctx context.Context, annotations []domain.TextAnnotation, debug bool) (*domain.ReceiptRecord, []domain.LineDecision, error) {
	return m.parseFunc(ctx, annotations, debug)
}

type mockMealPlanner struct {
	err error
}

func (m *mockMealPlanner) GenerateMealPlan(ctx context.Context, request *domain.MealPlanRequest) (*domain.MealPlan, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.MealPlan{Source: "llm", Days: []domain.DayPlan{{Day: "Day 1"}}}, nil
}

type mockShoppingList struct {
	got *domain.ShoppingListRequest
}

func (m *mockShoppingList) Generate(ctx context.Context, request *domain.ShoppingListRequest) (*domain.ShoppingList, error) {
	m.got = request
	if request.Budget <= 0 {
		return nil, fmt.Errorf("%w: budget must be positive", domain.ErrInvalidRequest)
	}
	return &domain.ShoppingList{
		Name:     "7-Day Budget Shopping List",
		Metadata: domain.ShoppingListMetadata{GeneratedBy: "fallback-database"},
	}, nil
}

type mockExporter struct{}

func (mockExporter) ReceiptXLSX(record *domain.ReceiptRecord) ([]byte, error) {
	return []byte("PK-xlsx"), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Vision:    config.VisionConfig{APIKey: "test-api-key"},
		Cache:     config.CacheConfig{Type: "memory"},
		RateLimit: config.RateLimitConfig{PerIP: 1000},
	}
}

func sampleRecord() *domain.ReceiptRecord {
	return &domain.ReceiptRecord{
		Store: "TRADER JOE'S",
		Date:  "2024-03-15",
		Total: 3.49,
		Items: []domain.ReceiptItem{{Name: "Whole Milk", UnitPrice: 3.49, Quantity: 1}},
	}
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheckEndpoint(t *testing.T) {
	router := SetupRouter(testConfig(), NewHandler(nil, nil, nil, nil))

	t.Run("returns healthy status", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)

		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "healthy", response["status"])
		assert.Equal(t, "smartration-backend", response["service"])
		assert.NotEmpty(t, response["version"])
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			w := doJSON(router, method, "/health", "")
			assert.Equal(t, http.StatusNotFound, w.Code, method)
		}
	})
}

func TestUnconfiguredServices(t *testing.T) {
	router := SetupRouter(testConfig(), NewHandler(nil, nil, nil, nil))

	for _, path := range []string{
		"/api/v1/receipts/scan",
		"/api/v1/receipts/parse",
		"/api/v1/receipts/export",
		"/api/v1/meal-plans",
		"/api/v1/shopping-lists",
	} {
		t.Run(path, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, path, `{}`)
			assert.Equal(t, http.StatusNotImplemented, w.Code)
			assert.Contains(t, w.Body.String(), "not configured")
		})
	}
}

func TestScanReceiptEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		scanErr    error
		wantStatus int
		wantBody   string
	}{
		{name: "success", body: `{"image":"aGVsbG8="}`, wantStatus: http.StatusOK, wantBody: `"store":"TRADER JOE'S"`},
		{name: "missing image", body: `{}`, wantStatus: http.StatusBadRequest, wantBody: "invalid request body"},
		{name: "malformed JSON", body: `{"image":`, wantStatus: http.StatusBadRequest, wantBody: "invalid request body"},
		{name: "invalid image", body: `{"image":"!!"}`, scanErr: fmt.Errorf("%w: image is not valid base64", domain.ErrInvalidRequest), wantStatus: http.StatusBadRequest},
		{name: "no text detected", body: `{"image":"aGVsbG8="}`, scanErr: domain.ErrNoTextDetected, wantStatus: http.StatusUnprocessableEntity, wantBody: "please retake the photo"},
		{name: "OCR failure", body: `{"image":"aGVsbG8="}`, scanErr: fmt.Errorf("%w: status 500", domain.ErrOCRAPIFailure), wantStatus: http.StatusBadGateway},
		{name: "upstream details stay server side", body: `{"image":"aGVsbG8="}`, scanErr: fmt.Errorf("%w: Post \"https://vision.example/v1?key=SECRET\": refused", domain.ErrOCRAPIFailure), wantStatus: http.StatusBadGateway, wantBody: `{"error":"upstream service request failed"}`},
		{name: "rate limited upstream", body: `{"image":"aGVsbG8="}`, scanErr: domain.ErrRateLimited, wantStatus: http.StatusTooManyRequests},
		{name: "unexpected error", body: `{"image":"aGVsbG8="}`, scanErr: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantBody: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := &mockReceiptScanner{
				scanFunc: func(ctx context.Context, request *domain.ScanRequest) (*domain.ScanResult, error) {
					if tt.scanErr != nil {
						return nil, tt.scanErr
					}
					return &domain.ScanResult{ID: "scan-1", Receipt: *sampleRecord(), Source: "OCR", ScannedAt: time.Now()}, nil
				},
			}
			router := SetupRouter(testConfig(), NewHandler(scanner, nil, nil, nil))

			w := doJSON(router, http.MethodPost, "/api/v1/receipts/scan", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestParseReceiptEndpoint(t *testing.T) {
	var gotDebug bool
	var gotAnnotations []domain.TextAnnotation
	scanner := &mockReceiptScanner{
		parseFunc: func(ctx context.Context, annotations []domain.TextAnnotation, debug bool) (*domain.ReceiptRecord, []domain.LineDecision, error) {
			gotDebug = debug
			gotAnnotations = annotations
			if len(annotations) == 0 {
				return nil, nil, domain.ErrNoTextDetected
			}
			var decisions []domain.LineDecision
			if debug {
				decisions = []domain.LineDecision{{Line: "TOTAL 3.49", Outcome: "skipped", Rule: "receipt-metadata"}}
			}
			return sampleRecord(), decisions, nil
		},
	}
	router := SetupRouter(testConfig(), NewHandler(scanner, nil, nil, nil))

	body := `{"annotations":[
		{"text":"Whole Milk 3.49"},
		{"text":"Whole","boundingPoly":{"vertices":[{"x":0,"y":0},{"x":40,"y":0},{"x":40,"y":10},{"x":0,"y":10}]}}
	]}`

	t.Run("without debug", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/v1/receipts/parse", body)
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, gotDebug)
		require.Len(t, gotAnnotations, 2)
		require.NotNil(t, gotAnnotations[1].BoundingPoly)
		assert.Len(t, gotAnnotations[1].BoundingPoly.Vertices, 4)
		assert.NotContains(t, w.Body.String(), "decisions")
	})

	t.Run("with debug", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/v1/receipts/parse?debug=true", body)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, gotDebug)

		var response parseResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Decisions, 1)
		assert.Equal(t, "receipt-metadata", response.Decisions[0].Rule)
	})

	t.Run("empty annotations", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/v1/receipts/parse", `{"annotations":[]}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestExportReceiptEndpoint(t *testing.T) {
	router := SetupRouter(testConfig(), NewHandler(nil, nil, nil, mockExporter{}))

	t.Run("returns workbook attachment", func(t *testing.T) {
		record, _ := json.Marshal(sampleRecord())
		w := doJSON(router, http.MethodPost, "/api/v1/receipts/export", `{"receipt":`+string(record)+`}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "receipt-2024-03-15.xlsx")
		assert.Equal(t, "PK-xlsx", w.Body.String())
	})

	t.Run("missing receipt", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/v1/receipts/export", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMealPlanEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router := SetupRouter(testConfig(), NewHandler(nil, &mockMealPlanner{}, nil, nil))
		record, _ := json.Marshal(sampleRecord())
		w := doJSON(router, http.MethodPost, "/api/v1/meal-plans", `{"receipt":`+string(record)+`,"preferences":{"householdSize":2}}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"mealPlans"`)
	})

	t.Run("LLM failure maps to bad gateway", func(t *testing.T) {
		router := SetupRouter(testConfig(), NewHandler(nil, &mockMealPlanner{err: fmt.Errorf("%w: timeout", domain.ErrLLMAPIFailure)}, nil, nil))
		w := doJSON(router, http.MethodPost, "/api/v1/meal-plans", `{"receipt":{"items":[]}}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestShoppingListEndpoint(t *testing.T) {
	generator := &mockShoppingList{}
	router := SetupRouter(testConfig(), NewHandler(nil, nil, generator, nil))

	t.Run("success", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/v1/shopping-lists",
			`{"budget":50,"daysToPlan":7,"categories":["proteins","grains"],"preferences":{"allergies":["peanut"]}}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, generator.got)
		assert.Equal(t, 7, generator.got.DaysToPlan)
		assert.Equal(t, []string{"proteins", "grains"}, generator.got.Categories)
		assert.Equal(t, []string{"peanut"}, generator.got.Preferences.Allergies)
		assert.Contains(t, w.Body.String(), `"generatedBy":"fallback-database"`)
	})

	t.Run("invalid budget", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/v1/shopping-lists", `{"budget":0,"daysToPlan":7,"categories":["proteins"]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAPIRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.PerIP = 1
	generator := &mockShoppingList{}
	router := SetupRouter(cfg, NewHandler(nil, nil, generator, nil))

	body := `{"budget":50,"daysToPlan":7,"categories":["proteins"]}`
	assert.Equal(t, http.StatusOK, doJSON(router, http.MethodPost, "/api/v1/shopping-lists", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, doJSON(router, http.MethodPost, "/api/v1/shopping-lists", body).Code)

	// Health checks are not rate limited
	assert.Equal(t, http.StatusOK, doJSON(router, http.MethodGet, "/health", "").Code)
}
