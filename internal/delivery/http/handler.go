package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smartration/backend/internal/domain"
)

// ReceiptScanner scans receipt images and parses raw OCR annotations
type ReceiptScanner interface {
	Scan(ctx context.Context, request *domain.ScanRequest) (*domain.ScanResult, error)
	ParseAnnotations(ctx context.Context, annotations []domain.TextAnnotation, debug bool) (*domain.ReceiptRecord, []domain.LineDecision, error)
}

// MealPlanner generates meal plans from parsed receipts
type MealPlanner interface {
	GenerateMealPlan(ctx context.Context, request *domain.MealPlanRequest) (*domain.MealPlan, error)
}

// ShoppingListGenerator generates budgeted shopping lists
type ShoppingListGenerator interface {
	Generate(ctx context.Context, request *domain.ShoppingListRequest) (*domain.ShoppingList, error)
}

// ReceiptExporter renders a receipt as an XLSX workbook
type ReceiptExporter interface {
	ReceiptXLSX(record *domain.ReceiptRecord) ([]byte, error)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler holds dependencies for HTTP handlers. Any dependency may be nil;
// its endpoints then answer 501.
type Handler struct {
	receipts     ReceiptScanner
	mealPlans    MealPlanner
	shoppingList ShoppingListGenerator
	exporter     ReceiptExporter
}

// NewHandler creates a new HTTP handler
func NewHandler(receipts ReceiptScanner, mealPlans MealPlanner, shoppingList ShoppingListGenerator, exporter ReceiptExporter) *Handler {
	return &Handler{
		receipts:     receipts,
		mealPlans:    mealPlans,
		shoppingList: shoppingList,
		exporter:     exporter,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "smartration-backend",
		"version": "1.0.0",
	})
}

// ScanReceipt handles receipt image uploads
func (h *Handler) ScanReceipt(c *gin.Context) {
	if h.receipts == nil {
		notConfigured(c, "receipt scanning")
		return
	}

	var request domain.ScanRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.receipts.Scan(c.Request.Context(), &request)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// parseRequest carries already-fetched OCR annotations. The first
// annotation is the full-text block.
type parseRequest struct {
	Annotations []domain.TextAnnotation `json:"annotations"`
}

type parseResponse struct {
	Receipt   *domain.ReceiptRecord `json:"receipt"`
	Decisions []domain.LineDecision `json:"decisions,omitempty"`
}

// ParseReceipt parses OCR annotations without calling the OCR service.
// ?debug=true adds the per-line rule decisions to the response.
func (h *Handler) ParseReceipt(c *gin.Context) {
	if h.receipts == nil {
		notConfigured(c, "receipt parsing")
		return
	}

	var request parseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err)
		return
	}

	debug, _ := strconv.ParseBool(c.Query("debug"))

	record, decisions, err := h.receipts.ParseAnnotations(c.Request.Context(), request.Annotations, debug)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, parseResponse{Receipt: record, Decisions: decisions})
}

type exportRequest struct {
	Receipt *domain.ReceiptRecord `json:"receipt" binding:"required"`
}

// ExportReceipt returns the posted receipt as an XLSX attachment
func (h *Handler) ExportReceipt(c *gin.Context) {
	if h.exporter == nil {
		notConfigured(c, "receipt export")
		return
	}

	var request exportRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err)
		return
	}

	data, err := h.exporter.ReceiptXLSX(request.Receipt)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("receipt-%s.xlsx", request.Receipt.Date)
	if request.Receipt.Date == "" {
		filename = fmt.Sprintf("receipt-%s.xlsx", time.Now().Format(domain.DateLayout))
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// GenerateMealPlan builds a meal plan from a parsed receipt
func (h *Handler) GenerateMealPlan(c *gin.Context) {
	if h.mealPlans == nil {
		notConfigured(c, "meal planning")
		return
	}

	var request domain.MealPlanRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err)
		return
	}

	plan, err := h.mealPlans.GenerateMealPlan(c.Request.Context(), &request)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// GenerateShoppingList builds a budgeted shopping list
func (h *Handler) GenerateShoppingList(c *gin.Context) {
	if h.shoppingList == nil {
		notConfigured(c, "shopping lists")
		return
	}

	var request domain.ShoppingListRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err)
		return
	}

	list, err := h.shoppingList.Generate(c.Request.Context(), &request)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// respondError maps domain errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNoTextDetected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   err.Error(),
			"message": "No text was found on the receipt, please retake the photo",
		})
	case errors.Is(err, domain.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrOCRAPIFailure), errors.Is(err, domain.ErrLLMAPIFailure):
		log.Printf("[HTTP] Upstream failure on %s: %v", c.FullPath(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service request failed"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "upstream request timed out"})
	default:
		log.Printf("[HTTP] Unhandled error on %s: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
}

func notConfigured(c *gin.Context, feature string) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": feature + " is not configured"})
}
