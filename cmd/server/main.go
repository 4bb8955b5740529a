package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartration/backend/config"
	httpDelivery "github.com/smartration/backend/internal/delivery/http"
	"github.com/smartration/backend/internal/domain"
	"github.com/smartration/backend/internal/export"
	"github.com/smartration/backend/internal/infrastructure/anthropic"
	"github.com/smartration/backend/internal/infrastructure/cache"
	"github.com/smartration/backend/internal/infrastructure/imageprep"
	"github.com/smartration/backend/internal/infrastructure/vision"
	"github.com/smartration/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting SmartRation Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Cache Type: %s (TTL %s)", cfg.Cache.Type, cfg.Cache.TTL)

	debug := cfg.Server.Environment == "development"

	// Initialize infrastructure dependencies
	memoryCache := cache.NewMemoryCache(cache.DefaultCleanupInterval)
	defer memoryCache.Close()

	visionClient := vision.NewClient(vision.Config{
		APIKey:            cfg.Vision.APIKey,
		BaseURL:           cfg.Vision.BaseURL,
		Timeout:           cfg.Vision.Timeout,
		RequestsPerMinute: cfg.Vision.RequestsPerMinute,
		MaxResults:        cfg.Vision.MaxResults,
	})
	visionClient.SetDebug(debug)
	log.Printf("Vision API configured: %s (key: %s...)", cfg.Vision.BaseURL, keyPrefix(cfg.Vision.APIKey))

	var preprocessor domain.ImagePreprocessor
	if cfg.Parser.PreprocessImages {
		preprocessor = imageprep.New(imageprep.DefaultConfig)
	}

	parserConfig := usecase.ParserConfig{
		LineTolerance:      cfg.Parser.LineTolerance,
		CollapseRepeats:    cfg.Parser.CollapseRepeats,
		EnableDebugLogging: cfg.Parser.EnableDebugLogging,
	}
	log.Printf("Parser: tolerance=%.1f, collapse_repeats=%v, preprocess=%v, debug=%v",
		parserConfig.LineTolerance, parserConfig.CollapseRepeats, cfg.Parser.PreprocessImages, parserConfig.EnableDebugLogging)

	// Initialize usecase layer
	receiptService := usecase.NewReceiptService(visionClient, memoryCache, preprocessor, usecase.ReceiptServiceConfig{
		CacheTTL:      cfg.Cache.TTL,
		MaxImageBytes: cfg.Parser.MaxImageMB << 20,
		Parser:        parserConfig,
	})

	// Meal planning needs the LLM; shopping lists fall back to the catalog
	var llmClient domain.LLMClient
	var mealPlanner httpDelivery.MealPlanner
	if cfg.LLMEnabled() {
		client := anthropic.NewClient(anthropic.Config{
			APIKey:            cfg.LLM.APIKey,
			BaseURL:           cfg.LLM.BaseURL,
			Model:             cfg.LLM.Model,
			MaxTokens:         cfg.LLM.MaxTokens,
			Temperature:       cfg.LLM.Temperature,
			Timeout:           cfg.LLM.Timeout,
			RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		})
		client.SetDebug(debug)
		llmClient = client
		mealPlanner = usecase.NewMealPlanService(client, usecase.MealPlanServiceConfig{
			MaxTokens:          cfg.LLM.MaxTokens,
			Temperature:        cfg.LLM.Temperature,
			EnableDebugLogging: debug,
		})
		log.Printf("LLM configured: %s model=%s", cfg.LLM.BaseURL, cfg.LLM.Model)
	} else {
		log.Printf("WARNING: LLM API key not configured - meal planning disabled, shopping lists use fallback catalog")
	}

	shoppingListService := usecase.NewShoppingListService(llmClient, usecase.ShoppingListServiceConfig{})
	exporter := export.NewReceiptExporter(usecase.NewItemCategorizer())

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(receiptService, mealPlanner, shoppingListService, exporter)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}

// keyPrefix shows enough of an API key to identify it in logs
func keyPrefix(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8]
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
