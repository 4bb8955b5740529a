package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are opaque JSON documents.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// OCRClient detects text in an image
type OCRClient interface {
	DetectText(ctx context.Context, image []byte) (OCRResult, error)
}

// LLMClient sends a text prompt to a language model and returns its text reply
type LLMClient interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// CompletionOptions tune a single LLM call; zero values use client defaults
type CompletionOptions struct {
	MaxTokens   int
	Temperature float64
}

// ImagePreprocessor prepares an image for OCR
type ImagePreprocessor interface {
	Prepare(image []byte) ([]byte, error)
}
