package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/smartration/backend/internal/domain"
	"github.com/smartration/backend/internal/infrastructure/apiclient"
)

// DefaultBaseURL is the public Cloud Vision endpoint
const DefaultBaseURL = "https://vision.googleapis.com"

// Config holds Vision client settings
type Config struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxAttempts       int
	MaxResults        int
}

// Client calls the Cloud Vision TEXT_DETECTION feature
type Client struct {
	transport  *apiclient.Client
	apiKey     string
	baseURL    string
	maxResults int
}

// NewClient creates a new Vision API client
func NewClient(config Config) *Client {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		transport: apiclient.New(apiclient.Config{
			Name:              "VISION",
			Timeout:           config.Timeout,
			RequestsPerMinute: config.RequestsPerMinute,
			MaxAttempts:       config.MaxAttempts,
		}),
		apiKey:     config.APIKey,
		baseURL:    baseURL,
		maxResults: config.MaxResults,
	}
}

// SetDebug enables request logging
func (c *Client) SetDebug(debug bool) {
	c.transport.SetDebug(debug)
}

// DetectText runs text detection on an image
func (c *Client) DetectText(ctx context.Context, image []byte) (domain.OCRResult, error) {
	if len(image) == 0 {
		return domain.OCRResult{}, fmt.Errorf("%w: empty image", domain.ErrInvalidRequest)
	}

	body, err := json.Marshal(annotateRequest{
		Requests: []imageRequest{{
			Image:    imageContent{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []feature{{Type: "TEXT_DETECTION", MaxResults: c.maxResults}},
		}},
	})
	if err != nil {
		return domain.OCRResult{}, fmt.Errorf("failed to encode request: %w", err)
	}

	// the key travels in a header so it never appears in URLs or error text
	headers := map[string]string{"X-Goog-Api-Key": c.apiKey}

	resp, err := c.transport.PostJSON(ctx, c.baseURL+"/v1/images:annotate", headers, body)
	if err != nil {
		var statusErr *apiclient.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == 429 {
			return domain.OCRResult{}, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}
		return domain.OCRResult{}, fmt.Errorf("%w: %v", domain.ErrOCRAPIFailure, err)
	}

	var annotateResp AnnotateResponse
	if err := json.Unmarshal(resp.Body, &annotateResp); err != nil {
		return domain.OCRResult{}, fmt.Errorf("%w: failed to decode response: %v", domain.ErrOCRAPIFailure, err)
	}

	result, err := MapToOCRResult(&annotateResp)
	if err != nil {
		return domain.OCRResult{}, err
	}

	log.Printf("[VISION] Detected %d text fragments", len(result.Fragments))
	return result, nil
}
