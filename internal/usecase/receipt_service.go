package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smartration/backend/internal/domain"
)

// dataURLPrefixRegex matches the "data:image/png;base64," header of an upload
var dataURLPrefixRegex = regexp.MustCompile(`^data:image/[a-zA-Z0-9.+-]+;base64,`)

// ReceiptServiceConfig holds configuration for the receipt service
type ReceiptServiceConfig struct {
	CacheTTL      time.Duration
	MaxImageBytes int
	Parser        ParserConfig
}

// ReceiptService scans receipt images: OCR, line reconstruction, extraction
type ReceiptService struct {
	ocrClient     domain.OCRClient
	cache         domain.CacheRepository
	preprocessor  domain.ImagePreprocessor
	parser        *ReceiptParser
	cacheTTL      time.Duration
	maxImageBytes int
	now           func() time.Time
}

// NewReceiptService creates a receipt service. preprocessor may be nil.
func NewReceiptService(
	ocrClient domain.OCRClient,
	cache domain.CacheRepository,
	preprocessor domain.ImagePreprocessor,
	config ReceiptServiceConfig,
) *ReceiptService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	maxImageBytes := config.MaxImageBytes
	if maxImageBytes <= 0 {
		maxImageBytes = 10 << 20 // 10MB
	}

	now := config.Parser.Now
	if now == nil {
		now = time.Now
	}

	return &ReceiptService{
		ocrClient:     ocrClient,
		cache:         cache,
		preprocessor:  preprocessor,
		parser:        NewReceiptParser(config.Parser),
		cacheTTL:      cacheTTL,
		maxImageBytes: maxImageBytes,
		now:           now,
	}
}

// Scan runs OCR on a receipt image and parses the result.
// Flow: decode -> check cache -> preprocess -> OCR -> parse -> cache -> return
func (s *ReceiptService) Scan(ctx context.Context, request *domain.ScanRequest) (*domain.ScanResult, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}

	image, err := DecodeImage(request.Image)
	if err != nil {
		return nil, err
	}
	if len(image) > s.maxImageBytes {
		return nil, fmt.Errorf("%w: image is %d bytes, limit is %d", domain.ErrInvalidRequest, len(image), s.maxImageBytes)
	}

	cacheKey := generateCacheKey(image)

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		cached.Source = "Cache"
		return cached, nil
	}

	prepared := image
	if s.preprocessor != nil {
		if out, err := s.preprocessor.Prepare(image); err != nil {
			// OCR can still read the original
			log.Printf("[RECEIPT] Image preprocessing failed, using original: %v", err)
		} else {
			prepared = out
		}
	}

	ocrResult, err := s.ocrClient.DetectText(ctx, prepared)
	if err != nil {
		return nil, err
	}

	record, err := s.parser.Parse(ocrResult)
	if err != nil {
		return nil, err
	}

	result := &domain.ScanResult{
		ID:        uuid.NewString(),
		Receipt:   *record,
		Source:    "OCR",
		ScannedAt: s.now().UTC(),
	}

	log.Printf("[RECEIPT] Scan %s: store=%q date=%s items=%d total=%.2f",
		result.ID, record.Store, record.Date, len(record.Items), record.Total)

	if err := s.setInCache(ctx, cacheKey, result); err != nil {
		log.Printf("[RECEIPT] Failed to cache scan %s: %v", result.ID, err)
	}

	return result, nil
}

// ParseAnnotations parses an already-fetched annotation list whose first
// element is the full-text block. Decisions are returned only when debug is set.
func (s *ReceiptService) ParseAnnotations(
	ctx context.Context,
	annotations []domain.TextAnnotation,
	debug bool,
) (*domain.ReceiptRecord, []domain.LineDecision, error) {
	record, decisions, err := s.parser.ParseWithDecisions(domain.NewOCRResult(annotations))
	if err != nil {
		return nil, nil, err
	}
	if !debug {
		decisions = nil
	}
	return record, decisions, nil
}

// DecodeImage strips an optional data URL header and decodes base64 content
func DecodeImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(dataURLPrefixRegex.ReplaceAllString(strings.TrimSpace(encoded), ""))
	if encoded == "" {
		return nil, fmt.Errorf("%w: image is empty", domain.ErrInvalidRequest)
	}

	image, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// some clients send unpadded base64
		if raw, rawErr := base64.RawStdEncoding.DecodeString(encoded); rawErr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("%w: image is not valid base64", domain.ErrInvalidRequest)
	}
	return image, nil
}

// generateCacheKey creates a content-addressed cache key.
// Format: "receipt:{sha256 hex}"
func generateCacheKey(image []byte) string {
	sum := sha256.Sum256(image)
	return "receipt:" + hex.EncodeToString(sum[:])
}

// getFromCache retrieves a scan result from cache
func (s *ReceiptService) getFromCache(ctx context.Context, key string) (*domain.ScanResult, error) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var result domain.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Join(domain.ErrCacheMiss, err)
	}
	return &result, nil
}

// setInCache stores a scan result in cache
func (s *ReceiptService) setInCache(ctx context.Context, key string, result *domain.ScanResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, data, s.cacheTTL)
}
