package usecase

import (
	"log"
	"math"
	"strings"
	"time"

	"github.com/smartration/backend/internal/domain"
)

// ParserConfig holds configuration for the receipt parser
type ParserConfig struct {
	LineTolerance      float64
	CollapseRepeats    bool
	EnableDebugLogging bool

	// Now supplies the fallback receipt date; defaults to time.Now
	Now func() time.Time
}

// ReceiptParser turns OCR output into a ReceiptRecord.
// It holds no per-call state and is safe for concurrent use.
type ReceiptParser struct {
	reconstructor      *LineReconstructor
	extractor          *ReceiptExtractor
	now                func() time.Time
	enableDebugLogging bool
}

// NewReceiptParser creates a parser from the given configuration
func NewReceiptParser(config ParserConfig) *ReceiptParser {
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &ReceiptParser{
		reconstructor:      NewLineReconstructor(config.LineTolerance, config.CollapseRepeats),
		extractor:          NewReceiptExtractor(config.CollapseRepeats),
		now:                now,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Parse reconstructs lines from the OCR fragments and extracts a record.
// Returns domain.ErrNoTextDetected when the OCR response is empty.
func (p *ReceiptParser) Parse(result domain.OCRResult) (*domain.ReceiptRecord, error) {
	record, _, err := p.ParseWithDecisions(result)
	return record, err
}

// ParseWithDecisions is Parse plus the per-line rule decisions
func (p *ReceiptParser) ParseWithDecisions(result domain.OCRResult) (*domain.ReceiptRecord, []domain.LineDecision, error) {
	if result.Empty() {
		return nil, nil, domain.ErrNoTextDetected
	}

	lines := p.reconstructor.Reconstruct(result.Fragments)
	if len(lines) == 0 && strings.TrimSpace(result.FullText) != "" {
		// No fragment carried usable geometry; fall back to the block text
		lines = p.linesFromText(result.FullText)
	}

	if p.enableDebugLogging {
		log.Printf("[PARSER] Reconstructed %d lines from %d fragments", len(lines), len(result.Fragments))
		for i, line := range lines {
			log.Printf("[PARSER] %3d: %q", i, line)
		}
	}

	record, decisions := p.ParseLines(lines)
	return record, decisions, nil
}

// ParseText parses a newline separated receipt transcript
func (p *ReceiptParser) ParseText(text string) (*domain.ReceiptRecord, []domain.LineDecision) {
	return p.ParseLines(p.linesFromText(text))
}

// ParseLines extracts and assembles a record from already ordered lines
func (p *ReceiptParser) ParseLines(lines []string) (*domain.ReceiptRecord, []domain.LineDecision) {
	extraction := p.extractor.Extract(lines)

	if p.enableDebugLogging {
		for _, d := range extraction.Decisions {
			if d.Outcome == "skipped" {
				log.Printf("[PARSER] skipped %q (%s)", d.Line, d.Rule)
			}
		}
	}

	return p.assemble(extraction), extraction.Decisions
}

// assemble applies the store, date and total fallbacks
func (p *ReceiptParser) assemble(extraction Extraction) *domain.ReceiptRecord {
	record := &domain.ReceiptRecord{
		Items: extraction.Items,
		Total: extraction.Total,
		Store: extraction.Store,
		Date:  extraction.Date,
	}

	if record.Items == nil {
		record.Items = []domain.ReceiptItem{}
	}
	if record.Store == "" {
		record.Store = domain.UnknownStore
	}
	if record.Date == "" {
		record.Date = p.now().Format(domain.DateLayout)
	}
	if !extraction.TotalFound {
		record.Total = sumItems(record.Items)
	}

	return record
}

func (p *ReceiptParser) linesFromText(text string) []string {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		if line := p.reconstructor.CleanLine(raw); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// sumItems totals unit price times quantity, rounded to cents
func sumItems(items []domain.ReceiptItem) float64 {
	var sum float64
	for _, item := range items {
		sum += item.LineTotal()
	}
	return math.Round(sum*100) / 100
}
