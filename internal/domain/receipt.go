package domain

import (
	"strings"
	"time"
)

// UnknownStore is the sentinel store name used when no store line is found
const UnknownStore = "Unknown Store"

// DateLayout is the canonical receipt date format
const DateLayout = "2006-01-02"

// Vertex is one corner of an OCR bounding polygon (pixel coordinates)
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingPoly is the quadrilateral region of a detected text fragment
type BoundingPoly struct {
	Vertices []Vertex `json:"vertices"`
}

// TextAnnotation is one OCR-detected text fragment
type TextAnnotation struct {
	Text         string        `json:"text"`
	BoundingPoly *BoundingPoly `json:"boundingPoly,omitempty"`
}

// OCRResult is a full-text style OCR response split into the detected
// block text and the per-fragment annotations.
type OCRResult struct {
	FullText  string           `json:"fullText"`
	Fragments []TextAnnotation `json:"fragments"`
}

// NewOCRResult builds an OCRResult from a raw annotation list whose first
// element repeats the entire detected text block.
func NewOCRResult(annotations []TextAnnotation) OCRResult {
	if len(annotations) == 0 {
		return OCRResult{}
	}
	return OCRResult{
		FullText:  annotations[0].Text,
		Fragments: annotations[1:],
	}
}

// Empty reports whether the OCR service detected nothing at all
func (r OCRResult) Empty() bool {
	return strings.TrimSpace(r.FullText) == "" && len(r.Fragments) == 0
}

// ReceiptItem is one purchased item inferred from a receipt line
type ReceiptItem struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// LineTotal returns unit price times quantity
func (i ReceiptItem) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// ReceiptRecord is the structured output of one receipt parse
type ReceiptRecord struct {
	Items []ReceiptItem `json:"items"`
	Total float64       `json:"total"`
	Store string        `json:"store"`
	Date  string        `json:"date"`
}

// ScanRequest represents a receipt image upload
type ScanRequest struct {
	// Image is base64 encoded, optionally prefixed with a data URL header
	Image string `json:"image" binding:"required"`
}

// ScanResult is a parsed receipt plus scan metadata
type ScanResult struct {
	ID        string        `json:"id"`
	Receipt   ReceiptRecord `json:"receipt"`
	Source    string        `json:"source"` // "OCR" or "Cache"
	ScannedAt time.Time     `json:"scannedAt"`
}

// LineDecision records which rule accepted or rejected a receipt line
type LineDecision struct {
	Line    string       `json:"line"`
	Outcome string       `json:"outcome"` // "item", "total", "skipped"
	Rule    string       `json:"rule,omitempty"`
	Item    *ReceiptItem `json:"item,omitempty"`
}
