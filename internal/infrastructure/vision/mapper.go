package vision

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/smartration/backend/internal/domain"
)

// MapToAnnotations converts Vision annotations to domain annotations,
// preserving order. The first element stays the full-text block.
func MapToAnnotations(annotations []EntityAnnotation) []domain.TextAnnotation {
	out := make([]domain.TextAnnotation, 0, len(annotations))
	for _, a := range annotations {
		text := a.Description
		if text == "" {
			text = a.Text
		}
		out = append(out, domain.TextAnnotation{
			Text:         text,
			BoundingPoly: mapBoundingPoly(a.BoundingPoly),
		})
	}
	return out
}

func mapBoundingPoly(poly *BoundingPoly) *domain.BoundingPoly {
	if poly == nil {
		return nil
	}
	vertices := make([]domain.Vertex, len(poly.Vertices))
	for i, v := range poly.Vertices {
		vertices[i] = domain.Vertex{X: v.X, Y: v.Y}
	}
	return &domain.BoundingPoly{Vertices: vertices}
}

// MapToOCRResult converts the first image response into an OCR result
func MapToOCRResult(resp *AnnotateResponse) (domain.OCRResult, error) {
	if resp == nil || len(resp.Responses) == 0 {
		return domain.OCRResult{}, nil
	}
	first := resp.Responses[0]
	if first.Error != nil && first.Error.Code != 0 {
		return domain.OCRResult{}, fmt.Errorf("%w: code %d: %s", domain.ErrOCRAPIFailure, first.Error.Code, first.Error.Message)
	}
	return domain.NewOCRResult(MapToAnnotations(first.TextAnnotations)), nil
}

// ParseSavedResponse decodes a stored Vision response. Both the full
// {"responses": [...]} document and a bare annotation array are accepted.
func ParseSavedResponse(data []byte) ([]domain.TextAnnotation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidRequest)
	}

	if trimmed[0] == '[' {
		var annotations []EntityAnnotation
		if err := json.Unmarshal(trimmed, &annotations); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
		}
		return MapToAnnotations(annotations), nil
	}

	var resp AnnotateResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	if len(resp.Responses) == 0 {
		return nil, nil
	}
	if e := resp.Responses[0].Error; e != nil && e.Code != 0 {
		return nil, fmt.Errorf("%w: code %d: %s", domain.ErrOCRAPIFailure, e.Code, e.Message)
	}
	return MapToAnnotations(resp.Responses[0].TextAnnotations), nil
}
