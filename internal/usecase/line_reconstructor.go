package usecase

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/smartration/backend/internal/domain"
)

// DefaultLineTolerance is the maximum vertical distance (pixels) between
// tokens that share a reconstructed line.
const DefaultLineTolerance = 10.0

// Compiled regex patterns for line cleanup
var (
	// Anything outside alphanumerics, whitespace and . $ - / @ * +
	disallowedCharsRegex = regexp.MustCompile(`[^A-Za-z0-9\s.$\-/@*+]`)
	lineSpacesRegex      = regexp.MustCompile(`\s+`)
)

// Token is a normalized OCR fragment positioned by its geometric center
type Token struct {
	Text    string
	CenterX float64
	CenterY float64
	Width   float64
}

// NormalizeToken converts a raw annotation into a positioned token.
// Annotations with blank text or fewer than four vertices are skipped.
func NormalizeToken(annotation domain.TextAnnotation) (Token, bool) {
	text := strings.TrimSpace(annotation.Text)
	if text == "" {
		return Token{}, false
	}
	if annotation.BoundingPoly == nil || len(annotation.BoundingPoly.Vertices) < 4 {
		return Token{}, false
	}

	vertices := annotation.BoundingPoly.Vertices[:4]
	var sumX, sumY float64
	minX, maxX := math.Inf(1), math.Inf(-1)
	for _, v := range vertices {
		sumX += v.X
		sumY += v.Y
		minX = math.Min(minX, v.X)
		maxX = math.Max(maxX, v.X)
	}

	return Token{
		Text:    text,
		CenterX: sumX / 4,
		CenterY: sumY / 4,
		Width:   maxX - minX,
	}, true
}

// lineBucket is a group of tokens believed to share one visual line
type lineBucket struct {
	tokens     []Token
	sumY       float64
	minY, maxY float64
}

func newLineBucket(token Token) *lineBucket {
	return &lineBucket{
		tokens: []Token{token},
		sumY:   token.CenterY,
		minY:   token.CenterY,
		maxY:   token.CenterY,
	}
}

// center is the average vertical center of the member tokens
func (b *lineBucket) center() float64 {
	return b.sumY / float64(len(b.tokens))
}

// accepts reports whether the token stays within tolerance of every member
func (b *lineBucket) accepts(token Token, tolerance float64) bool {
	if math.Abs(b.center()-token.CenterY) > tolerance {
		return false
	}
	return math.Max(b.maxY, token.CenterY)-math.Min(b.minY, token.CenterY) <= tolerance
}

func (b *lineBucket) add(token Token) {
	b.tokens = append(b.tokens, token)
	b.sumY += token.CenterY
	b.minY = math.Min(b.minY, token.CenterY)
	b.maxY = math.Max(b.maxY, token.CenterY)
}

func (b *lineBucket) text() string {
	sort.SliceStable(b.tokens, func(i, j int) bool {
		return b.tokens[i].CenterX < b.tokens[j].CenterX
	})
	parts := make([]string, len(b.tokens))
	for i, t := range b.tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

// LineReconstructor groups OCR fragments into reading-order text lines
type LineReconstructor struct {
	tolerance       float64
	collapseRepeats bool
}

// NewLineReconstructor creates a reconstructor; a non-positive tolerance
// falls back to DefaultLineTolerance.
func NewLineReconstructor(tolerance float64, collapseRepeats bool) *LineReconstructor {
	if tolerance <= 0 {
		tolerance = DefaultLineTolerance
	}
	return &LineReconstructor{
		tolerance:       tolerance,
		collapseRepeats: collapseRepeats,
	}
}

// Reconstruct returns cleaned, non-empty lines ordered top to bottom.
// Tokens join the first bucket that accepts them; buckets are never merged.
func (r *LineReconstructor) Reconstruct(annotations []domain.TextAnnotation) []string {
	var buckets []*lineBucket
	for _, annotation := range annotations {
		token, ok := NormalizeToken(annotation)
		if !ok {
			continue
		}

		placed := false
		for _, b := range buckets {
			if b.accepts(token, r.tolerance) {
				b.add(token)
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, newLineBucket(token))
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].center() < buckets[j].center()
	})

	lines := make([]string, 0, len(buckets))
	for _, b := range buckets {
		if line := r.CleanLine(b.text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// CleanLine strips disallowed characters, collapses whitespace and
// (when enabled) collapses immediately repeated words or word pairs.
func (r *LineReconstructor) CleanLine(line string) string {
	line = disallowedCharsRegex.ReplaceAllString(line, "")
	line = strings.TrimSpace(lineSpacesRegex.ReplaceAllString(line, " "))
	if r.collapseRepeats {
		line = CollapseRepeats(line)
	}
	return line
}

// CollapseRepeats removes OCR double-detections such as "Whole Whole Milk Milk"
// or "Green Tea Green Tea". Comparison is case-insensitive; the first
// occurrence is kept.
func CollapseRepeats(s string) string {
	words := strings.Fields(s)
	if len(words) < 2 {
		return strings.Join(words, " ")
	}

	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		// two-word phrase repeated: "a b a b"
		if i+3 < len(words) &&
			strings.EqualFold(words[i], words[i+2]) &&
			strings.EqualFold(words[i+1], words[i+3]) &&
			!strings.EqualFold(words[i], words[i+1]) {
			out = append(out, words[i], words[i+1])
			i += 4
			continue
		}
		if len(out) > 0 && strings.EqualFold(out[len(out)-1], words[i]) {
			i++
			continue
		}
		out = append(out, words[i])
		i++
	}
	return strings.Join(out, " ")
}
