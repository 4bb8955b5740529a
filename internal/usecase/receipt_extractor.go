package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/smartration/backend/internal/domain"
)

// storeScanLines is how many leading lines are considered for the store name
const storeScanLines = 5

// storeExclusions disqualify a line from being the store name
var storeExclusions = []string{"saved", "total", "tax", "payment"}

// datePattern matches one receipt date layout; the index fields locate the
// year, month and day capture groups.
type datePattern struct {
	pattern            *regexp.Regexp
	year, month, day   int
	twoDigitYearLayout bool
}

// datePatterns are tried in order on every line
var datePatterns = []datePattern{
	{pattern: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`), month: 1, day: 2, year: 3},
	{pattern: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2})\b`), month: 1, day: 2, year: 3, twoDigitYearLayout: true},
	{pattern: regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`), year: 1, month: 2, day: 3},
	{pattern: regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`), month: 1, day: 2, year: 3},
}

// Extraction is everything the field extractor found on a receipt.
// Store and Date are empty when nothing qualified.
type Extraction struct {
	Store      string
	Date       string
	Items      []domain.ReceiptItem
	Total      float64
	TotalFound bool
	Decisions  []domain.LineDecision
}

// ReceiptExtractor pulls store, date, items and total out of receipt lines
type ReceiptExtractor struct {
	lineRules       []LineRule
	pricePatterns   []PricePattern
	nameRules       []NameRule
	nameChecks      []NameCheck
	collapseRepeats bool
}

// NewReceiptExtractor creates an extractor with the default rule set
func NewReceiptExtractor(collapseRepeats bool) *ReceiptExtractor {
	return &ReceiptExtractor{
		lineRules:       DefaultLineRules,
		pricePatterns:   DefaultPricePatterns,
		nameRules:       DefaultNameRules,
		nameChecks:      DefaultNameChecks,
		collapseRepeats: collapseRepeats,
	}
}

// Extract runs every field extraction over the ordered lines
func (e *ReceiptExtractor) Extract(lines []string) Extraction {
	result := Extraction{
		Store: ExtractStore(lines),
		Date:  ExtractDate(lines),
	}

	result.Items, result.Total, result.TotalFound, result.Decisions = e.ExtractItems(lines)

	if !result.TotalFound {
		if total, ok := ExtractTotal(lines); ok {
			result.Total = total
			result.TotalFound = true
		}
	}

	return result
}

// ExtractStore returns the first plausible store name among the leading lines
func ExtractStore(lines []string) string {
	for i, line := range lines {
		if i >= storeScanLines {
			break
		}
		if len(line) <= 3 {
			continue
		}
		lower := strings.ToLower(line)
		excluded := false
		for _, word := range storeExclusions {
			if strings.Contains(lower, word) {
				excluded = true
				break
			}
		}
		if excluded || containsDate(line) || priceRegex.MatchString(line) {
			continue
		}
		return line
	}
	return ""
}

// ExtractDate returns the first date on the receipt as YYYY-MM-DD
func ExtractDate(lines []string) string {
	for _, line := range lines {
		for _, dp := range datePatterns {
			for _, m := range dp.pattern.FindAllStringSubmatch(line, -1) {
				if date, ok := dp.normalize(m); ok {
					return date
				}
			}
		}
	}
	return ""
}

func containsDate(line string) bool {
	for _, dp := range datePatterns {
		if dp.pattern.MatchString(line) {
			return true
		}
	}
	return false
}

// normalize converts a match into canonical form, rejecting impossible dates
func (dp datePattern) normalize(m []string) (string, bool) {
	year, _ := strconv.Atoi(m[dp.year])
	month, _ := strconv.Atoi(m[dp.month])
	day, _ := strconv.Atoi(m[dp.day])

	if dp.twoDigitYearLayout {
		year = expandTwoDigitYear(year)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return t.Format(domain.DateLayout), true
}

// expandTwoDigitYear maps 00-49 to 2000-2049 and 50-99 to 1950-1999
func expandTwoDigitYear(year int) int {
	if year < 50 {
		return 2000 + year
	}
	return 1900 + year
}

// ExtractItems walks the lines in order and returns accepted items, the
// largest total candidate seen, and a decision per line.
func (e *ReceiptExtractor) ExtractItems(lines []string) ([]domain.ReceiptItem, float64, bool, []domain.LineDecision) {
	items := make([]domain.ReceiptItem, 0)
	decisions := make([]domain.LineDecision, 0, len(lines))
	var total float64
	totalFound := false

	for _, line := range lines {
		decision, candidate := e.evaluateLine(line)
		switch decision.Outcome {
		case "item":
			items = append(items, *decision.Item)
		case "total":
			if candidate > total {
				total = candidate
				totalFound = true
			}
		}
		decisions = append(decisions, decision)
	}

	return items, total, totalFound, decisions
}

// evaluateLine applies the rule chain to a single line. The returned
// amount is non-zero only for total candidates.
func (e *ReceiptExtractor) evaluateLine(line string) (domain.LineDecision, float64) {
	skip := func(rule string) (domain.LineDecision, float64) {
		return domain.LineDecision{Line: line, Outcome: "skipped", Rule: rule}, 0
	}

	if rule, ok := matchLineRule(e.lineRules, line); ok {
		return skip(rule.Name)
	}

	quantity := 1
	rest := strings.TrimSpace(line)
	if m := leadingQuantityRegex.FindStringSubmatch(rest); m != nil {
		if q, err := strconv.Atoi(m[1]); err == nil && q > 0 {
			quantity = q
		}
		rest = m[2]
	}

	start, _, priceText, ok := matchPrice(e.pricePatterns, rest)
	if !ok {
		return skip("no-price")
	}
	price, err := strconv.ParseFloat(priceText, 64)
	if err != nil {
		return skip("no-price")
	}

	name := applyNameRules(e.nameRules, rest[:start])

	if price > totalCandidateFloor && (len(name) < minItemNameLength || strings.Contains(strings.ToLower(name), "total")) {
		return domain.LineDecision{Line: line, Outcome: "total", Rule: "total-candidate"}, price
	}
	if price <= 0 {
		return skip("non-positive-price")
	}
	if price >= maxItemPrice {
		return skip("implausible-price")
	}
	if check, rejected := checkName(e.nameChecks, name); rejected {
		return skip(check.Name)
	}

	if e.collapseRepeats {
		name = CollapseRepeats(name)
	}

	item := domain.ReceiptItem{Name: name, UnitPrice: price, Quantity: quantity}
	return domain.LineDecision{Line: line, Outcome: "item", Item: &item}, 0
}

// ExtractTotal finds the first "order total" or "grand total" line that ends in a price
func ExtractTotal(lines []string) (float64, bool) {
	for _, line := range lines {
		if !explicitTotalRegex.MatchString(line) {
			continue
		}
		m := trailingPriceRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if total, ok := parsePrice(m[1]); ok {
			return total, true
		}
	}
	return 0, false
}

func parsePrice(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
