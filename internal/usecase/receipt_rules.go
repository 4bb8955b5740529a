package usecase

import (
	"regexp"
	"strings"
	"unicode"
)

// Item price bounds. Values above totalCandidateFloor on a line with no real
// name are treated as the receipt total rather than an item.
const (
	maxItemPrice        = 100.0
	totalCandidateFloor = 50.0
	maxItemNameLength   = 50
	minLineLength       = 3
	minItemNameLength   = 3
)

// LineRule excludes a whole line from item extraction
type LineRule struct {
	Name    string
	Matches func(line string) bool
}

// NameRule strips one kind of noise from a candidate item name
type NameRule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
}

// Apply runs the rule against a name
func (r NameRule) Apply(name string) string {
	return r.Pattern.ReplaceAllString(name, r.Replace)
}

// NameCheck rejects an implausible item name
type NameCheck struct {
	Name    string
	Rejects func(name string) bool
}

// PricePattern locates the trailing price span of a line
type PricePattern struct {
	Name    string
	Pattern *regexp.Regexp
}

// receiptMetadataRegex matches payment, total and footer vocabulary anywhere
// in a line, including OCR-merged tokens such as "CREDITCARD" or "VISA1234"
var receiptMetadataRegex = regexp.MustCompile(`(?i)(?:` + strings.Join([]string{
	`sub\s*total`, `total`, `tax`, `payment`, `change`, `credit`,
	`purchase`, `visa`, `auth`, `lane`, `cashier`, `ref`, `seq`,
	`merchant`, `terminal`, `eps`, `acct`, `approval\s*code`, `trx`, `thanks`,
}, "|") + `)`)

// DefaultLineRules are evaluated in order; the first match skips the line
var DefaultLineRules = []LineRule{
	{
		Name:    "too-short",
		Matches: func(line string) bool { return len(strings.TrimSpace(line)) < minLineLength },
	},
	{
		Name:    "receipt-metadata",
		Matches: receiptMetadataRegex.MatchString,
	},
}

// DefaultPricePatterns are tried in priority order against the end of a line
var DefaultPricePatterns = []PricePattern{
	{
		// 2 @ 6.49/EA 12.98 F
		Name:    "qty-at-unit-price-per-unit",
		Pattern: regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:lbs?|kg|oz)?\s*@\s*\$?\s*\d+\.\d{2}\s*/\s*[a-z]+\s+\$?\s*\d+\.\d{2}(?:\s*F)?\s*$`),
	},
	{
		// 2 @ 3.00 F
		Name:    "qty-at-price",
		Pattern: regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*@\s*\$?\s*\d+\.\d{2}(?:\s*F)?\s*$`),
	},
	{
		Name:    "trailing-price",
		Pattern: regexp.MustCompile(`(?i)\$?\s*\d+\.\d{2}(?:\s*F)?\s*$`),
	},
}

// DefaultNameRules clean the text that precedes the price span
var DefaultNameRules = []NameRule{
	{Name: "qty-at-price-per-unit", Pattern: regexp.MustCompile(`(?i)\d+\s*@\s*\$?\s*\d+\.\d{2}\s*/\s*[a-z]+`), Replace: " "},
	{Name: "qty-at-price", Pattern: regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*@\s*\$?\s*\d+\.\d{2}`), Replace: " "},
	{Name: "n-for", Pattern: regexp.MustCompile(`(?i)\b\d+\s+for\b`), Replace: " "},
	{Name: "weight-at-price-per-unit", Pattern: regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:lbs?|kg|oz)\s*@\s*\$?\s*\d+\.\d{2}\s*/\s*[a-z]+`), Replace: " "},
	{Name: "trailing-flag", Pattern: regexp.MustCompile(`(?i)\s+F\s*$`), Replace: ""},
	{Name: "leading-digits", Pattern: regexp.MustCompile(`^\s*\d+\b\s*`), Replace: ""},
	{Name: "dollar-sign", Pattern: regexp.MustCompile(`\$`), Replace: " "},
	{Name: "leading-asterisk", Pattern: regexp.MustCompile(`^\s*\*+\s*`), Replace: ""},
}

var pureDigitsRegex = regexp.MustCompile(`^\d+$`)

// DefaultNameChecks reject names that are OCR noise rather than food items
var DefaultNameChecks = []NameCheck{
	{Name: "empty-name", Rejects: func(name string) bool { return name == "" }},
	{Name: "pure-digits", Rejects: pureDigitsRegex.MatchString},
	{Name: "no-letters", Rejects: func(name string) bool { return !strings.ContainsFunc(name, unicode.IsLetter) }},
	{Name: "name-too-long", Rejects: func(name string) bool { return len(name) > maxItemNameLength }},
}

var (
	// Any price-shaped number
	priceNumberRegex = regexp.MustCompile(`\d+\.\d{2}`)

	// Price anywhere on a line (used to disqualify store-name candidates)
	priceRegex = regexp.MustCompile(`\$?\d+\.\d{2}`)

	// Leading explicit quantity followed by the item text
	leadingQuantityRegex = regexp.MustCompile(`^(\d+)\s+([A-Za-z*].*)$`)

	// Explicit order total lines used when no total was captured per line
	explicitTotalRegex = regexp.MustCompile(`(?i)\b(?:order|grand)\s*total\b`)
	trailingPriceRegex = regexp.MustCompile(`(?i)\$?\s*(\d+\.\d{2})(?:\s*F)?\s*$`)
)

// matchLineRule returns the first line rule that matches, if any
func matchLineRule(rules []LineRule, line string) (LineRule, bool) {
	for _, rule := range rules {
		if rule.Matches(line) {
			return rule, true
		}
	}
	return LineRule{}, false
}

// matchPrice returns the start of the matched price span, the price pattern
// name and the last price-shaped number inside the span.
func matchPrice(patterns []PricePattern, line string) (start int, name string, price string, ok bool) {
	for _, p := range patterns {
		loc := p.Pattern.FindStringIndex(line)
		if loc == nil {
			continue
		}
		numbers := priceNumberRegex.FindAllString(line[loc[0]:loc[1]], -1)
		if len(numbers) == 0 {
			continue
		}
		return loc[0], p.Name, numbers[len(numbers)-1], true
	}
	return 0, "", "", false
}

// applyNameRules runs every name rule in order and normalizes whitespace
func applyNameRules(rules []NameRule, name string) string {
	for _, rule := range rules {
		name = rule.Apply(name)
	}
	return strings.TrimSpace(lineSpacesRegex.ReplaceAllString(name, " "))
}

// checkName returns the first check that rejects the name, if any
func checkName(checks []NameCheck, name string) (NameCheck, bool) {
	for _, check := range checks {
		if check.Rejects(name) {
			return check, true
		}
	}
	return NameCheck{}, false
}
