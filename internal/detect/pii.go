package detect

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sentinelops/aegisgate/models"
)

// Per-category confidence assigned to a pattern match. Checksum-validated
// categories score higher than loose patterns.
var piiConfidence = map[models.PIIType]float64{
	models.PIITypeEmail:       0.95,
	models.PIITypePhone:       0.85,
	models.PIITypeCreditCard:  0.98,
	models.PIITypeNationalID:  0.9,
	models.PIITypeBankAccount: 0.9,
	models.PIITypeIPAddress:   0.8,
	models.PIITypeDateOfBirth: 0.7,
	models.PIITypeName:        0.5,
}

var (
	// Email pattern - RFC 5322 simplified
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Z|a-z]{2,}\b`)

	// Phone patterns - national and international formats
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\+?1[-.]?)?\(?([0-9]{3})\)?[-.]?([0-9]{3})[-.]?([0-9]{4})\b`),
		regexp.MustCompile(`\b(?:\+33|0033|0)[1-9](?:[.\-\s]?[0-9]{2}){4}\b`),
	}

	// National ID patterns - XXX-XX-XXXX plus the bare 9-digit form
	nationalIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`),
		regexp.MustCompile(`\b[0-9]{9}\b`),
	}

	// Payment card patterns - major card types, validated with Luhn
	creditCardPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b4[0-9]{12}(?:[0-9]{3})?\b`),              // Visa
		regexp.MustCompile(`\b5[1-5][0-9]{14}\b`),                      // MasterCard
		regexp.MustCompile(`\b3[47][0-9]{13}\b`),                       // American Express
		regexp.MustCompile(`\b6(?:011|5[0-9]{2})[0-9]{12}\b`),          // Discover
		regexp.MustCompile(`\b(?:[0-9]{4}[\-\s]){3}[0-9]{4}\b`),        // separator form
	}

	// IBAN bank account numbers
	ibanPattern = regexp.MustCompile(`\b[A-Z]{2}[0-9]{2}[A-Z0-9]{4}[0-9]{7}(?:[A-Z0-9]?){0,16}\b`)

	// IPv4 and IPv6 addresses
	ipPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`),
		regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`),
	}

	// DD/MM/YYYY or DD-MM-YYYY birth dates
	dobPattern = regexp.MustCompile(`\b(?:0[1-9]|[12][0-9]|3[01])[\/\-](?:0[1-9]|1[0-2])[\/\-](?:19|20)[0-9]{2}\b`)

	// Self-introduction phrases preceding a personal name
	nameKeywords = []string{
		"my name is", "i am called", "je m'appelle", "mon nom est",
		"firstname", "lastname", "nom de famille",
	}
)

// DetectPII scans raw text and returns one finding per matched instance of
// each supported category, ordered by start position. Pure function: no
// shared state, and malformed or empty input yields an empty list, never an
// error. Overlapping matches across categories are all reported; within a
// category matches do not overlap.
func DetectPII(text string) []models.Finding {
	if text == "" {
		return nil
	}

	var findings []models.Finding
	add := func(t models.PIIType, start, end int, pattern string) {
		// Within a category only non-overlapping matches are reported;
		// categories can still overlap each other.
		for _, f := range findings {
			if f.Type == string(t) && f.Evidence.Span.Start < end && start < f.Evidence.Span.End {
				return
			}
		}
		findings = append(findings, models.Finding{
			Kind:       models.FindingPII,
			Type:       string(t),
			Confidence: piiConfidence[t],
			Evidence: models.Evidence{
				Span:    &models.Span{Start: start, End: end},
				Pattern: pattern,
				Matched: text[start:end],
			},
		})
	}

	for _, m := range emailPattern.FindAllStringIndex(text, -1) {
		add(models.PIITypeEmail, m[0], m[1], "email")
	}

	for _, p := range phonePatterns {
		for _, m := range p.FindAllStringIndex(text, -1) {
			add(models.PIITypePhone, m[0], m[1], "phone")
		}
	}

	for i, p := range nationalIDPatterns {
		for _, m := range p.FindAllStringIndex(text, -1) {
			// The bare 9-digit form needs extra validation to cut noise.
			if i == 1 && !looksLikeNationalID(text[m[0]:m[1]]) {
				continue
			}
			add(models.PIITypeNationalID, m[0], m[1], "national_id")
		}
	}

	for _, p := range creditCardPatterns {
		for _, m := range p.FindAllStringIndex(text, -1) {
			if luhnCheck(text[m[0]:m[1]]) {
				add(models.PIITypeCreditCard, m[0], m[1], "payment_card")
			}
		}
	}

	for _, m := range ibanPattern.FindAllStringIndex(text, -1) {
		add(models.PIITypeBankAccount, m[0], m[1], "iban")
	}

	for _, p := range ipPatterns {
		for _, m := range p.FindAllStringIndex(text, -1) {
			add(models.PIITypeIPAddress, m[0], m[1], "ip_address")
		}
	}

	for _, m := range dobPattern.FindAllStringIndex(text, -1) {
		add(models.PIITypeDateOfBirth, m[0], m[1], "date_of_birth")
	}

	lower := strings.ToLower(text)
	for _, kw := range nameKeywords {
		if idx := strings.Index(lower, kw); idx >= 0 {
			add(models.PIITypeName, idx, idx+len(kw), "name_keyword")
			break
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Evidence.Span.Start < findings[j].Evidence.Span.Start
	})
	return findings
}

// RedactPII replaces every finding's span with a category placeholder.
func RedactPII(text string, findings []models.Finding) string {
	spans := make([]models.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Kind == models.FindingPII && f.Evidence.Span != nil {
			spans = append(spans, f)
		}
	}

	// Replace back to front so earlier spans stay valid.
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Evidence.Span.Start > spans[j].Evidence.Span.Start
	})

	result := text
	for _, f := range spans {
		sp := f.Evidence.Span
		if sp.Start < 0 || sp.End > len(result) || sp.Start >= sp.End {
			continue
		}
		result = result[:sp.Start] + redactionFor(models.PIIType(f.Type)) + result[sp.End:]
	}
	return result
}

func redactionFor(t models.PIIType) string {
	return "[REDACTED_" + strings.ToUpper(string(t)) + "]"
}

// looksLikeNationalID performs basic validation on a 9-digit number.
func looksLikeNationalID(s string) bool {
	if len(s) != 9 {
		return false
	}
	if s[:3] == "000" || s[3:5] == "00" || s[5:] == "0000" {
		return false
	}
	if strings.HasPrefix(s, "666") || strings.HasPrefix(s, "9") {
		return false
	}
	return true
}

// luhnCheck validates a payment card number using the Luhn algorithm.
func luhnCheck(cardNumber string) bool {
	cardNumber = strings.ReplaceAll(cardNumber, " ", "")
	cardNumber = strings.ReplaceAll(cardNumber, "-", "")

	if len(cardNumber) < 13 || len(cardNumber) > 19 {
		return false
	}

	sum := 0
	isSecond := false
	for i := len(cardNumber) - 1; i >= 0; i-- {
		c := cardNumber[i]
		if c < '0' || c > '9' {
			return false
		}
		digit := int(c - '0')
		if isSecond {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		isSecond = !isSecond
	}
	return sum%10 == 0
}
