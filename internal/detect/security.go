package detect

import (
	"regexp"
	"strings"

	"github.com/sentinelops/aegisgate/models"
)

// DefaultAttackThreshold is the cutoff above which an attack category is
// flagged as a detected attempt.
const DefaultAttackThreshold = 0.5

type securityPattern struct {
	re         *regexp.Regexp
	technique  string
	confidence float64
}

var (
	// Prompt injection: attempts to override prior instructions or pull
	// out the system prompt.
	injectionPatterns = []securityPattern{
		{regexp.MustCompile(`(?i)ignore\b.{0,40}\b(instructions?|prompts?|commands?|rules)`), "instruction_override", 0.9},
		{regexp.MustCompile(`(?i)(disregard|forget|override|cancel)\s+(all|previous|above|any|everything)\s*(instructions?|rules|commands?|guidelines)?`), "instruction_override", 0.9},
		{regexp.MustCompile(`(?i)(reveal|show|display|print|repeat)\s+.{0,30}(system|hidden|internal|initial|original)\s+(prompt|instructions?|secrets?|rules)`), "data_extraction", 0.9},
		{regexp.MustCompile(`(?i)reveal\s+.{0,30}secrets?`), "data_extraction", 0.85},
		{regexp.MustCompile(`(?i)what\s+(is|are|was|were)\s+(your|the)\s+(system|original|initial)\s+(prompt|instructions?)`), "data_extraction", 0.85},
		{regexp.MustCompile(`(?i)new\s+(instructions?|role|persona|identity)`), "instruction_override", 0.75},
		{regexp.MustCompile(`(?i)you\s+are\s+now`), "role_manipulation", 0.8},
		{regexp.MustCompile(`(?i)from\s+now\s+on[,]?\s+(you|your)`), "role_manipulation", 0.75},
		{regexp.MustCompile(`(\[SYSTEM\]|<\|system\|>|\[INST\]|###\s*(SYSTEM|INSTRUCTION))`), "delimiter_injection", 0.8},
	}

	// Jailbreak: role-play, known personas, encoding tricks.
	jailbreakPatterns = []securityPattern{
		{regexp.MustCompile(`(?i)\b(dan|developer|god|unrestricted|evil)\s+mode\b`), "persona", 0.9},
		{regexp.MustCompile(`(?i)jailbreak`), "persona", 0.95},
		{regexp.MustCompile(`(?i)pretend\s+(to\s+be|you\s+are)`), "role_play", 0.75},
		{regexp.MustCompile(`(?i)act\s+as\s+(if\s+)?(an?\s+)?`), "role_play", 0.6},
		{regexp.MustCompile(`(?i)without\s+(any|ethical|moral)\s+(restrictions?|limitations?|guidelines?)`), "persona", 0.85},
		{regexp.MustCompile(`(?i)bypass\s+.{0,20}(filter|safety|security)`), "persona", 0.85},
		{regexp.MustCompile(`(?i)base64\s*[:\s=]\s*[A-Za-z0-9+/]{20,}={0,2}`), "encoding", 0.7},
		{regexp.MustCompile(`(?:\\x[0-9a-fA-F]{2}){10,}`), "encoding", 0.7},
		{regexp.MustCompile(`(?i)(hypothetically\s+speaking|in\s+a\s+fictional\s+scenario|for\s+educational\s+purposes\s+only)`), "framing", 0.55},
	}

	// Meta-instruction vocabulary used by the density heuristic.
	metaWords = map[string]struct{}{
		"ignore": {}, "disregard": {}, "forget": {}, "override": {},
		"instructions": {}, "instruction": {}, "rules": {}, "prompt": {},
		"system": {}, "pretend": {}, "bypass": {}, "reveal": {},
	}

	wordSplit = regexp.MustCompile(`\b\w+\b`)
)

// SecurityThreat describes one matched adversarial pattern.
type SecurityThreat struct {
	Category  models.AttackCategory
	Technique string
	Pattern   string
	Span      models.Span
}

// SecurityResult carries independent confidence scores for the two attack
// categories plus the individual threats that produced them.
type SecurityResult struct {
	InjectionConfidence float64
	JailbreakConfidence float64
	InjectionDetected   bool
	JailbreakDetected   bool
	Threats             []SecurityThreat
}

// MaxConfidence returns the larger of the two category confidences.
func (r SecurityResult) MaxConfidence() float64 {
	if r.JailbreakConfidence > r.InjectionConfidence {
		return r.JailbreakConfidence
	}
	return r.InjectionConfidence
}

// SecurityScore is the prompt safety score: 1 means no adversarial signal.
func (r SecurityResult) SecurityScore() float64 {
	return 1 - r.MaxConfidence()
}

// AnalyzeSecurity scores a prompt for injection and jailbreak attempts.
// Literal phrase matches are combined per category as the complement of the
// product of misses (1 - prod(1-c)), then boosted by structural heuristics.
// Stateless.
func AnalyzeSecurity(prompt string, threshold float64) SecurityResult {
	if threshold <= 0 {
		threshold = DefaultAttackThreshold
	}

	res := SecurityResult{}
	if prompt == "" {
		return res
	}

	injMiss, jbMiss := 1.0, 1.0

	for _, p := range injectionPatterns {
		if loc := p.re.FindStringIndex(prompt); loc != nil {
			injMiss *= 1 - p.confidence
			res.Threats = append(res.Threats, SecurityThreat{
				Category:  models.AttackInjection,
				Technique: p.technique,
				Pattern:   p.re.String(),
				Span:      models.Span{Start: loc[0], End: loc[1]},
			})
		}
	}
	for _, p := range jailbreakPatterns {
		if loc := p.re.FindStringIndex(prompt); loc != nil {
			jbMiss *= 1 - p.confidence
			res.Threats = append(res.Threats, SecurityThreat{
				Category:  models.AttackJailbreak,
				Technique: p.technique,
				Pattern:   p.re.String(),
				Span:      models.Span{Start: loc[0], End: loc[1]},
			})
		}
	}

	res.InjectionConfidence = 1 - injMiss
	res.JailbreakConfidence = 1 - jbMiss

	// Structural heuristic: a high density of meta-instruction vocabulary
	// is suspicious even without a literal pattern hit.
	if d := metaInstructionDensity(prompt); d > 0.15 {
		res.InjectionConfidence = clamp01(res.InjectionConfidence + 0.1)
	}

	res.InjectionDetected = res.InjectionConfidence >= threshold
	res.JailbreakDetected = res.JailbreakConfidence >= threshold
	return res
}

// SecurityFindings converts an analysis result into the flat finding list
// consumed by the guardrail engine.
func SecurityFindings(res SecurityResult) []models.Finding {
	var findings []models.Finding
	if res.InjectionConfidence > 0 {
		findings = append(findings, securityFinding(models.AttackInjection, res.InjectionConfidence, res.Threats))
	}
	if res.JailbreakConfidence > 0 {
		findings = append(findings, securityFinding(models.AttackJailbreak, res.JailbreakConfidence, res.Threats))
	}
	return findings
}

func securityFinding(cat models.AttackCategory, conf float64, threats []SecurityThreat) models.Finding {
	f := models.Finding{
		Kind:       models.FindingSecurity,
		Type:       string(cat),
		Confidence: conf,
	}
	for _, t := range threats {
		if t.Category == cat {
			sp := t.Span
			f.Evidence = models.Evidence{Span: &sp, Pattern: t.Technique}
			break
		}
	}
	return f
}

func metaInstructionDensity(prompt string) float64 {
	words := wordSplit.FindAllString(strings.ToLower(prompt), -1)
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, w := range words {
		if _, ok := metaWords[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(words))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
