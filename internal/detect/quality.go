package detect

import (
	"math"
	"strings"

	"github.com/sentinelops/aegisgate/models"
)

// NeutralQuality is returned when the scorer cannot evaluate a response;
// quality failures degrade to a neutral score rather than aborting the
// request.
const NeutralQuality = 0.5

// QualityResult scores a produced response against its prompt.
type QualityResult struct {
	Quality                 float64
	Coherence               float64
	HallucinationSuspected  bool
	HallucinationConfidence float64
}

// ScoreQuality evaluates a response for coherence and hallucination risk.
// Runs only on requests that were not blocked pre-model. Pure function;
// an empty or unusable response yields the neutral score.
//
// quality = 0.5*coherence + 0.3*coverage + 0.2*length
//   - coherence: unique-token ratio, penalizing degenerate repetition
//   - coverage: share of the prompt's content words echoed in the response
//   - length: saturating credit for substantive answers
//
// A response that barely touches the prompt's vocabulary while being long
// enough to assert something is treated as hallucination-suspect.
func ScoreQuality(prompt, response string) QualityResult {
	respWords := wordSplit.FindAllString(strings.ToLower(response), -1)
	if len(respWords) == 0 {
		return QualityResult{Quality: NeutralQuality, Coherence: NeutralQuality}
	}

	unique := map[string]struct{}{}
	for _, w := range respWords {
		unique[w] = struct{}{}
	}
	coherence := float64(len(unique)) / float64(len(respWords))

	coverage := promptCoverage(prompt, unique)
	length := math.Min(1, float64(len(respWords))/50.0)

	quality := clamp01(0.5*coherence + 0.3*coverage + 0.2*length)

	res := QualityResult{
		Quality:   quality,
		Coherence: clamp01(coherence),
	}
	if coverage < 0.2 && len(respWords) > 10 {
		res.HallucinationSuspected = true
		res.HallucinationConfidence = clamp01(1 - 2*coverage)
	}
	return res
}

// QualityFindings converts a quality result into findings for the audit
// trail and the advisory guardrail pass.
func QualityFindings(res QualityResult) []models.Finding {
	findings := []models.Finding{
		{
			Kind:       models.FindingQuality,
			Type:       "quality_score",
			Confidence: res.Quality,
		},
	}
	if res.HallucinationSuspected {
		findings = append(findings, models.Finding{
			Kind:       models.FindingQuality,
			Type:       "hallucination",
			Confidence: res.HallucinationConfidence,
		})
	}
	return findings
}

func promptCoverage(prompt string, respUnique map[string]struct{}) float64 {
	content := 0
	covered := 0
	for _, w := range wordSplit.FindAllString(strings.ToLower(prompt), -1) {
		if len(w) <= 4 {
			continue
		}
		content++
		if _, ok := respUnique[w]; ok {
			covered++
		}
	}
	if content == 0 {
		// Nothing substantive to echo; give full credit.
		return 1
	}
	return float64(covered) / float64(content)
}
