package detect

import (
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/sentinelops/aegisgate/models"
)

// DefaultDriftThreshold flags a prompt as out of domain when any
// dimension's distance exceeds it.
const DefaultDriftThreshold = 0.7

// Baseline is one immutable reference profile. Recalibration publishes a
// new baseline with a bumped version; per-request analysis always reads a
// single consistent version.
type Baseline struct {
	Version          int64
	Topics           map[string]struct{}
	DomainIndicators map[string][]string
	LongPromptLen    int
}

var defaultTopics = []string{
	"technology", "software", "computer", "data", "system",
	"application", "service", "api", "database", "cloud",
	"security", "network", "performance", "monitoring", "analytics",
}

var defaultDomainIndicators = map[string][]string{
	"medical":   {"symptom", "disease", "diagnosis", "medication", "patient", "doctor", "hospital"},
	"legal":     {"lawsuit", "attorney", "court", "contract", "liability", "verdict"},
	"financial": {"investment", "stock", "trading", "portfolio", "dividend", "hedge"},
	"personal":  {"relationship", "emotion", "feeling", "love", "hate", "family"},
}

var (
	nestedInstructionRe = regexp.MustCompile(`(?:if|when|unless)\b.*\b(?:then|else|otherwise)`)
	stackedRequestsRe   = regexp.MustCompile(`(?:and|also|additionally|furthermore)\b.*\b(?:please|can you|could you)`)
)

// DefaultBaseline builds the seed profile used until the first
// recalibration.
func DefaultBaseline() *Baseline {
	topics := make(map[string]struct{}, len(defaultTopics))
	for _, t := range defaultTopics {
		topics[t] = struct{}{}
	}
	return &Baseline{
		Version:          1,
		Topics:           topics,
		DomainIndicators: defaultDomainIndicators,
		LongPromptLen:    500,
	}
}

// DriftResult is the per-request drift profile against one baseline
// version.
type DriftResult struct {
	BaselineVersion int64
	Dimensions      map[models.DriftDimension]float64
	DriftFactor     float64
	OODDomain       string
	OutOfDomain     bool
}

// DriftDetector compares incoming prompts against a versioned baseline.
// The baseline is the only shared state and is swapped atomically, so live
// analysis never observes a half-updated profile.
type DriftDetector struct {
	baseline  atomic.Pointer[Baseline]
	threshold float64
	version   atomic.Int64
}

// NewDriftDetector seeds the detector with the default baseline.
func NewDriftDetector(threshold float64) *DriftDetector {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultDriftThreshold
	}
	d := &DriftDetector{threshold: threshold}
	b := DefaultBaseline()
	d.version.Store(b.Version)
	d.baseline.Store(b)
	return d
}

// Analyze computes a normalized distance in [0,1] per dimension between the
// prompt's profile and the current baseline.
func (d *DriftDetector) Analyze(prompt string) DriftResult {
	b := d.baseline.Load()
	lower := strings.ToLower(prompt)
	words := wordSet(lower)

	// Topic distance: share of baseline vocabulary absent from the prompt.
	overlap := 0
	for w := range words {
		if _, ok := b.Topics[w]; ok {
			overlap++
		}
	}
	topicDist := 1.0
	if len(b.Topics) > 0 {
		topicDist = 1 - float64(overlap)/float64(len(b.Topics))
	}

	// Domain distance: strongest out-of-domain indicator hit ratio.
	domainDist, oodDomain := 0.0, ""
	for domain, indicators := range b.DomainIndicators {
		hits := 0
		for _, ind := range indicators {
			if strings.Contains(lower, ind) {
				hits++
			}
		}
		score := float64(hits) / float64(len(indicators))
		if score > domainDist {
			domainDist = score
			oodDomain = domain
		}
	}

	// Complexity distance: additive structural signals.
	complexity := 0.0
	if len(prompt) > b.LongPromptLen {
		complexity += 0.3
	}
	if nestedInstructionRe.MatchString(lower) {
		complexity += 0.2
	}
	if stackedRequestsRe.MatchString(lower) {
		complexity += 0.2
	}
	complexity = clamp01(complexity)

	res := DriftResult{
		BaselineVersion: b.Version,
		Dimensions: map[models.DriftDimension]float64{
			models.DriftTopic:      clamp01(topicDist),
			models.DriftDomain:     clamp01(domainDist),
			models.DriftComplexity: complexity,
		},
	}
	for _, v := range res.Dimensions {
		if v > res.DriftFactor {
			res.DriftFactor = v
		}
	}
	if domainDist <= 0.2 {
		res.OODDomain = ""
	} else {
		res.OODDomain = oodDomain
	}
	res.OutOfDomain = res.DriftFactor > d.threshold
	return res
}

// DriftFindings converts a drift result into findings, one per dimension.
func DriftFindings(res DriftResult) []models.Finding {
	dims := []models.DriftDimension{models.DriftTopic, models.DriftDomain, models.DriftComplexity}
	findings := make([]models.Finding, 0, len(dims))
	for _, dim := range dims {
		findings = append(findings, models.Finding{
			Kind:       models.FindingDrift,
			Type:       "baseline_distance",
			Confidence: res.Dimensions[dim],
			Evidence:   models.Evidence{Dimension: string(dim)},
		})
	}
	return findings
}

// Recalibrate builds a fresh baseline from seed traffic and publishes it
// atomically. Returns the new baseline version. Intended for a periodic
// task distinct from the per-request path.
func (d *DriftDetector) Recalibrate(seedPrompts []string) int64 {
	freq := map[string]int{}
	for _, p := range seedPrompts {
		for w := range wordSet(strings.ToLower(p)) {
			if len(w) > 3 {
				freq[w]++
			}
		}
	}

	topics := make(map[string]struct{})
	for w, n := range freq {
		// Keep terms seen in at least a fifth of seed traffic.
		if n*5 >= len(seedPrompts) {
			topics[w] = struct{}{}
		}
	}
	if len(topics) == 0 {
		for _, t := range defaultTopics {
			topics[t] = struct{}{}
		}
	}

	next := &Baseline{
		Version:          d.version.Add(1),
		Topics:           topics,
		DomainIndicators: defaultDomainIndicators,
		LongPromptLen:    500,
	}
	d.baseline.Store(next)
	return next.Version
}

// Pin installs a specific baseline, letting operators roll back to a known
// version.
func (d *DriftDetector) Pin(b *Baseline) {
	if b == nil {
		return
	}
	if b.Version > d.version.Load() {
		d.version.Store(b.Version)
	}
	d.baseline.Store(b)
}

// Reset reinstalls the default seed profile under a new version.
func (d *DriftDetector) Reset() int64 {
	b := DefaultBaseline()
	b.Version = d.version.Add(1)
	d.baseline.Store(b)
	return b.Version
}

// BaselineVersion reports the currently published version.
func (d *DriftDetector) BaselineVersion() int64 {
	return d.baseline.Load().Version
}

func wordSet(lower string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range wordSplit.FindAllString(lower, -1) {
		set[w] = struct{}{}
	}
	return set
}
