package cost

import (
	"fmt"
	"math"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sentinelops/aegisgate/models"
)

// DefaultModel is charged when the provider does not report one.
const DefaultModel = "aegis-sim-1"

// DefaultCurrency for all estimates.
const DefaultCurrency = "EUR"

// tokensPerWord approximates subword tokenization for latin-script text.
const tokensPerWord = 1.3

// ModelPricing is the per-1k-token price of one model.
type ModelPricing struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// PricingTable maps model names to their prices.
type PricingTable map[string]ModelPricing

// DefaultPricing covers the built-in simulated models.
func DefaultPricing() PricingTable {
	return PricingTable{
		DefaultModel: {InputPer1K: 0.0006, OutputPer1K: 0.0024},
		"aegis-sim-pro": {InputPer1K: 0.0030, OutputPer1K: 0.0120},
	}
}

// pricingFile is the on-disk shape of a pricing override file.
type pricingFile struct {
	Currency string       `yaml:"currency"`
	Models   PricingTable `yaml:"models"`
}

// Service estimates the monetary cost of model invocations.
type Service struct {
	logger   *zap.Logger
	table    PricingTable
	currency string
}

// NewService builds an estimator over the given table, falling back to the
// defaults when table is nil.
func NewService(logger *zap.Logger, table PricingTable) *Service {
	if table == nil {
		table = DefaultPricing()
	}
	return &Service{logger: logger, table: table, currency: DefaultCurrency}
}

// NewServiceFromFile loads a YAML pricing file and builds an estimator on
// it.
func NewServiceFromFile(logger *zap.Logger, path string) (*Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pricing file %s: %w", path, err)
	}

	var pf pricingFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing pricing file %s: %w", path, err)
	}

	table := DefaultPricing()
	for model, pricing := range pf.Models {
		if pricing.InputPer1K < 0 || pricing.OutputPer1K < 0 {
			return nil, fmt.Errorf("pricing file %s: negative price for model %s", path, model)
		}
		table[model] = pricing
	}

	s := NewService(logger, table)
	if pf.Currency != "" {
		s.currency = pf.Currency
	}
	return s, nil
}

// EstimateTokens approximates the token count of a text. Deterministic so
// repeated estimates for the same text always agree.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) * tokensPerWord))
}

// Estimate prices one invocation from its raw texts. Unknown models are
// charged at the default model's rate.
func (s *Service) Estimate(model, prompt, response string) models.CostEstimate {
	return s.EstimateTokenCount(model, EstimateTokens(prompt), EstimateTokens(response))
}

// EstimateTokenCount prices an invocation from already-known token counts.
func (s *Service) EstimateTokenCount(model string, inputTokens, outputTokens int) models.CostEstimate {
	if model == "" {
		model = DefaultModel
	}
	pricing, ok := s.table[model]
	if !ok {
		s.logger.Warn("no pricing for model, charging default rate",
			zap.String("model", model))
		pricing = s.table[DefaultModel]
	}

	amount := float64(inputTokens)/1000*pricing.InputPer1K +
		float64(outputTokens)/1000*pricing.OutputPer1K

	return models.CostEstimate{
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Amount:       amount,
		Currency:     s.currency,
	}
}

// Zero returns an empty estimate for requests that never reached a model.
func (s *Service) Zero(model string) models.CostEstimate {
	if model == "" {
		model = DefaultModel
	}
	return models.CostEstimate{Model: model, Currency: s.currency}
}
