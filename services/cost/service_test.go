package cost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single word", "hello", 2},
		{"ten words", "one two three four five six seven eight nine ten", 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateTokens(tt.text))
		})
	}
}

func TestEstimateTokensDeterministic(t *testing.T) {
	text := "the same text must always produce the same estimate"
	first := EstimateTokens(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, EstimateTokens(text))
	}
}

func TestEstimate(t *testing.T) {
	svc := NewService(zap.NewNop(), nil)

	est := svc.EstimateTokenCount(DefaultModel, 1000, 500)

	assert.Equal(t, DefaultModel, est.Model)
	assert.Equal(t, 1000, est.InputTokens)
	assert.Equal(t, 500, est.OutputTokens)
	assert.InDelta(t, 0.0006+0.5*0.0024, est.Amount, 1e-9)
	assert.Equal(t, "EUR", est.Currency)
}

func TestEstimateUnknownModelUsesDefaultRate(t *testing.T) {
	svc := NewService(zap.NewNop(), nil)

	known := svc.EstimateTokenCount(DefaultModel, 100, 100)
	unknown := svc.EstimateTokenCount("mystery-model", 100, 100)

	assert.Equal(t, "mystery-model", unknown.Model)
	assert.Equal(t, known.Amount, unknown.Amount)
}

func TestZero(t *testing.T) {
	svc := NewService(zap.NewNop(), nil)

	est := svc.Zero("")

	assert.Equal(t, DefaultModel, est.Model)
	assert.Zero(t, est.Amount)
	assert.Zero(t, est.InputTokens)
	assert.Zero(t, est.OutputTokens)
}

func TestNewServiceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	content := `
currency: USD
models:
  aegis-sim-1:
    input_per_1k: 0.001
    output_per_1k: 0.002
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	svc, err := NewServiceFromFile(zap.NewNop(), path)
	require.NoError(t, err)

	est := svc.EstimateTokenCount(DefaultModel, 1000, 1000)
	assert.Equal(t, "USD", est.Currency)
	assert.InDelta(t, 0.003, est.Amount, 1e-9)
}

func TestNewServiceFromFileRejectsNegativePrice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	content := "models:\n  bad:\n    input_per_1k: -1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := NewServiceFromFile(zap.NewNop(), path)
	assert.Error(t, err)
}
