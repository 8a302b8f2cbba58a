package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solodevflow/solodev/internal/state"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		usage float64
		want  BudgetStatus
	}{
		{0, StatusOptimal},
		{0.59, StatusOptimal},
		{0.60, StatusWarning},
		{0.79, StatusWarning},
		{0.80, StatusCritical},
		{1.5, StatusCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.usage), "usage %.2f", tt.usage)
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(3))
	assert.Equal(t, 100, EstimateTokens(400))
}

func TestBudget(t *testing.T) {
	res := newTestLoader(t).ForPhase(state.PhaseImplementation)
	require.NotNil(t, res.Budget)
	b := res.Budget

	require.Len(t, b.Files, 4)
	assert.Equal(t, statePath, b.Files[0].Path)
	for _, f := range b.Files[1:] {
		assert.Equal(t, 100, f.Tokens, f.Path)
	}
	total := 0
	for _, f := range b.Files {
		total += f.Tokens
	}
	assert.Equal(t, total, b.Tokens)
	assert.Equal(t, DefaultMaxTokens, b.MaxTokens)
	assert.Equal(t, StatusOptimal, b.Status)
	assert.Equal(t, "context budget healthy", b.Recommendation)
}

func TestBudget_SmallWindow(t *testing.T) {
	res := newTestLoader(t, WithMaxTokens(400)).ForPhase(state.PhaseArchitecture)
	require.NotNil(t, res.Budget)
	assert.Equal(t, StatusCritical, res.Budget.Status)
	assert.Greater(t, res.Budget.UsagePercent, 100.0)
	assert.Contains(t, res.Budget.Recommendation, "one module at a time")
}
