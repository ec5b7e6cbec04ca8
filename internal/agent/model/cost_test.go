package model

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestResolvePricing(t *testing.T) {
	assert.Equal(t, Pricing{InputPerM: 0.15, OutputPerM: 0.60}, ResolvePricing("gpt-4o-mini"))
	assert.Equal(t, Pricing{InputPerM: 0.15, OutputPerM: 0.60}, ResolvePricing(" GPT-4o-mini-2024-07-18 "))
	assert.Equal(t, Pricing{InputPerM: 0.10, OutputPerM: 0.40}, ResolvePricing("gemini-2.5-flash-lite"))
	assert.Equal(t, Pricing{}, ResolvePricing("unknown-model"))
}

func TestComputeCost(t *testing.T) {
	in, out, total := ComputeCost(&schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 500_000}, Pricing{InputPerM: 0.15, OutputPerM: 0.60})
	assert.InDelta(t, 0.15, in, 1e-9)
	assert.InDelta(t, 0.30, out, 1e-9)
	assert.InDelta(t, 0.45, total, 1e-9)

	in, out, total = ComputeCost(nil, Pricing{InputPerM: 1})
	assert.Zero(t, in+out+total)
}
