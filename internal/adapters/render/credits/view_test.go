package credits

import (
	"strings"
	"testing"

	"github.com/bnema/beright/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCreditsSingleDevice(t *testing.T) {
	output, err := RenderCredits([]domain.CreditSnapshot{
		{
			DeviceID:             "dev-1",
			PaidCredits:          3,
			PaidCreditsPurchased: 5,
			PaidCreditsUsed:      2,
			FreeCreditsUsed:      4,
			FreeAvailableToday:   true,
			FreePoolRemaining:    75,
			UnitPrice:            20,
			Currency:             "eur",
		},
	}, RenderOptions{PoolLimit: 100})

	require.NoError(t, err)
	assert.Contains(t, output, "devices: 1")
	assert.Contains(t, output, "dev-1")
	assert.Contains(t, output, "paid credits: 3 (purchased 5, used 2)")
	assert.Contains(t, output, "available")
	assert.Contains(t, output, "0.20 EUR per credit")
	assert.Contains(t, output, "75/100 left")
	assert.Contains(t, output, "[")
}

func TestRenderCreditsExhaustedPool(t *testing.T) {
	output, err := RenderCredits([]domain.CreditSnapshot{
		{DeviceID: "dev-1", FreePoolRemaining: 0, UnitPrice: 150, Currency: "usd"},
		{DeviceID: "dev-2", FreePoolRemaining: 0, UnitPrice: 150, Currency: "usd"},
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "devices: 2")
	assert.Contains(t, output, "pool exhausted")
	assert.Contains(t, output, "free pool: 0 left")
	assert.Contains(t, output, "1.50 USD per credit")
	assert.Equal(t, 2, strings.Count(output, "pool exhausted"))
}

func TestRenderCreditsEmpty(t *testing.T) {
	output, err := RenderCredits(nil, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "No devices to show.")
}

func TestRenderAnalysis(t *testing.T) {
	output, err := RenderAnalysis(domain.AnalysisResult{
		Topic:               "Remote work",
		PerspectiveALabel:   "Apple",
		PerspectiveBLabel:   "Pear",
		SummaryBullets:      []string{"both value focus"},
		PerspectiveABullets: []string{"culture matters"},
		Narration:           "Both sides see more now.",
		SummaryLinks:        []domain.Link{{Title: "Study", URL: "https://example.org/study"}},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "Remote work")
	assert.Contains(t, output, "Apple")
	assert.Contains(t, output, "• both value focus")
	assert.Contains(t, output, "Study <https://example.org/study>")
	assert.Contains(t, output, "nothing yet")
	assert.Contains(t, output, "Both sides see more now.")
}

func TestProgressBarBounds(t *testing.T) {
	s := newStyles()

	assert.Empty(t, renderProgressBar(1, 0, 10, s))
	assert.Equal(t, 10, strings.Count(renderProgressBar(200, 100, 10, s), "="))
	assert.Equal(t, 10, strings.Count(renderProgressBar(-5, 100, 10, s), "-"))
}
