package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuscore/gateway/internal/models"
)

func TestRateTracker_ZeroLimitsNeverProjectOverage(t *testing.T) {
	r := NewRateTracker()
	limits := models.RateLimits{}
	assert.False(t, r.ProjectsOverage(models.ProviderOpenAI, "gpt-4o", limits, 100000, 100000))
}

func TestRateTracker_RPMBoundary(t *testing.T) {
	r := NewRateTracker()
	clock := time.Now()
	r.now = func() time.Time { return clock }
	limits := models.RateLimits{RPM: 2}

	require.False(t, r.ProjectsOverage(models.ProviderAnthropic, "claude-3-5-haiku", limits, 10, 10))
	r.RecordUsage(models.ProviderAnthropic, "claude-3-5-haiku", 20)

	require.False(t, r.ProjectsOverage(models.ProviderAnthropic, "claude-3-5-haiku", limits, 10, 10))
	r.RecordUsage(models.ProviderAnthropic, "claude-3-5-haiku", 20)

	assert.True(t, r.ProjectsOverage(models.ProviderAnthropic, "claude-3-5-haiku", limits, 10, 10))
}

func TestRateTracker_TPMProjection(t *testing.T) {
	r := NewRateTracker()
	clock := time.Now()
	r.now = func() time.Time { return clock }
	limits := models.RateLimits{TPM: 1000}

	r.RecordUsage(models.ProviderGoogle, "gemini-1.5-pro", 900)
	assert.True(t, r.ProjectsOverage(models.ProviderGoogle, "gemini-1.5-pro", limits, 50, 60))
	assert.False(t, r.ProjectsOverage(models.ProviderGoogle, "gemini-1.5-pro", limits, 50, 40))
}

func TestRateTracker_WindowRotatesAfterMinute(t *testing.T) {
	r := NewRateTracker()
	clock := time.Now()
	r.now = func() time.Time { return clock }
	limits := models.RateLimits{RPM: 1}

	r.RecordUsage(models.ProviderOpenAI, "gpt-4o-mini", 10)
	require.True(t, r.ProjectsOverage(models.ProviderOpenAI, "gpt-4o-mini", limits, 1, 1))

	clock = clock.Add(61 * time.Second)
	assert.False(t, r.ProjectsOverage(models.ProviderOpenAI, "gpt-4o-mini", limits, 1, 1))
}

func TestRateTracker_DailyLimitsIndependentOfMinuteWindow(t *testing.T) {
	r := NewRateTracker()
	clock := time.Now()
	r.now = func() time.Time { return clock }
	limits := models.RateLimits{RPD: 1}

	r.RecordUsage(models.ProviderAnthropic, "claude-opus-4", 10)
	clock = clock.Add(2 * time.Minute)
	assert.True(t, r.ProjectsOverage(models.ProviderAnthropic, "claude-opus-4", limits, 1, 1))
}
