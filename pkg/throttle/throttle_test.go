package throttle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewControllerClampsInitialBatch(t *testing.T) {
	// Tiny provisioned RU should clamp up to the floor.
	c := NewController(Aggressive, 10, 1)
	assert.Equal(t, 5, c.BatchSize())

	// Huge provisioned RU should clamp down to the ceiling.
	c2 := NewController(Aggressive, 1_000_000, 1)
	assert.Equal(t, 500, c2.BatchSize())
}

func TestNewControllerUsesSafetyMargin(t *testing.T) {
	// availableRU = 10000*0.95 = 9500, ruPerDoc = 10+5*1 = 15 => 633 -> clamp 500
	aggressive := NewController(Aggressive, 10000, 1)
	assert.Equal(t, 500, aggressive.BatchSize())

	// availableRU = 1000*0.75 = 750, ruPerDoc = 15 => 50
	conservative := NewController(Conservative, 1000, 1)
	assert.Equal(t, 50, conservative.BatchSize())
}

func TestAggressiveWarmupScaleUp(t *testing.T) {
	c := NewController(Aggressive, 1000, 1) // batch ~ 63
	before := c.BatchSize()
	for i := 0; i < 20; i++ {
		c.OnSuccess()
	}
	assert.Greater(t, c.BatchSize(), before)
}

func TestAggressivePostWarmupScaleUp(t *testing.T) {
	th := DefaultThresholds()
	c := NewControllerWithThresholds(Aggressive, 1000, 1, th)
	// push past the warmup window without throttling
	for i := 0; i < th.WarmupOps+1; i++ {
		c.OnSuccess()
	}
	before := c.BatchSize()
	for i := 0; i < th.AggressiveNormalInterval; i++ {
		c.OnSuccess()
	}
	assert.Greater(t, c.BatchSize(), before)
}

func TestAggressiveCutAfterToleratedThrottles(t *testing.T) {
	th := DefaultThresholds()
	c := NewControllerWithThresholds(Aggressive, 100000, 1, th)
	before := c.BatchSize()
	for i := 0; i < th.AggressiveThrottleTol-1; i++ {
		c.OnThrottle()
		assert.Equal(t, before, c.BatchSize(), "should not cut before tolerance reached")
	}
	c.OnThrottle()
	assert.Less(t, c.BatchSize(), before)
}

func TestAggressiveSaturatedCutIsSharper(t *testing.T) {
	th := DefaultThresholds()
	c := NewControllerWithThresholds(Aggressive, 100000, 1, th)
	for i := 0; i < th.SaturationOps+1; i++ {
		c.OnSuccess()
	}
	before := c.BatchSize()
	for i := 0; i < th.AggressiveThrottleTol; i++ {
		c.OnThrottle()
	}
	afterSaturated := c.BatchSize()

	c2 := NewControllerWithThresholds(Aggressive, 100000, 1, th)
	before2 := c2.BatchSize()
	for i := 0; i < th.AggressiveThrottleTol; i++ {
		c2.OnThrottle()
	}
	afterNormal := c2.BatchSize()

	saturatedCutRatio := float64(afterSaturated) / float64(before)
	normalCutRatio := float64(afterNormal) / float64(before2)
	assert.Less(t, saturatedCutRatio, normalCutRatio)
}

func TestConservativeScaleUpAndCut(t *testing.T) {
	th := DefaultThresholds()
	c := NewControllerWithThresholds(Conservative, 1000, 1, th)
	before := c.BatchSize()
	for i := 0; i < th.ConservativeInterval; i++ {
		c.OnSuccess()
	}
	assert.Greater(t, c.BatchSize(), before)

	beforeCut := c.BatchSize()
	for i := 0; i < th.ConservativeThrottleTol; i++ {
		c.OnThrottle()
	}
	assert.Less(t, c.BatchSize(), beforeCut)
}

func TestTotalThrottlesAccumulates(t *testing.T) {
	c := NewController(Conservative, 1000, 1)
	c.OnThrottle()
	c.OnThrottle()
	c.OnThrottle()
	assert.Equal(t, 3, c.TotalThrottles())
}

func TestIsSaturatedLatchesUntilNextSuccess(t *testing.T) {
	c := NewController(Conservative, 1000, 1)
	assert.False(t, c.IsSaturated())

	for i := 0; i < DefaultThresholds().ConservativeThrottleTol; i++ {
		c.OnThrottle()
	}
	assert.True(t, c.IsSaturated(), "a cut should latch saturation")

	c.OnSuccess()
	assert.False(t, c.IsSaturated(), "a success should clear saturation")
}

func TestFallbackConcurrencyBuckets(t *testing.T) {
	assert.Equal(t, 5, FallbackConcurrency(500))
	assert.Equal(t, 20, FallbackConcurrency(5000))
	assert.Equal(t, 50, FallbackConcurrency(50000))
	assert.Equal(t, 50, FallbackConcurrency(5_000_000))
}
