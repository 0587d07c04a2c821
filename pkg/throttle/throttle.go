/*
Package throttle implements the adaptive batch-size controller that
sits between the rate limiter and the DocStoreWriter. It grows the batch
size on sustained success and cuts it back on sustained throttling, using
one of two policies depending on how the target container's throughput was
provisioned. Concurrency is not adapted: FallbackConcurrency derives a
worker-pool size once, from the document count alone.
*/
package throttle

import "math"

// Policy selects the scale-up/scale-down cadence.
type Policy int

const (
	// Aggressive suits autoscale or serverless containers, which absorb
	// bursts without a hard throughput ceiling.
	Aggressive Policy = iota
	// Conservative suits manually provisioned containers with a fixed RU
	// budget and no burst headroom.
	Conservative
)

// Thresholds are the policy's tunable magic numbers, broken out per the
// engine's documented caveat that the warmup/saturation constants are
// source-defined and should be adjustable rather than hardcoded.
type Thresholds struct {
	WarmupOps     int // ops since last throttle below which the warmup cadence applies
	SaturationOps int // ops since last throttle above which a re-throttle is "saturated"

	AggressiveWarmupInterval  int // successes between scale-ups during warmup
	AggressiveWarmupFactor    float64
	AggressiveNormalInterval  int // successes between scale-ups after warmup
	AggressiveNormalFactor    float64
	AggressiveThrottleTol     int // consecutive throttles tolerated before a cut
	AggressiveWarmupCut       float64
	AggressiveSaturatedCut    float64
	AggressiveNormalCut       float64
	ConservativeInterval      int // successes between scale-ups
	ConservativeFactor        float64
	ConservativeThrottleTol   int
	ConservativeCut           float64
	AggressiveSafetyMargin    float64
	ConservativeSafetyMargin float64
}

// DefaultThresholds returns the engine's documented constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarmupOps:                100,
		SaturationOps:            200,
		AggressiveWarmupInterval: 20,
		AggressiveWarmupFactor:   1.5,
		AggressiveNormalInterval: 30,
		AggressiveNormalFactor:   1.1,
		AggressiveThrottleTol:    5,
		AggressiveWarmupCut:      0.8,
		AggressiveSaturatedCut:   0.5,
		AggressiveNormalCut:      0.6,
		ConservativeInterval:     10,
		ConservativeFactor:       1.2,
		ConservativeThrottleTol:  2,
		ConservativeCut:          0.5,
		AggressiveSafetyMargin:   0.95,
		ConservativeSafetyMargin: 0.75,
	}
}

const (
	minBatchFloor = 5
	maxBatchCeil  = 500
)

// Controller tracks the current batch size and adapts it in response to
// OnSuccess/OnThrottle observations from the writer.
type Controller struct {
	policy     Policy
	thresholds Thresholds

	currentBatch float64
	minBatch     float64
	maxBatch     float64

	consecutiveSuccesses int
	consecutiveThrottles int
	totalThrottles       int
	opsSinceLastThrottle int
	opsBeforeStreak      int  // opsSinceLastThrottle when the current throttle streak began
	saturated            bool // latched by a cut, cleared by the next OnSuccess
}

// NewController sizes the initial batch from provisioned RU and average
// document size, per the engine's availableRU/ruPerDoc formula, and clamps
// it to [5, 500].
func NewController(policy Policy, provisionedRU, avgDocSizeKB float64) *Controller {
	return NewControllerWithThresholds(policy, provisionedRU, avgDocSizeKB, DefaultThresholds())
}

// NewControllerWithThresholds is NewController with explicit tunables.
func NewControllerWithThresholds(policy Policy, provisionedRU, avgDocSizeKB float64, th Thresholds) *Controller {
	margin := th.ConservativeSafetyMargin
	if policy == Aggressive {
		margin = th.AggressiveSafetyMargin
	}
	availableRU := provisionedRU * margin
	ruPerDoc := 10 + 5*avgDocSizeKB
	if ruPerDoc <= 0 {
		ruPerDoc = 10
	}
	initial := availableRU / ruPerDoc
	initial = clamp(initial, minBatchFloor, maxBatchCeil)

	return &Controller{
		policy:       policy,
		thresholds:   th,
		currentBatch: initial,
		minBatch:     minBatchFloor,
		maxBatch:     maxBatchCeil,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// BatchSize returns the current batch size, rounded to the nearest int.
func (c *Controller) BatchSize() int {
	return int(math.Round(c.currentBatch))
}

// TotalThrottles returns the cumulative throttle count observed.
func (c *Controller) TotalThrottles() int {
	return c.totalThrottles
}

// IsSaturated reports whether the most recent OnThrottle call cut the batch
// size. It stays true until the next OnSuccess, so callers polling between
// writes see sustained throttling rather than a single flicker.
func (c *Controller) IsSaturated() bool {
	return c.saturated
}

// OnSuccess records a successful operation and scales the batch up if the
// policy's success-interval threshold is reached.
func (c *Controller) OnSuccess() {
	c.consecutiveSuccesses++
	c.consecutiveThrottles = 0
	c.opsSinceLastThrottle++
	c.saturated = false

	switch c.policy {
	case Aggressive:
		inWarmup := c.opsSinceLastThrottle <= c.thresholds.WarmupOps
		switch {
		case inWarmup && c.consecutiveSuccesses >= c.thresholds.AggressiveWarmupInterval:
			c.scale(c.thresholds.AggressiveWarmupFactor)
			c.consecutiveSuccesses = 0
		case !inWarmup && c.consecutiveSuccesses >= c.thresholds.AggressiveNormalInterval:
			c.scale(c.thresholds.AggressiveNormalFactor)
			c.consecutiveSuccesses = 0
		}
	case Conservative:
		if c.consecutiveSuccesses >= c.thresholds.ConservativeInterval {
			c.scale(c.thresholds.ConservativeFactor)
			c.consecutiveSuccesses = 0
		}
	}
}

// OnThrottle records a 429/rate-limited response and cuts the batch once
// the policy's consecutive-throttle tolerance is reached.
func (c *Controller) OnThrottle() {
	c.consecutiveThrottles++
	c.totalThrottles++
	c.consecutiveSuccesses = 0
	if c.consecutiveThrottles == 1 {
		c.opsBeforeStreak = c.opsSinceLastThrottle
	}

	switch c.policy {
	case Aggressive:
		if c.consecutiveThrottles >= c.thresholds.AggressiveThrottleTol {
			cut := c.thresholds.AggressiveNormalCut
			switch {
			case c.opsBeforeStreak > c.thresholds.SaturationOps:
				cut = c.thresholds.AggressiveSaturatedCut
			case c.opsBeforeStreak <= c.thresholds.WarmupOps:
				cut = c.thresholds.AggressiveWarmupCut
			}
			c.scale(cut)
			c.consecutiveThrottles = 0
			c.saturated = true
		}
	case Conservative:
		if c.consecutiveThrottles >= c.thresholds.ConservativeThrottleTol {
			c.scale(c.thresholds.ConservativeCut)
			c.consecutiveThrottles = 0
			c.saturated = true
		}
	}
	c.opsSinceLastThrottle = 0
}

func (c *Controller) scale(factor float64) {
	c.currentBatch = clamp(c.currentBatch*factor, c.minBatch, c.maxBatch)
}

// FallbackConcurrency estimates a worker-pool size from a document count
// alone. ImportPipeline uses it on every run, whether or not throughput
// metadata is available; no worker-pool size is derived from RU. Mirrors
// the source pipeline's doc-count buckets.
func FallbackConcurrency(totalDocs int) int {
	switch {
	case totalDocs < 1000:
		return 5
	case totalDocs < 10000:
		return 20
	case totalDocs < 100000:
		return 50
	default:
		return 50
	}
}
