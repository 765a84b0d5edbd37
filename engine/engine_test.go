package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickRateDefaultsToSixtyHertz(t *testing.T) {
	assert.Equal(t, time.Second/60, tickRate(0))
	assert.Equal(t, time.Second/60, tickRate(-5))
	assert.Equal(t, 8*time.Millisecond, tickRate(125))
}

func TestFrameLimitZeroIsUncapped(t *testing.T) {
	assert.Zero(t, frameLimit(0))
	assert.Equal(t, 10*time.Millisecond, frameLimit(100))
}
