package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickReportsAveragesPerInterval(t *testing.T) {
	start := time.Unix(100, 0)
	now := start
	p := NewProfiler(time.Second)
	p.lastTime = start
	p.now = func() time.Time { return now }

	frame := renderer.Stats{
		Draws: 4,
		Passes: []renderer.PassTime{
			{Name: "gbuffer", Duration: 2 * time.Millisecond},
			{Name: "lighting", Duration: 4 * time.Millisecond},
		},
	}
	for range 3 {
		now = now.Add(250 * time.Millisecond)
		assert.Nil(t, p.Tick(frame))
	}
	now = now.Add(250 * time.Millisecond)
	frame.Draws = 8
	report := p.Tick(frame)
	require.NotNil(t, report)

	assert.InDelta(t, 4, report.FPS, 1e-9)
	assert.InDelta(t, 5, report.Draws, 1e-9)
	require.Len(t, report.Passes, 2)
	assert.Equal(t, "gbuffer", report.Passes[0].Name)
	assert.Equal(t, 2*time.Millisecond, report.Passes[0].Duration)
	assert.Equal(t, 4*time.Millisecond, report.Passes[1].Duration)

	now = now.Add(100 * time.Millisecond)
	assert.Nil(t, p.Tick(renderer.Stats{}), "counters restart after a report")
}

func TestNewProfilerDefaultsInterval(t *testing.T) {
	assert.Equal(t, time.Second, NewProfiler(0).updateInterval)
}
