package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRollingAverage(t *testing.T) {
	m := NewMetrics()
	m.Update(0.010)
	m.Update(0.020)
	assert.InDelta(t, 15.0, m.FrameTime(), 1e-9)

	for i := 0; i < AVG_COUNT; i++ {
		m.Update(0.004)
	}
	// the two slow frames have rolled out of the window
	assert.InDelta(t, 4.0, m.FrameTime(), 1e-9)
}

func TestMetricsFPS(t *testing.T) {
	m := NewMetrics()
	// 101 frames at 10ms crosses the one second boundary once.
	for i := 0; i < 101; i++ {
		m.Update(0.010)
	}
	fps, _ := m.Frame()
	assert.Equal(t, float64(100), fps)
}
