package core

import (
	"sync"

	"github.com/spaghettifunk/lumen/engine/containers"
)

const AVG_COUNT = 30

type MetricsState struct {
	frameTimes         *containers.RingQueue[float64]
	MSavg              float64
	Frames             int32
	AccumulatedFrameMS float64
	FPS                float64
}

var metricsMu sync.Mutex
var metricsState *MetricsState

func MetricsInitialize() error {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	metricsState = &MetricsState{
		frameTimes: containers.NewRingQueue[float64](AVG_COUNT),
	}
	return nil
}

// MetricsUpdate records the duration of one frame, in seconds.
func MetricsUpdate(frameElapsedTime float64) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if metricsState == nil {
		return
	}

	// moving average over the last AVG_COUNT frames
	frameMS := frameElapsedTime * 1000.0
	if metricsState.frameTimes.IsFull() {
		_, _ = metricsState.frameTimes.Dequeue()
	}
	_ = metricsState.frameTimes.Enqueue(frameMS)

	total := 0.0
	metricsState.frameTimes.Each(func(ms float64) { total += ms })
	metricsState.MSavg = total / float64(metricsState.frameTimes.Len())

	// Calculate Frames per second.
	metricsState.AccumulatedFrameMS += frameMS
	if metricsState.AccumulatedFrameMS > 1000 {
		metricsState.FPS = float64(metricsState.Frames)
		metricsState.AccumulatedFrameMS -= 1000
		metricsState.Frames = 0
	}

	// Count all Frames.
	metricsState.Frames++
}

func MetricsFPS() float64 {
	fps, _ := MetricsFrame()
	return fps
}

// MetricsFrameTime returns the averaged frame time in milliseconds.
func MetricsFrameTime() float64 {
	_, ms := MetricsFrame()
	return ms
}

func MetricsFrame() (float64, float64) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if metricsState == nil {
		return 0, 0
	}
	return metricsState.FPS, metricsState.MSavg
}
