package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/fence"
)

// Report is one logged profiling interval.
type Report struct {
	FPS float64

	// FenceWaits is the number of fence waits in the interval and Blocked how many of them
	// actually had to block on the GPU.
	FenceWaits uint64
	Blocked    uint64

	// AvgWait is the mean time spent per fence wait in the interval.
	AvgWait time.Duration

	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	MaxPauseUs  uint64
}

// Profiler tracks frame pacing, fence wait and memory statistics for performance monitoring.
// Outputs a report through the engine logger at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	lastFence      fence.Stats
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Parameters:
//   - opts: profiler options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(opts ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tick should be called once per completed frame with the current fence statistics.
// When the update interval has elapsed it logs and returns a report covering the interval.
//
// Parameters:
//   - stats: the cumulative fence statistics of the renderer
//
// Returns:
//   - Report: the interval report, zero when nothing was logged
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats fence.Stats) (Report, bool) {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return Report{}, false
	}

	r := Report{
		FPS:        float64(p.frameCount) / elapsed.Seconds(),
		FenceWaits: stats.Waits - p.lastFence.Waits,
		Blocked:    stats.Blocked - p.lastFence.Blocked,
	}
	if r.FenceWaits > 0 {
		r.AvgWait = (stats.WaitTime - p.lastFence.WaitTime) / time.Duration(r.FenceWaits)
	}

	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	r.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	r.GCCount = p.memStats.NumGC
	startIdx := p.lastGCCount
	if r.GCCount-startIdx > 256 {
		startIdx = r.GCCount - 256
	}
	for i := startIdx; i < r.GCCount; i++ {
		if pause := p.memStats.PauseNs[i%256] / 1000; pause > r.MaxPauseUs {
			r.MaxPauseUs = pause
		}
	}

	common.Logger().Info("profiler",
		"fps", r.FPS,
		"fenceWaits", r.FenceWaits,
		"blocked", r.Blocked,
		"avgWait", r.AvgWait,
		"heapMB", r.HeapMB,
		"allocRateMB", r.AllocRateMB,
		"gc", r.GCCount,
		"maxPauseUs", r.MaxPauseUs,
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.lastFence = stats
	return r, true
}
