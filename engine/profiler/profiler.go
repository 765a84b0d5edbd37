package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
)

// Report is one interval of profiling data.
type Report struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
	// Draws is the mean G-buffer draw count per frame.
	Draws float64
	// Passes is the mean CPU recording time of each pass, in pass order.
	Passes []renderer.PassTime
}

// Profiler tracks frame rate, memory and per-pass recording times.
// Outputs a Report to the shared logger at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	draws     int
	passOrder []string
	passTotal map[string]time.Duration

	now func() time.Time
}

// NewProfiler creates a new Profiler that reports once per interval.
//
// Parameters:
//   - interval: the reporting interval; zero or less means one second
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: interval,
		passTotal:      make(map[string]time.Duration),
		now:            time.Now,
	}
}

// Tick should be called once per rendered frame with that frame's statistics.
// Logs a Report when the update interval has elapsed.
//
// Parameters:
//   - stats: the statistics of the frame just rendered
//
// Returns:
//   - *Report: the report logged this tick, or nil
func (p *Profiler) Tick(stats renderer.Stats) *Report {
	p.frameCount++
	p.draws += stats.Draws
	for _, pt := range stats.Passes {
		if _, ok := p.passTotal[pt.Name]; !ok {
			p.passOrder = append(p.passOrder, pt.Name)
		}
		p.passTotal[pt.Name] += pt.Duration
	}

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return nil
	}

	report := p.report(elapsed)
	attrs := []any{
		"fps", report.FPS,
		"heap_mb", report.HeapMB,
		"alloc_rate_mb", report.AllocRateMB,
		"gc", report.GCCount,
		"gc_last_us", report.LastPauseUs,
		"gc_max_us", report.MaxPauseUs,
		"sys_mb", report.SysMB,
		"draws", report.Draws,
	}
	passes := make([]any, 0, len(report.Passes))
	for _, pt := range report.Passes {
		passes = append(passes, slog.Duration(pt.Name, pt.Duration))
	}
	attrs = append(attrs, slog.Group("passes", passes...))
	common.Logger().Info("profiler", attrs...)

	p.frameCount = 0
	p.draws = 0
	p.lastTime = currentTime
	clear(p.passTotal)
	p.passOrder = p.passOrder[:0]
	return report
}

func (p *Profiler) report(elapsed time.Duration) *Report {
	runtime.ReadMemStats(&p.memStats)
	frames := float64(p.frameCount)
	r := &Report{
		FPS:         frames / elapsed.Seconds(),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
		Draws:       float64(p.draws) / frames,
	}

	// PauseNs is a circular buffer of the last 256 GC pauses.
	if gc := p.memStats.NumGC; gc > 0 {
		r.LastPauseUs = p.memStats.PauseNs[(gc-1)%256] / 1000
		start := p.lastGCCount
		if gc-start > 256 {
			start = gc - 256
		}
		for i := start; i < gc; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc

	for _, name := range p.passOrder {
		r.Passes = append(r.Passes, renderer.PassTime{Name: name, Duration: p.passTotal[name] / time.Duration(p.frameCount)})
	}
	return r
}
