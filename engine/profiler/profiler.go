package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-jit/common"
)

// Stats is a snapshot of the counters a BuildProfiler has accumulated since it was created or
// last reset.
type Stats struct {
	Hits           int
	Misses         int
	Builds         int
	Failures       int
	TotalBuildTime time.Duration
	MaxBuildTime   time.Duration
}

// AverageBuildTime returns the mean duration of successful builds, zero when there were none.
//
// Returns:
//   - time.Duration: the mean build duration
func (s Stats) AverageBuildTime() time.Duration {
	if s.Builds == 0 {
		return 0
	}
	return s.TotalBuildTime / time.Duration(s.Builds)
}

// BuildProfiler tracks cache hits, misses and variant build timings, and logs a summary together
// with heap statistics at a configurable interval.
type BuildProfiler struct {
	mu             sync.Mutex
	stats          Stats
	lastTime       time.Time
	lastBuilds     int
	updateInterval time.Duration
	memStats       runtime.MemStats
	now            func() time.Time
}

// NewBuildProfiler creates a new BuildProfiler.
//
// Parameters:
//   - interval: the minimum time between two logged summaries, one second when zero or negative
//
// Returns:
//   - *BuildProfiler: the newly created profiler instance
func NewBuildProfiler(interval time.Duration) *BuildProfiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &BuildProfiler{
		lastTime:       time.Now(),
		updateInterval: interval,
		now:            time.Now,
	}
}

// RecordHit counts a lookup served from the cache.
func (p *BuildProfiler) RecordHit() {
	p.mu.Lock()
	p.stats.Hits++
	p.mu.Unlock()
}

// RecordMiss counts a lookup that had to build a variant.
func (p *BuildProfiler) RecordMiss() {
	p.mu.Lock()
	p.stats.Misses++
	p.mu.Unlock()
}

// RecordBuild counts a finished build and its duration. Failed builds only count as failures.
//
// Parameters:
//   - d: how long the build took
//   - err: the build error, nil on success
func (p *BuildProfiler) RecordBuild(d time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.stats.Failures++
		return
	}
	p.stats.Builds++
	p.stats.TotalBuildTime += d
	if d > p.stats.MaxBuildTime {
		p.stats.MaxBuildTime = d
	}
}

// Stats returns a snapshot of the counters.
//
// Returns:
//   - Stats: the counters
func (p *BuildProfiler) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Reset zeroes every counter.
func (p *BuildProfiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = Stats{}
	p.lastBuilds = 0
}

// Tick logs a summary when the update interval has elapsed since the last summary.
// The summary includes the build rate, hit ratio, build timings and heap usage.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *BuildProfiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	var hitRatio float64
	if lookups := p.stats.Hits + p.stats.Misses; lookups > 0 {
		hitRatio = float64(p.stats.Hits) / float64(lookups)
	}
	buildRate := float64(p.stats.Builds-p.lastBuilds) / elapsed.Seconds()

	// Alloc is live heap; Sys is the process footprint obtained from the OS.
	runtime.ReadMemStats(&p.memStats)
	common.Logger().Info("variant build stats",
		"builds", p.stats.Builds,
		"failures", p.stats.Failures,
		"builds_per_sec", buildRate,
		"hit_ratio", hitRatio,
		"avg_build", p.stats.AverageBuildTime(),
		"max_build", p.stats.MaxBuildTime,
		"heap_mb", float64(p.memStats.Alloc)/1024/1024,
		"sys_mb", float64(p.memStats.Sys)/1024/1024,
	)

	p.lastTime = currentTime
	p.lastBuilds = p.stats.Builds
	return true
}
