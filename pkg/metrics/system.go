package metrics

import (
	"context"
	"runtime"
	"time"
)

const nanosecondsPerMillisecond = 1e6

// CollectSystemMetrics samples runtime memory, goroutine and GC statistics.
func CollectSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	UpdateSystemMemoryUsage(m.Alloc)
	UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		RecordSystemGCPauseTime(avgPauseMs)
	}
}

// RunSystemCollector samples system metrics every refresh interval until ctx is done.
func RunSystemCollector(ctx context.Context) {
	ticker := time.NewTicker(RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			CollectSystemMetrics()
		}
	}
}

// RefreshInterval returns the gauge refresh interval of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
