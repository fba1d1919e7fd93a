package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
)

var perfMeter = Meter("go.perf_stats")
var cpuGauge, _ = perfMeter.Float64Gauge("cpu_usage")
var memoryGauge, _ = perfMeter.Int64Gauge("allocated_mb")
var goroutineGauge, _ = perfMeter.Int64Gauge("goroutine_count")

// InstrumentPerfStats samples process stats every `every` until ctx is done.
func InstrumentPerfStats(ctx context.Context, every time.Duration) {
	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.PercentWithContext(ctx, 0, false)
				if err == nil && len(cpuUsage) > 0 {
					cpuGauge.Record(ctx, cpuUsage[0])
				} else if err != nil {
					slog.DebugContext(ctx, "failed to read cpu usage", "err", err)
				}

				memoryGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
}
