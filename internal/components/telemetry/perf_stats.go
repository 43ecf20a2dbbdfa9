package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.opentelemetry.io/otel"
)

const report_perf_stats = "perf-stats"

// InstrumentPerfStats records process and host gauges every 30 seconds until
// ctx is done. Headless browsers live outside the go heap so host memory is
// recorded next to the runtime numbers.
func InstrumentPerfStats(ctx context.Context, tel API) {
	meter := otel.Meter("magistrant.perf_stats")
	cpuGauge, _ := meter.Float64Gauge("cpu_usage")
	allocGauge, _ := meter.Int64Gauge("allocated_mb")
	hostMemGauge, _ := meter.Float64Gauge("host_memory_used_percent")
	goroutineGauge, _ := meter.Int64Gauge("goroutine_count")

	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(time.Second * 30)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.PercentWithContext(ctx, time.Second, false)
				if err == nil && len(cpuUsage) > 0 {
					cpuGauge.Record(ctx, cpuUsage[0])
				} else if err != nil {
					tel.ReportWarning(report_perf_stats, err)
				}

				vm, err := mem.VirtualMemoryWithContext(ctx)
				if err == nil {
					hostMemGauge.Record(ctx, vm.UsedPercent)
				} else {
					tel.ReportWarning(report_perf_stats, err)
				}

				allocGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
}
