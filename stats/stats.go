package stats

import (
	"context"
	"runtime"
	"time"

	"adfilter/logger"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// cpuSampleWindow 采样 CPU 使用率的时间窗口
const cpuSampleWindow = 200 * time.Millisecond

// SystemStats 进程与主机资源快照
type SystemStats struct {
	CPUCores      int     `json:"cpu_cores"`
	CPUUsagePct   float64 `json:"cpu_usage_pct"`
	MemTotalMB    uint64  `json:"mem_total_mb"`
	MemUsedMB     uint64  `json:"mem_used_mb"`
	MemUsagePct   float64 `json:"mem_usage_pct"`
	GoMemAllocMB  uint64  `json:"go_mem_alloc_mb"`
	Goroutines    int     `json:"goroutines"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Collector 收集系统状态
type Collector struct {
	startTime time.Time
}

// NewCollector 创建收集器，并预热 CPU 使用率计算
// （gopsutil 第一次非阻塞调用 Percent 会返回 0）
func NewCollector() *Collector {
	go func() {
		if _, err := cpu.Percent(time.Second, false); err != nil {
			logger.Warnf("无法初始化 CPU 使用率统计: %v", err)
		}
	}()
	return &Collector{startTime: time.Now()}
}

// System 返回当前系统状态。获取失败的字段保持为 0，不返回错误
func (c *Collector) System(ctx context.Context) SystemStats {
	s := SystemStats{
		CPUCores:      runtime.NumCPU(),
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: time.Since(c.startTime).Seconds(),
	}

	ctx, cancel := context.WithTimeout(ctx, 2*cpuSampleWindow)
	defer cancel()

	if usage, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false); err != nil {
		logger.Warnf("无法获取 CPU 使用率: %v", err)
	} else if len(usage) > 0 {
		s.CPUUsagePct = usage[0]
	}

	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		logger.Warnf("无法获取内存信息: %v", err)
	} else {
		s.MemTotalMB = memInfo.Total / 1024 / 1024
		s.MemUsedMB = memInfo.Used / 1024 / 1024
		s.MemUsagePct = memInfo.UsedPercent
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	s.GoMemAllocMB = memStats.Alloc / 1024 / 1024

	return s
}
