package system

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostStats - снимок нагрузки для отчета о производительности.
type HostStats struct {
	CPUPercent  float64
	MemPercent  float64
	MemUsedMB   uint64
	ProcessRSS  uint64 // MB
	ProcessCPU  float64
	NumCPU      int
	CollectedAt time.Time
}

// CollectHostStats собирает загрузку CPU, памяти хоста и RSS текущего процесса.
// Недоступные метрики остаются нулевыми.
func CollectHostStats() HostStats {
	s := HostStats{CollectedAt: time.Now()}

	if n, err := cpu.Counts(true); err == nil {
		s.NumCPU = n
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemPercent = vm.UsedPercent
		s.MemUsedMB = vm.Used / 1024 / 1024
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfo(); err == nil {
			s.ProcessRSS = info.RSS / 1024 / 1024
		}
		if c, err := p.CPUPercent(); err == nil {
			s.ProcessCPU = c
		}
	}
	return s
}

func (s HostStats) String() string {
	return fmt.Sprintf("CPU: %.1f%% (%d cores) | Process CPU: %.1f%% | RAM: %.1f%% (%d MB) | RSS: %d MB",
		s.CPUPercent, s.NumCPU, s.ProcessCPU, s.MemPercent, s.MemUsedMB, s.ProcessRSS)
}
