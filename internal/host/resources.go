package host

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
)

// ResourceProvider samples host CPU, memory and thread usage via gopsutil.
type ResourceProvider struct {
	proc *process.Process
}

// NewResourceProvider creates a provider bound to the current process for
// thread counting. System CPU and memory are sampled machine-wide.
func NewResourceProvider() (*ResourceProvider, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("resolve own process: %w", err)
	}
	return &ResourceProvider{proc: proc}, nil
}

// Snapshot captures one resource reading.
func (p *ResourceProvider) Snapshot(ctx context.Context) (domain.ResourceSnapshot, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return domain.ResourceSnapshot{}, fmt.Errorf("cpu sample: %w", err)
	}
	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return domain.ResourceSnapshot{}, fmt.Errorf("memory sample: %w", err)
	}

	threads, err := p.proc.NumThreadsWithContext(ctx)
	if err != nil {
		// Thread count is advisory; CPU and memory drive the breaker.
		threads = 0
	}

	return domain.ResourceSnapshot{
		CPUPercent:    cpuPct,
		MemoryPercent: vm.UsedPercent,
		ThreadCount:   int(threads),
		Timestamp:     time.Now(),
	}, nil
}
