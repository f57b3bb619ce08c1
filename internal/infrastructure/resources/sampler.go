package resources

import (
	"context"
	"errors"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// SystemSampler implements ResourceSampler with gopsutil.
type SystemSampler struct {
	diskPath    string
	cpuInterval time.Duration
}

func NewSystemSampler(diskPath string, cpuInterval time.Duration) *SystemSampler {
	if diskPath == "" {
		diskPath = domain.DefaultDiskPath
	}
	if cpuInterval <= 0 {
		cpuInterval = domain.DefaultCPUSampleInterval
	}
	return &SystemSampler{diskPath: diskPath, cpuInterval: cpuInterval}
}

// Sample reads every metric it can. Metrics that fail are listed in Missing and
// reported through a joined *domain.ResourceSampleError.
func (s *SystemSampler) Sample(ctx context.Context) (domain.ResourceSample, error) {
	sample := domain.ResourceSample{DiskPath: s.diskPath}
	var errs []error
	miss := func(metric string, err error) {
		sample.Missing = append(sample.Missing, metric)
		errs = append(errs, &domain.ResourceSampleError{Metric: metric, Err: err})
	}

	if pct, err := cpu.PercentWithContext(ctx, s.cpuInterval, false); err != nil {
		miss(domain.MetricCPU, err)
	} else if len(pct) == 0 {
		miss(domain.MetricCPU, errors.New("no cpu readings"))
	} else {
		sample.CPUPercent = pct[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		miss(domain.MetricMemory, err)
	} else {
		sample.MemoryPercent = vm.UsedPercent
	}

	if usage, err := disk.UsageWithContext(ctx, s.diskPath); err != nil {
		miss(domain.MetricDisk, err)
	} else if usage.Total == 0 {
		miss(domain.MetricDisk, errors.New("filesystem reports zero size"))
	} else {
		sample.DiskFreeBytes = usage.Free
		sample.DiskFreePercent = float64(usage.Free) / float64(usage.Total) * 100
	}

	if zombies, err := countZombies(ctx); err != nil {
		miss(domain.MetricZombies, err)
	} else {
		sample.Zombies = zombies
	}

	return sample, errors.Join(errs...)
}

func countZombies(ctx context.Context) (int, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, p := range procs {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		status, err := p.StatusWithContext(ctx)
		if err != nil {
			// process exited or is not readable
			continue
		}
		for _, st := range status {
			if st == process.Zombie {
				count++
				break
			}
		}
	}
	return count, nil
}

var _ ports.ResourceSampler = (*SystemSampler)(nil)
