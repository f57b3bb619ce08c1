package domain

import (
	"fmt"
	"time"
)

// GateDecision is the resource gate's ternary outcome.
type GateDecision int

const (
	GateProceed GateDecision = iota + 1
	GateWarn
	GateBlock
)

func (g GateDecision) String() string {
	switch g {
	case GateProceed:
		return "PROCEED"
	case GateWarn:
		return "WARN"
	case GateBlock:
		return "BLOCK"
	}
	return fmt.Sprintf("GateDecision(%d)", int(g))
}

func (g GateDecision) MarshalText() ([]byte, error) {
	if g == 0 {
		return []byte{}, nil
	}
	return []byte(g.String()), nil
}

func (g *GateDecision) UnmarshalText(text []byte) error {
	switch string(text) {
	case "":
		*g = 0
	case "PROCEED":
		*g = GateProceed
	case "WARN":
		*g = GateWarn
	case "BLOCK":
		*g = GateBlock
	default:
		return fmt.Errorf("unknown gate decision %q", string(text))
	}
	return nil
}

// ResourceThresholds configures the gate.
type ResourceThresholds struct {
	CPUMaxPercent       float64 `json:"cpu_max_percent" yaml:"cpu_max_percent"`
	MemoryMaxPercent    float64 `json:"memory_max_percent" yaml:"memory_max_percent"`
	DiskMinFreePercent  float64 `json:"disk_min_free_percent" yaml:"disk_min_free_percent"`
	DiskWarnFreePercent float64 `json:"disk_warn_free_percent" yaml:"disk_warn_free_percent"`
	ZombieMax           int     `json:"zombie_max" yaml:"zombie_max"`
}

// Metric names used in ResourceSample.Missing and ResourceSampleError.
const (
	MetricCPU     = "cpu"
	MetricMemory  = "memory"
	MetricDisk    = "disk"
	MetricZombies = "zombies"
)

// ResourceSample is the raw telemetry returned by a sampler.
// Missing lists metrics that could not be read; their fields are zero.
type ResourceSample struct {
	CPUPercent      float64
	MemoryPercent   float64
	DiskFreePercent float64
	DiskFreeBytes   uint64
	DiskPath        string
	Zombies         int
	Missing         []string
}

// Has reports whether a metric was read.
func (s ResourceSample) Has(metric string) bool {
	for _, m := range s.Missing {
		if m == metric {
			return false
		}
	}
	return true
}

// ResourceSnapshot is a point-in-time reading paired with its thresholds.
type ResourceSnapshot struct {
	TakenAt         time.Time          `json:"taken_at"`
	CPUPercent      float64            `json:"cpu_percent"`
	MemoryPercent   float64            `json:"memory_percent"`
	DiskFreePercent float64            `json:"disk_free_percent"`
	DiskFreeBytes   uint64             `json:"disk_free_bytes"`
	DiskPath        string             `json:"disk_path,omitempty"`
	Zombies         int                `json:"zombies"`
	Thresholds      ResourceThresholds `json:"thresholds"`
	Sampled         bool               `json:"sampled"`
	Decision        GateDecision       `json:"decision"`
	Reasons         []string           `json:"reasons,omitempty"`
}

// Safe reports whether execution may proceed without acknowledgment.
func (s ResourceSnapshot) Safe() bool { return s.Decision == GateProceed }
