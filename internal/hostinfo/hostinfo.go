// Package hostinfo samples the local machine for the doctor command and
// the sample server's health endpoint.
package hostinfo

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is a point-in-time picture of the host
type Snapshot struct {
	Hostname     string  `json:"hostname"`
	OS           string  `json:"os"`
	Arch         string  `json:"arch"`
	GoVersion    string  `json:"go_version"`
	CPUCores     int     `json:"cpu_cores"`
	CPUUsagePct  float64 `json:"cpu_usage_pct"`
	MemTotal     uint64  `json:"mem_total_bytes"`
	MemUsed      uint64  `json:"mem_used_bytes"`
	MemAvailable uint64  `json:"mem_available_bytes"`
}

// Collect samples the host. Probes that fail leave their fields zeroed
// rather than failing the whole snapshot.
func Collect() Snapshot {
	s := Snapshot{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		GoVersion: runtime.Version(),
		CPUCores:  runtime.NumCPU(),
	}

	if hostname, err := os.Hostname(); err == nil {
		s.Hostname = hostname
	}

	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		s.CPUUsagePct = cpuPercent[0]
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		s.MemTotal = memInfo.Total
		s.MemUsed = memInfo.Used
		s.MemAvailable = memInfo.Available
	}

	return s
}
