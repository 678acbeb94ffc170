package docker

import (
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-units"
)

// NewStatsRow converts a raw stats sample into the columns `docker stats` prints
func NewStatsRow(v *container.StatsResponse) StatsRow {
	row := StatsRow{
		Name: strings.TrimPrefix(v.Name, "/"),
		PIDs: v.PidsStats.Current,
	}

	row.CPU = cpuPercent(v)
	row.CPUPerc = fmt.Sprintf("%.2f%%", row.CPU)

	mem := memoryUsage(&v.MemoryStats)
	limit := v.MemoryStats.Limit
	row.MemUsage = units.BytesSize(float64(mem)) + " / " + units.BytesSize(float64(limit))
	if limit > 0 {
		row.MemPerc = fmt.Sprintf("%.2f%%", float64(mem)/float64(limit)*100.0)
	} else {
		row.MemPerc = "0.00%"
	}

	var rx, tx uint64
	for _, n := range v.Networks {
		rx += n.RxBytes
		tx += n.TxBytes
	}
	row.NetIO = humanPair(rx, tx)

	var read, write uint64
	for _, b := range v.BlkioStats.IoServiceBytesRecursive {
		switch strings.ToLower(b.Op) {
		case "read":
			read += b.Value
		case "write":
			write += b.Value
		}
	}
	row.BlockIO = humanPair(read, write)
	return row
}

func cpuPercent(v *container.StatsResponse) float64 {
	cpus := float64(v.CPUStats.OnlineCPUs)
	if cpus == 0 {
		cpus = float64(len(v.CPUStats.CPUUsage.PercpuUsage))
	}
	if v.CPUStats.CPUUsage.TotalUsage < v.PreCPUStats.CPUUsage.TotalUsage ||
		v.CPUStats.SystemUsage <= v.PreCPUStats.SystemUsage || cpus == 0 {
		return 0
	}
	cpuDelta := float64(v.CPUStats.CPUUsage.TotalUsage - v.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(v.CPUStats.SystemUsage - v.PreCPUStats.SystemUsage)
	return cpuDelta / systemDelta * cpus * 100.0
}

// memoryUsage subtracts the page cache: total_inactive_file on cgroup v1,
// inactive_file on cgroup v2
func memoryUsage(m *container.MemoryStats) uint64 {
	if v, ok := m.Stats["total_inactive_file"]; ok && v < m.Usage {
		return m.Usage - v
	}
	if v := m.Stats["inactive_file"]; v < m.Usage {
		return m.Usage - v
	}
	return m.Usage
}

func humanPair(a, b uint64) string {
	return units.HumanSizeWithPrecision(float64(a), 3) + " / " + units.HumanSizeWithPrecision(float64(b), 3)
}
