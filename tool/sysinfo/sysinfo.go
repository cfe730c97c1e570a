// Package sysinfo exposes host uptime, memory, load and disk usage as the
// system_info tool.
package sysinfo

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/hupe1980/sovereign/internal/util"
	"github.com/hupe1980/sovereign/tool"
)

// ToolName is the action name of the system information tool.
const ToolName = "system_info"

// Snapshot is a point-in-time view of the host.
type Snapshot struct {
	Hostname        string        `json:"hostname"`
	Platform        string        `json:"platform"`
	PlatformVersion string        `json:"platform_version"`
	KernelVersion   string        `json:"kernel_version"`
	Uptime          time.Duration `json:"uptime"`
	CPUCores        int           `json:"cpu_cores"`
	LoadAverage     []float64     `json:"load_average,omitempty"`
	MemTotal        uint64        `json:"mem_total"`
	MemUsed         uint64        `json:"mem_used"`
	MemUsedPercent  float64       `json:"mem_used_percent"`
	DiskPath        string        `json:"disk_path"`
	DiskTotal       uint64        `json:"disk_total"`
	DiskFree        uint64        `json:"disk_free"`
	DiskUsedPercent float64       `json:"disk_used_percent"`
	// Errors lists sections that could not be collected.
	Errors []string `json:"errors,omitempty"`
}

// Collect gathers a snapshot. Individual probe failures are recorded in
// Snapshot.Errors; an error is returned only when nothing could be read.
func Collect(ctx context.Context, path string) (*Snapshot, error) {
	if path == "" {
		path = defaultPath()
	}
	s := &Snapshot{Platform: runtime.GOOS, DiskPath: path}
	ok := false

	if info, err := host.InfoWithContext(ctx); err == nil {
		s.Hostname = info.Hostname
		s.Platform = info.Platform
		s.PlatformVersion = info.PlatformVersion
		s.KernelVersion = info.KernelVersion
		s.Uptime = time.Duration(info.Uptime) * time.Second
		ok = true
	} else {
		s.Errors = append(s.Errors, "host: "+err.Error())
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		s.CPUCores = n
	} else {
		s.Errors = append(s.Errors, "cpu: "+err.Error())
	}

	if avg, err := load.AvgWithContext(ctx); err == nil && avg != nil {
		s.LoadAverage = []float64{avg.Load1, avg.Load5, avg.Load15}
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.MemTotal = vm.Total
		s.MemUsed = vm.Used
		s.MemUsedPercent = vm.UsedPercent
		ok = true
	} else {
		s.Errors = append(s.Errors, "memory: "+err.Error())
	}

	if du, err := disk.UsageWithContext(ctx, path); err == nil {
		s.DiskTotal = du.Total
		s.DiskFree = du.Free
		s.DiskUsedPercent = du.UsedPercent
		ok = true
	} else {
		s.Errors = append(s.Errors, "disk: "+err.Error())
	}

	if !ok {
		return nil, fmt.Errorf("collect system info: %s", strings.Join(s.Errors, "; "))
	}
	return s, nil
}

// String renders the snapshot as observation text.
func (s *Snapshot) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "host: %s (%s %s)\n", s.Hostname, s.Platform, s.PlatformVersion)
	fmt.Fprintf(&sb, "uptime: %s\n", s.Uptime)
	fmt.Fprintf(&sb, "cpu cores: %d", s.CPUCores)
	if len(s.LoadAverage) == 3 {
		fmt.Fprintf(&sb, ", load: %.2f %.2f %.2f", s.LoadAverage[0], s.LoadAverage[1], s.LoadAverage[2])
	}
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "memory: %s used of %s (%.1f%%)\n", humanBytes(s.MemUsed), humanBytes(s.MemTotal), s.MemUsedPercent)
	fmt.Fprintf(&sb, "disk %s: %s free of %s (%.1f%% used)", s.DiskPath, humanBytes(s.DiskFree), humanBytes(s.DiskTotal), s.DiskUsedPercent)
	for _, e := range s.Errors {
		sb.WriteString("\nunavailable: " + e)
	}
	return sb.String()
}

type params struct {
	Path string `json:"path,omitempty" description:"Filesystem path whose disk usage is reported"`
}

// NewTool exposes Collect as the system_info tool. diskPath is reported when
// the action names no path; empty means the system root.
func NewTool(diskPath string) *tool.FunctionTool {
	return tool.NewFunctionToolFromStruct(
		ToolName,
		"Report host uptime, CPU, memory and disk usage.",
		params{},
		func(ctx context.Context, p map[string]any) (string, error) {
			path := util.String(p, "path")
			if path == "" {
				path = diskPath
			}
			s, err := Collect(ctx, path)
			if err != nil {
				return "", err
			}
			return s.String(), nil
		},
	)
}

func defaultPath() string {
	if runtime.GOOS == "windows" {
		return `C:\`
	}
	return "/"
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
