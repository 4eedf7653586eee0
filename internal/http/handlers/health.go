// Package handlers provides HTTP API handlers for timedmeta.
package handlers

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
	}
}

// LivezInput is the input for the liveness endpoint.
type LivezInput struct{}

// LivezOutput is the output for the liveness endpoint.
type LivezOutput struct {
	Body struct {
		Status string `json:"status" example:"ok"`
	}
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// HealthResponse describes the process and host.
type HealthResponse struct {
	Status        string     `json:"status" example:"healthy"`
	Timestamp     string     `json:"timestamp"`
	Version       string     `json:"version"`
	Uptime        string     `json:"uptime"`
	UptimeSeconds float64    `json:"uptime_seconds"`
	CPU           CPUInfo    `json:"cpu"`
	Memory        MemoryInfo `json:"memory"`
}

// CPUInfo holds load averages.
type CPUInfo struct {
	Cores     int     `json:"cores"`
	Load1Min  float64 `json:"load_1min"`
	Load5Min  float64 `json:"load_5min"`
	Load15Min float64 `json:"load_15min"`
}

// MemoryInfo holds host and process memory in megabytes.
type MemoryInfo struct {
	TotalMemoryMB      float64 `json:"total_memory_mb"`
	UsedMemoryMB       float64 `json:"used_memory_mb"`
	AvailableMemoryMB  float64 `json:"available_memory_mb"`
	ProcessMemoryMB    float64 `json:"process_memory_mb"`
	PercentageOfSystem float64 `json:"percentage_of_system"`
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getLivez",
		Method:      "GET",
		Path:        "/livez",
		Summary:     "Liveness probe",
		Tags:        []string{"System"},
	}, h.GetLivez)

	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service including system metrics",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// GetLivez reports that the process is serving requests.
func (h *HealthHandler) GetLivez(_ context.Context, _ *LivezInput) (*LivezOutput, error) {
	out := &LivezOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(_ context.Context, _ *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	return &HealthOutput{
		Body: HealthResponse{
			Status:        "healthy",
			Timestamp:     now.UTC().Format(time.RFC3339),
			Version:       h.version,
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
			CPU:           cpuInfo(),
			Memory:        memoryInfo(),
		},
	}, nil
}

func cpuInfo() CPUInfo {
	info := CPUInfo{Cores: runtime.NumCPU()}

	if avg, err := load.Avg(); err == nil && avg != nil {
		info.Load1Min = avg.Load1
		info.Load5Min = avg.Load5
		info.Load15Min = avg.Load15
	}
	return info
}

func memoryInfo() MemoryInfo {
	const mb = 1024 * 1024
	info := MemoryInfo{}

	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		info.TotalMemoryMB = float64(vm.Total) / mb
		info.UsedMemoryMB = float64(vm.Used) / mb
		info.AvailableMemoryMB = float64(vm.Available) / mb
	}

	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pids fit in int32
	if err != nil {
		return info
	}
	if rss, err := proc.MemoryInfo(); err == nil && rss != nil {
		info.ProcessMemoryMB = float64(rss.RSS) / mb
		if info.TotalMemoryMB > 0 {
			info.PercentageOfSystem = info.ProcessMemoryMB / info.TotalMemoryMB * 100
		}
	}
	return info
}
