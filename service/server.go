package service

import (
	"time"

	"github.com/EdoardoFiore/madmin-strongswan/logger"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/vishvananda/netlink"
)

// ServerStatus is the panel's host and daemon overview.
type ServerStatus struct {
	Cpu    float64 `json:"cpu"`
	Mem    struct {
		Current uint64 `json:"current"`
		Total   uint64 `json:"total"`
	} `json:"mem"`
	Uptime uint64 `json:"uptime"`

	Swanctl struct {
		Available bool   `json:"available"`
		Version   string `json:"version,omitempty"`
	} `json:"swanctl"`

	Xfrm struct {
		States   int `json:"states"`
		Policies int `json:"policies"`
	} `json:"xfrm"`
}

type ServerService struct{}

// GetStatus collects host metrics, the swanctl version and the kernel XFRM
// table sizes. Every probe degrades independently.
func (s *ServerService) GetStatus() *ServerStatus {
	status := &ServerStatus{}

	percents, err := cpu.Percent(time.Second, false)
	if err != nil {
		logger.Warning("Get cpu percent failed: ", err)
	} else if len(percents) > 0 {
		status.Cpu = percents[0]
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		logger.Warning("Get virtual memory failed: ", err)
	} else {
		status.Mem.Current = memInfo.Used
		status.Mem.Total = memInfo.Total
	}

	uptime, err := host.Uptime()
	if err != nil {
		logger.Warning("Get uptime failed: ", err)
	} else {
		status.Uptime = uptime
	}

	if version, err := NewSwanctlService().Version(); err == nil {
		status.Swanctl.Available = true
		status.Swanctl.Version = version
	}

	// The kernel XFRM tables show whether the daemon actually installed SAs
	// and policies, independent of what VICI reports.
	if states, err := netlink.XfrmStateList(netlink.FAMILY_ALL); err == nil {
		status.Xfrm.States = len(states)
	}
	if policies, err := netlink.XfrmPolicyList(netlink.FAMILY_ALL); err == nil {
		status.Xfrm.Policies = len(policies)
	}

	return status
}

// GetLogs returns buffered panel log lines.
func (s *ServerService) GetLogs(count int, level string) []string {
	return logger.GetLogs(count, level)
}
