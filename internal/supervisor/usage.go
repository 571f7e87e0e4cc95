package supervisor

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// Usage is a point-in-time resource snapshot of the supervised process.
type Usage struct {
	PID        int     `json:"pid"`
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	Threads    int32   `json:"threads"`
	Children   int     `json:"children"`
}

// Usage samples the running process. It returns ErrNotRunning when idle.
func (s *Supervisor) Usage() (Usage, error) {
	pid, ok := s.PID()
	if !ok {
		return Usage{}, ErrNotRunning
	}
	return usageOf(pid)
}

func usageOf(pid int) (Usage, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return Usage{}, fmt.Errorf("lookup process %d: %w", pid, err)
	}

	u := Usage{PID: pid}
	mem, err := p.MemoryInfo()
	if err != nil {
		return Usage{}, fmt.Errorf("memory info: %w", err)
	}
	u.RSSBytes = mem.RSS

	// Best effort: these are unavailable on some platforms.
	if cpu, err := p.CPUPercent(); err == nil {
		u.CPUPercent = cpu
	}
	if n, err := p.NumThreads(); err == nil {
		u.Threads = n
	}
	if children, err := p.Children(); err == nil {
		u.Children = len(children)
	}
	return u, nil
}
