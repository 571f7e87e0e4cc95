package mcpserver

import (
	"fmt"
	"strings"

	"github.com/tessro/devsup/internal/logbuf"
	"github.com/tessro/devsup/internal/registry"
)

func formatEntries(entries []logbuf.Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimSuffix(logbuf.FormatLine(e), "\n"))
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func formatStats(key string, s logbuf.Stats) string {
	return fmt.Sprintf(`Log statistics for %s:
- Total entries: %d
- Standard output entries: %d
- Standard error entries: %d
- Oldest log: %s
- Newest log: %s`,
		key, s.TotalEntries, s.StdoutCount, s.StderrCount,
		orNA(s.OldestTimestamp), orNA(s.NewestTimestamp))
}

func formatStatus(st registry.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Status of %s:\n", st.Key)

	running := "No"
	switch {
	case st.Running:
		running = "Yes"
	case st.Stopping:
		running = "Stopping"
	}
	fmt.Fprintf(&b, "- Running: %s\n", running)

	if st.PID > 0 {
		fmt.Fprintf(&b, "- Process ID: %d\n", st.PID)
	} else {
		b.WriteString("- Process ID: N/A\n")
	}
	if st.Command != "" {
		fmt.Fprintf(&b, "- Command: %s\n", st.Command)
	}
	if st.Dir != "" {
		fmt.Fprintf(&b, "- Directory: %s\n", st.Dir)
	}
	if st.Uptime != "" {
		fmt.Fprintf(&b, "- Uptime: %s\n", st.Uptime)
	}
	if u := st.Usage; u != nil {
		fmt.Fprintf(&b, "- Memory: %.1f MB, CPU: %.1f%%, threads: %d, children: %d\n",
			float64(u.RSSBytes)/(1<<20), u.CPUPercent, u.Threads, u.Children)
	}
	if st.LastExit != nil {
		fmt.Fprintf(&b, "- Last exit: %s\n", st.LastExit.String())
	}
	fmt.Fprintf(&b, "- Log entries: %d (%d stdout, %d stderr)",
		st.Logs.TotalEntries, st.Logs.StdoutCount, st.Logs.StderrCount)
	return b.String()
}
