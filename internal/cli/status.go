package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tessro/devsup/internal/config"
	"github.com/tessro/devsup/internal/daemon"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server state and configured processes",
	Long:  "Show whether an SSE server is running and list the processes defined in the config file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		running, pid := daemon.IsServerRunning(daemon.DefaultPIDPath())
		return printStatus(cmd.OutOrStdout(), cfg, running, pid)
	},
}

func printStatus(w io.Writer, c *config.Config, running bool, pid int) error {
	if running {
		fmt.Fprintf(w, "▶ devsup SSE server running (pid %d) on http://%s:%d%s/sse\n",
			pid, c.GetHost(), c.GetPort(), c.GetBasePath())
	} else {
		fmt.Fprintln(w, "▶ devsup SSE server is not running")
	}
	if c.MQTTEnabled() {
		fmt.Fprintf(w, "   MQTT: %s (topics %s/<name>/<type>)\n", c.MQTT.Broker, c.GetTopicPrefix())
	}
	fmt.Fprintln(w)

	names := c.PresetNames()
	if len(names) == 0 {
		fmt.Fprintln(w, "No processes configured.")
		fmt.Fprintln(w, "Define one under [processes.<name>] in the config file.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tCOMMAND\tDIR")
	for _, name := range names {
		p, _ := c.Preset(name)
		command := strings.TrimSpace(strings.Join(append([]string{p.Command}, p.Args...), " "))
		if p.Shell {
			command = "sh -c " + command
		}
		dir := p.ProjectPath
		if dir == "" {
			dir = p.Cwd
		}
		if dir == "" {
			dir = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", name, command, dir)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
