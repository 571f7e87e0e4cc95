package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tessro/devsup/internal/registry"
	"github.com/tessro/devsup/internal/supervisor"
)

var runFlags processFlags

var (
	runStdoutStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	runStderrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	runStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command> [args...]",
	Short: "Run a process in the foreground",
	Long: `Run a process in the foreground, printing stdout in green and stderr in red.

Output is captured to the same log file the MCP server uses, so "devsup logs"
works while it runs. Lines typed on stdin are sent to the process; typing
"exit" stops it gracefully.`,
	Example: `  devsup run -- npm run dev
  devsup run -p ./web "npm run dev"
  devsup run --shell -- "make watch | tee build.log"
  devsup run web`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

// exitCodeError carries a child's non-zero exit to main.
type exitCodeError struct {
	status supervisor.ExitStatus
}

func (e *exitCodeError) Error() string {
	return "process ended with " + e.status.String()
}

func runRun(cmd *cobra.Command, args []string) error {
	key, spec, err := resolveSpec(cfg, args, runFlags)
	if err != nil {
		return err
	}

	guard := supervisor.NewGuard()
	uninstall := guard.Install()
	defer uninstall()
	defer guard.Fire()

	opts := registry.FromConfig(cfg)
	opts.Guard = guard
	opts.Sinks = []registry.Sink{registry.SinkFunc(func(key string, ev supervisor.Event) {
		printEvent(os.Stdout, os.Stderr, ev)
	})}
	reg := registry.New(opts)

	ctx := cmd.Context()
	if _, err := reg.Start(ctx, key, spec); err != nil {
		return err
	}
	sup, err := reg.Supervisor(key)
	if err != nil {
		return err
	}

	go forwardStdin(ctx, reg, key, os.Stdin)

	<-sup.Done()
	if exit, ok := sup.LastExit(); ok && (exit.Code == nil || *exit.Code != 0) {
		return &exitCodeError{status: exit}
	}
	return nil
}

// printEvent writes one supervisor event to the terminal.
func printEvent(stdout, stderr io.Writer, ev supervisor.Event) {
	switch ev.Type {
	case supervisor.EventStart:
		fmt.Fprintln(stderr, runStatusStyle.Render(fmt.Sprintf("▶ started (PID %d)", ev.PID)))
	case supervisor.EventStdout:
		fmt.Fprintln(stdout, runStdoutStyle.Render(ev.Text))
	case supervisor.EventStderr:
		fmt.Fprintln(stderr, runStderrStyle.Render(ev.Text))
	case supervisor.EventError:
		fmt.Fprintln(stderr, runStderrStyle.Render(fmt.Sprintf("✗ %v", ev.Err)))
	case supervisor.EventExit:
		status := supervisor.ExitStatus{Code: ev.ExitCode, Signal: ev.Signal}
		fmt.Fprintln(stderr, runStatusStyle.Render("■ "+status.String()))
	}
}

// forwardStdin sends each line read from in to the process. "exit" stops
// the process instead.
func forwardStdin(ctx context.Context, reg *registry.Registry, key string, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "exit" {
			if err := reg.Stop(ctx, key, 0); err != nil {
				slog.Warn("run: stop failed", "key", key, "error", err)
			}
			return
		}
		if err := reg.SendInput(key, line); err != nil {
			slog.Debug("run: input dropped", "key", key, "error", err)
			return
		}
	}
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.path, "path", "p", "", "working directory for the process")
	runCmd.Flags().StringVarP(&runFlags.name, "name", "n", "", `process name used for the log file (default "dev", or the preset name)`)
	runCmd.Flags().BoolVar(&runFlags.shell, "shell", false, "run the command through the system shell")
	rootCmd.AddCommand(runCmd)
}
