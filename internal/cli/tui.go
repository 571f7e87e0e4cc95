package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessro/devsup/internal/registry"
	"github.com/tessro/devsup/internal/supervisor"
	"github.com/tessro/devsup/internal/tui"
)

var tuiFlags processFlags

var tuiCmd = &cobra.Command{
	Use:   "tui [flags] -- <command> [args...]",
	Short: "Run a process inside the interactive log viewer",
	Long: `Start a process and watch its output in a terminal UI. Toggle between
stdout and stderr, restart or stop the process, and send it input.
The process is stopped when the viewer exits.`,
	Example: `  devsup tui -- npm run dev
  devsup tui web`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	key, spec, err := resolveSpec(cfg, args, tuiFlags)
	if err != nil {
		return err
	}

	guard := supervisor.NewGuard()
	uninstall := guard.Install()
	defer uninstall()
	defer guard.Fire()

	notifier := tui.NewNotifier(key)
	opts := registry.FromConfig(cfg)
	opts.Guard = guard
	opts.Sinks = []registry.Sink{notifier}
	reg := registry.New(opts)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.GetStopTimeout()+time.Second)
		defer cancel()
		_ = reg.Close(ctx)
	}()

	if _, err := reg.Start(cmd.Context(), key, spec); err != nil {
		return fmt.Errorf("start %s: %w", key, err)
	}

	return tui.Run(reg, tui.Options{
		Key:     key,
		Spec:    spec,
		Changes: notifier.C(),
	})
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiFlags.path, "path", "p", "", "working directory for the process")
	tuiCmd.Flags().StringVarP(&tuiFlags.name, "name", "n", "", `process name used for the log file (default "dev", or the preset name)`)
	tuiCmd.Flags().BoolVar(&tuiFlags.shell, "shell", false, "run the command through the system shell")
	rootCmd.AddCommand(tuiCmd)
}
