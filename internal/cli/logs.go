package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tessro/devsup/internal/config"
	"github.com/tessro/devsup/internal/logbuf"
)

var (
	logsType   string
	logsFilter string
	logsAfter  string
	logsCount  int
	logsJSON   bool
	logsFollow bool
)

var logsCmd = &cobra.Command{
	Use:   "logs [name]",
	Short: "Show captured output of a process",
	Long: `Show output captured for a process from its log file. The file is written
by "devsup serve" and "devsup run" and survives after they exit.`,
	Example: `  devsup logs
  devsup logs web --type stderr --count 20
  devsup logs web --filter error --follow`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogs,
}

func runLogs(cmd *cobra.Command, args []string) error {
	key := config.DefaultProcessKey
	if len(args) > 0 {
		key = args[0]
	}
	if err := config.ValidateKey(key); err != nil {
		return err
	}

	streamType, err := logbuf.ParseStreamType(logsType)
	if err != nil {
		return err
	}
	if logsCount < 0 {
		return fmt.Errorf("--count must be non-negative")
	}
	q := logbuf.Query{
		Type:   streamType,
		After:  logbuf.NormalizeAfter(logsAfter),
		Filter: logsFilter,
		Count:  logsCount,
	}

	path, err := cfg.LogPath(key)
	if err != nil {
		return fmt.Errorf("resolve log path: %w", err)
	}

	out := cmd.OutOrStdout()
	entries, err := logbuf.ReadMirrorFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if !logsFollow {
			fmt.Fprintf(out, "No logs for %s (%s does not exist)\n", key, path)
			return nil
		}
	case err != nil:
		return fmt.Errorf("read logs: %w", err)
	}

	for _, e := range logbuf.Filter(entries, q) {
		if err := printEntry(out, e, logsJSON); err != nil {
			return err
		}
	}
	if !logsFollow {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	var offset int64
	if info, err := os.Stat(path); err == nil {
		offset = info.Size()
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return followLogs(ctx, path, offset, q, out)
}

// followLogs streams entries appended after offset that match q's type,
// After and filter stages.
func followLogs(ctx context.Context, path string, offset int64, q logbuf.Query, out io.Writer) error {
	f := logbuf.NewFollower(path, offset)
	return f.Run(ctx, func(e logbuf.Entry) {
		if q.Match(e) {
			_ = printEntry(out, e, logsJSON)
		}
	})
}

func printEntry(w io.Writer, e logbuf.Entry, asJSON bool) error {
	if !asJSON {
		_, err := io.WriteString(w, logbuf.FormatLine(e))
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func init() {
	logsCmd.Flags().StringVarP(&logsType, "type", "t", "all", "stream to show: all, stdout, or stderr")
	logsCmd.Flags().StringVar(&logsFilter, "filter", "", "only lines containing this text (case-insensitive)")
	logsCmd.Flags().StringVar(&logsAfter, "after", "", "only lines after this RFC 3339 timestamp")
	logsCmd.Flags().IntVarP(&logsCount, "count", "c", 0, "show only the last N matching lines (0 for all)")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "print one JSON object per line")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "keep printing new lines as they are written")
	rootCmd.AddCommand(logsCmd)
}
