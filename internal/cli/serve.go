package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessro/devsup/internal/daemon"
	"github.com/tessro/devsup/internal/mcpserver"
	"github.com/tessro/devsup/internal/mqtt"
	"github.com/tessro/devsup/internal/registry"
	"github.com/tessro/devsup/internal/supervisor"
)

var (
	serveSSE  bool
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Run the devsup MCP server. By default it speaks MCP over stdin/stdout so an
agent can launch it directly; --sse serves it over HTTP instead.

Every process started through the server is killed when the server exits.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	guard := supervisor.NewGuard()
	uninstall := guard.Install()
	defer uninstall()
	defer guard.Fire()

	opts := registry.FromConfig(cfg)
	opts.Guard = guard

	if cfg.MQTTEnabled() {
		client, err := mqtt.Connect(cfg.MQTT, cfg.GetTopicPrefix())
		if err != nil {
			// The server is still useful without the broker.
			slog.Warn("serve: mqtt disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			defer func() { _ = client.Close() }()
			sink := mqtt.NewSink(client, mqtt.Topics{Prefix: cfg.GetTopicPrefix()}, client.QoS())
			defer sink.Close()
			opts.Sinks = append(opts.Sinks, sink)
		}
	}

	reg := registry.New(opts)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.GetStopTimeout()+time.Second)
		defer cancel()
		if err := reg.Close(ctx); err != nil {
			slog.Warn("serve: stopping processes", "error", err)
		}
	}()

	srv := mcpserver.New(reg, cfg)
	ctx := cmd.Context()

	transport := strings.ToLower(cfg.GetTransport())
	if serveSSE {
		transport = "sse"
	}

	if transport != "sse" {
		slog.Info("serve: stdio transport")
		return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	}

	host := cfg.GetHost()
	if cmd.Flags().Changed("host") {
		host = serveHost
	}
	port := cfg.GetPort()
	if cmd.Flags().Changed("port") {
		port = servePort
	}

	release, err := daemon.Acquire(daemon.DefaultPIDPath())
	if err != nil {
		return err
	}
	defer release()
	// Signals bypass the deferred release, so the guard removes the file too.
	guard.Add(supervisor.KillerFunc(func() error {
		release()
		return nil
	}))

	fmt.Fprintf(os.Stderr, "▶ devsup MCP server on http://%s:%d%s/sse\n", host, port, cfg.GetBasePath())
	return srv.ServeSSE(ctx, host, port, cfg.GetBasePath())
}

func init() {
	serveCmd.Flags().BoolVar(&serveSSE, "sse", false, "serve over HTTP server-sent events instead of stdio")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "SSE listen host (default from config, else localhost)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "SSE listen port (default from config, else 8765)")
	rootCmd.AddCommand(serveCmd)
}
