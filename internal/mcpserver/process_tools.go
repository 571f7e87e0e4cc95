package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tessro/devsup/internal/registry"
	"github.com/tessro/devsup/internal/supervisor"
)

func (s *Server) processTools() []toolDef {
	nameOpt := mcp.WithString("name",
		mcp.Description(`Process name (default "dev")`),
	)

	return []toolDef{
		{
			tool: mcp.NewTool("process_start",
				mcp.WithDescription("Start a development process and capture its output. A process already running under the same name is stopped first."),
				mcp.WithString("command",
					mcp.Description("Executable to run, or a full command line when shell is true. Required unless preset is given."),
				),
				mcp.WithArray("args",
					mcp.Description("Command arguments"),
					mcp.WithStringItems(),
				),
				mcp.WithString("project_path",
					mcp.Description("Working directory; takes precedence over cwd"),
				),
				mcp.WithString("cwd",
					mcp.Description("Working directory (optional)"),
				),
				mcp.WithObject("env",
					mcp.Description("Environment variables that override inherited ones"),
				),
				mcp.WithBoolean("shell",
					mcp.Description("Run the command through the system shell (default: false)"),
				),
				mcp.WithString("preset",
					mcp.Description("Name of a configured process to start"),
				),
				nameOpt,
			),
			handler: s.handleProcessStart,
		},
		{
			tool: mcp.NewTool("process_stop",
				mcp.WithDescription("Stop a running process. It is killed if it does not exit within the configured stop timeout."),
				nameOpt,
				mcp.WithString("signal",
					mcp.Description("Signal to send first (default: SIGTERM)"),
				),
			),
			handler: s.handleProcessStop,
		},
		{
			tool: mcp.NewTool("process_status",
				mcp.WithDescription("Report whether a process is running, its PID, uptime, resource usage and log counts"),
				nameOpt,
			),
			handler: s.handleProcessStatus,
		},
		{
			tool: mcp.NewTool("process_list",
				mcp.WithDescription("List every process started in this session as JSON"),
			),
			handler: s.handleProcessList,
		},
		{
			tool: mcp.NewTool("process_input",
				mcp.WithDescription("Send a line of input to a running process's stdin"),
				mcp.WithString("input",
					mcp.Required(),
					mcp.Description("Text to send; a newline is appended"),
				),
				nameOpt,
			),
			handler: s.handleProcessInput,
		},
	}
}

func (s *Server) handleProcessStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	var spec supervisor.Spec
	preset := stringArg(args, "preset")
	if preset != "" {
		p, ok := s.cfg.Preset(preset)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Unknown preset %q", preset)), nil
		}
		spec = supervisor.Spec{
			Command:     p.Command,
			Args:        p.Args,
			ProjectPath: p.ProjectPath,
			WorkDir:     p.Cwd,
			Env:         p.Env,
			Shell:       p.Shell,
		}
	}

	if command := stringArg(args, "command"); command != "" {
		spec.Command = command
	}
	if strings.TrimSpace(spec.Command) == "" {
		return mcp.NewToolResultError("Missing or invalid 'command' argument"), nil
	}

	cmdArgs, err := stringSliceArg(args, "args")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if cmdArgs != nil {
		spec.Args = cmdArgs
	}
	if p := stringArg(args, "project_path"); p != "" {
		spec.ProjectPath = p
	}
	if cwd := stringArg(args, "cwd"); cwd != "" {
		spec.WorkDir = cwd
	}
	env, err := stringMapArg(args, "env")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(env) > 0 {
		merged := make(map[string]string, len(spec.Env)+len(env))
		for k, v := range spec.Env {
			merged[k] = v
		}
		for k, v := range env {
			merged[k] = v
		}
		spec.Env = merged
	}
	spec.Shell = boolArg(args, "shell", spec.Shell)

	key := stringArg(args, "name")
	if key == "" {
		key = preset
	}
	if key == "" {
		key = s.defaultKey
	}

	s.log.Info("process_start", "key", key, "command", spec.Command, "args", spec.Args)
	info, err := s.reg.Start(ctx, key, spec)
	if err != nil {
		s.log.Error("process_start: failed", "key", key, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start %s: %v", key, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Started %s (PID %d)", key, info.PID)), nil
}

func (s *Server) handleProcessStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	key := s.key(args)

	var sig syscall.Signal
	if name := stringArg(args, "signal"); name != "" {
		parsed, ok := supervisor.ParseSignal(name)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Unknown signal %q", name)), nil
		}
		sig = parsed
	}

	st, err := s.reg.Status(key)
	if err != nil || (!st.Running && !st.Stopping) {
		return mcp.NewToolResultText(fmt.Sprintf("No process named %s is currently running.", key)), nil
	}

	s.log.Info("process_stop", "key", key, "pid", st.PID)
	if err := s.reg.Stop(ctx, key, sig); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to stop %s: %v", key, err)), nil
	}

	msg := "Stopped " + key
	if after, err := s.reg.Status(key); err == nil && after.LastExit != nil {
		msg += " (" + after.LastExit.String() + ")"
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) handleProcessStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := s.key(request.GetArguments())

	st, err := s.reg.Status(key)
	if errors.Is(err, registry.ErrUnknownProcess) {
		return mcp.NewToolResultText(fmt.Sprintf("No process named %s has been started.", key)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStatus(st)), nil
}

func (s *Server) handleProcessList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(s.reg.List(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode process list: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleProcessInput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := request.RequireString("input")
	if err != nil {
		return mcp.NewToolResultError("Missing or invalid 'input' argument"), nil
	}
	key := s.key(request.GetArguments())

	if err := s.reg.SendInput(key, input); err != nil {
		if errors.Is(err, registry.ErrUnknownProcess) || errors.Is(err, supervisor.ErrNotRunning) {
			return mcp.NewToolResultError(fmt.Sprintf("No process named %s is currently running.", key)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to send input to %s: %v", key, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Sent %d bytes to %s", len(input)+1, key)), nil
}
