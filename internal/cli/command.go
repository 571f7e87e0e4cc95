package cli

import (
	"errors"
	"strings"

	"github.com/tessro/devsup/internal/config"
	"github.com/tessro/devsup/internal/supervisor"
)

// errNoCommand is returned when run or tui is given nothing to run.
var errNoCommand = errors.New("no command given (usage: devsup run -- <command> [args...])")

// processFlags are shared by run and tui.
type processFlags struct {
	path  string
	name  string
	shell bool
}

// resolveSpec turns command-line arguments into a process key and spec.
//
// A single argument naming a configured preset starts that preset. A single
// argument containing spaces is split into command and arguments, unless
// the command runs through the shell, which receives it whole.
func resolveSpec(c *config.Config, args []string, flags processFlags) (string, supervisor.Spec, error) {
	if len(args) == 0 {
		return "", supervisor.Spec{}, errNoCommand
	}

	key := flags.name
	var spec supervisor.Spec

	if p, ok := c.Preset(args[0]); ok && len(args) == 1 {
		if key == "" {
			key = args[0]
		}
		spec = supervisor.Spec{
			Command:     p.Command,
			Args:        p.Args,
			ProjectPath: p.ProjectPath,
			WorkDir:     p.Cwd,
			Env:         p.Env,
			Shell:       p.Shell,
		}
	} else {
		spec = supervisor.Spec{Command: args[0], Args: args[1:], Shell: flags.shell}
		if len(args) == 1 && !flags.shell && strings.ContainsAny(args[0], " \t") {
			fields := strings.Fields(args[0])
			if len(fields) == 0 {
				return "", supervisor.Spec{}, errNoCommand
			}
			spec.Command, spec.Args = fields[0], fields[1:]
		}
	}

	if flags.path != "" {
		spec.ProjectPath = flags.path
	}
	if flags.shell {
		spec.Shell = true
	}
	if key == "" {
		key = config.DefaultProcessKey
	}
	if err := config.ValidateKey(key); err != nil {
		return "", supervisor.Spec{}, err
	}
	if strings.TrimSpace(spec.Command) == "" {
		return "", supervisor.Spec{}, errNoCommand
	}
	return key, spec, nil
}
