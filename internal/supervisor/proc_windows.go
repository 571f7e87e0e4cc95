//go:build windows

package supervisor

import (
	"os"
	"os/exec"
	"strings"
	"syscall"
)

func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// signalGroup terminates the process. Windows has no POSIX signals, so
// every signal is delivered as TerminateProcess.
func signalGroup(pid int, _ syscall.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func shellCommand(line string) (string, []string) {
	return "cmd.exe", []string{"/C", line}
}

func signalName(sig syscall.Signal) string {
	return sig.String()
}

var signalsByName = map[string]syscall.Signal{
	"SIGHUP":  syscall.SIGHUP,
	"SIGINT":  syscall.SIGINT,
	"SIGKILL": syscall.SIGKILL,
	"SIGTERM": syscall.SIGTERM,
}

// ParseSignal accepts "SIGTERM", "TERM" or "term".
func ParseSignal(name string) (syscall.Signal, bool) {
	n := strings.ToUpper(name)
	if !strings.HasPrefix(n, "SIG") {
		n = "SIG" + n
	}
	sig, ok := signalsByName[n]
	return sig, ok
}

func describeExit(state *os.ProcessState) (code *int, signal string) {
	if state == nil {
		return nil, ""
	}
	c := state.ExitCode()
	return &c, ""
}
