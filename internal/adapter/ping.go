package adapter

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strconv"
	"time"
)

// ExecPinger runs the system ping binary with a single echo request
type ExecPinger struct {
	// Binary defaults to "ping"
	Binary string
}

// Ping implements Pinger
func (p ExecPinger) Ping(ctx context.Context, addr string, timeout time.Duration) (bool, error) {
	binary := p.Binary
	if binary == "" {
		binary = "ping"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, pingArgs(addr, timeout)...)
	err := cmd.Run()
	if err == nil {
		return true, nil
	}

	// Non-zero exit or killed by the deadline: the host did not answer
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) || ctx.Err() != nil {
		return false, nil
	}
	return false, err
}

// pingArgs builds a one-packet ping command line for the current OS
func pingArgs(addr string, timeout time.Duration) []string {
	switch runtime.GOOS {
	case "darwin":
		// -W is in milliseconds on macOS
		ms := int(timeout.Milliseconds())
		if ms < 1 {
			ms = 1
		}
		return []string{"-c", "1", "-W", strconv.Itoa(ms), addr}
	default:
		sec := int(timeout.Seconds())
		if sec < 1 {
			sec = 1
		}
		return []string{"-c", "1", "-W", strconv.Itoa(sec), addr}
	}
}
