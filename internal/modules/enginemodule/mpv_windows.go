//go:build windows

package enginemodule

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"time"

	"gopkg.in/natefinch/npipe.v2"
)

// socketIsFile reports whether the IPC endpoint exists on the filesystem and
// can be stat'd before dialing. Named pipes cannot be stat'd, so connection
// attempts always dial directly.
const socketIsFile = false

// socketPathFor returns the IPC endpoint for one player instance
func socketPathFor(socketDir, playerID string) string {
	return fmt.Sprintf(`\\.\pipe\playerd-mpv-%s`, playerID)
}

// ensureSocketDir is a no-op: named pipes live in the pipe namespace, not on
// the filesystem.
func ensureSocketDir(socketDir string) error {
	return nil
}

// dialIPC connects to an mpv IPC endpoint
func dialIPC(ctx context.Context, socketPath string) (net.Conn, error) {
	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	return npipe.DialTimeout(socketPath, timeout)
}

// setupPlayerProcess configures the process for detached execution
func setupPlayerProcess(cmd *exec.Cmd) {
	// No process-group handling needed on Windows.
}
