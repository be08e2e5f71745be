//go:build !windows

package enginemodule

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

// socketIsFile reports whether the IPC endpoint exists on the filesystem and
// can be stat'd before dialing.
const socketIsFile = true

// socketPathFor returns the IPC endpoint for one player instance
func socketPathFor(socketDir, playerID string) string {
	return filepath.Join(socketDir, fmt.Sprintf("mpv-%s.sock", playerID))
}

// ensureSocketDir creates the socket directory so mpv can bind its IPC
// endpoint on a fresh host. Sockets carry session state, so the directory is
// private to the daemon's user.
func ensureSocketDir(socketDir string) error {
	return os.MkdirAll(socketDir, 0o700)
}

// dialIPC connects to an mpv IPC endpoint
func dialIPC(ctx context.Context, socketPath string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", socketPath)
}

// setupPlayerProcess configures the process for detached execution
func setupPlayerProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
