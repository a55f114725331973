//go:build unix

package proc

import (
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// configure places the child in its own process group so an interrupt reaches
// every process the tool spawns (cargo -> rustc -> linker).
func configure(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}

		return unix.Kill(-c.Process.Pid, unix.SIGINT)
	}
	c.WaitDelay = 10 * time.Second
}
