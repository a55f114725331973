//go:build !unix

package proc

import (
	"os/exec"
	"time"
)

func configure(c *exec.Cmd) {
	c.WaitDelay = 10 * time.Second
}
