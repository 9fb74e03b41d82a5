//go:build !linux

package termctl

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// tcgets/tcsets have no portable equivalent outside linux's ioctl
// numbering; New always fails on this platform, so these values are
// never dereferenced.
const (
	tcgets = 0
	tcsets = 0
)

// New reports that job control is unsupported on this platform. The
// shell this core belongs to requires POSIX job control (process
// groups, a controlling terminal, SIGTSTP/SIGTTIN/SIGTTOU); there is
// no meaningful degraded mode.
func New() (*Controller, error) {
	return nil, fmt.Errorf("termctl: job control is not supported on this platform")
}

func (c *Controller) SetForeground(pgid int) error {
	return fmt.Errorf("termctl: unsupported platform")
}

func (c *Controller) RestoreAttr(tm unix.Termios) error {
	return fmt.Errorf("termctl: unsupported platform")
}

func (c *Controller) Close() error {
	return fmt.Errorf("termctl: unsupported platform")
}
