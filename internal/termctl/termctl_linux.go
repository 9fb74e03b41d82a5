package termctl

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// tcgets/tcsets are the ioctl requests used to get/set termios.
// TCSETSW applies the "drain pending output, then apply" discipline
// spec.md §4.4 selects (see DESIGN.md, Open Question decision 2).
const (
	tcgets = unix.TCGETS
	tcsets = unix.TCSETSW
)

// New acquires an independent descriptor onto the controlling
// terminal (stdin, which must already be a tty), flags it
// close-on-exec so children do not inherit it, places the shell into
// the terminal's foreground process group, and captures the shell's
// baseline terminal attributes.
func New() (*Controller, error) {
	return newFromFD(unix.Stdin)
}

// newFromFD is New's body, parameterized on the terminal descriptor to
// acquire a Controller over. Split out so tests can exercise a
// Controller against a pty slave instead of requiring the test binary
// itself to run with a controlling terminal on stdin.
func newFromFD(ttyFD int) (*Controller, error) {
	if _, err := unix.IoctlGetTermios(ttyFD, tcgets); err != nil {
		return nil, fmt.Errorf("termctl: stdin is not a terminal: %w", err)
	}

	fd, err := unix.Dup(ttyFD)
	if err != nil {
		return nil, fmt.Errorf("termctl: dup stdin: %w", err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("termctl: set close-on-exec: %w", err)
	}

	pgid := os.Getpgrp()

	c := &Controller{fd: fd, shellPGID: pgid}

	if err := c.SetForeground(pgid); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("termctl: take control of terminal: %w", err)
	}

	tm, err := c.SaveAttr()
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("termctl: read terminal attributes: %w", err)
	}
	c.shellTmodes = tm

	return c, nil
}

// SetForeground installs pgid as the terminal's foreground process
// group.
func (c *Controller) SetForeground(pgid int) error {
	return unix.IoctlSetPointerInt(c.fd, unix.TIOCSPGRP, pgid)
}

// RestoreAttr applies tm to the terminal with the drain discipline:
// pending output is flushed before the new attributes take effect.
func (c *Controller) RestoreAttr(tm unix.Termios) error {
	return unix.IoctlSetTermios(c.fd, tcsets, &tm)
}

// Close releases the controller's duplicated terminal descriptor.
func (c *Controller) Close() error {
	return unix.Close(c.fd)
}
