// Package termctl owns the duplicated controlling-terminal descriptor,
// persists the shell's terminal attributes, and performs
// foreground-owner handoff with attribute save/restore, per spec.md
// §4.4.
//
// Grounded on original_source/jobs.c's tty_fd/shell_tmodes globals and
// initjobs/setfgpgrp/monitorjob (Dup, Tcsetpgrp, Tcgetattr, Tcsetattr
// with TCSADRAIN), with the ioctl mechanics themselves modeled on
// _examples/other_examples/5a786989_atinylittleshell-gsh__internal-bash-exec_unix.go.go's
// tcgetpgrp/tcsetpgrp, generalized to golang.org/x/sys/unix's
// IoctlGet*/IoctlSet* helpers in place of raw syscall.Syscall calls.
package termctl

import "golang.org/x/sys/unix"

// Controller owns the shell's independent descriptor onto its
// controlling terminal and the shell's baseline terminal attributes.
type Controller struct {
	fd          int
	shellPGID   int
	shellTmodes unix.Termios
}

// FD returns the controller's duplicated terminal descriptor.
func (c *Controller) FD() int {
	return c.fd
}

// ShellPGID returns the shell's own process-group id, captured at New.
func (c *Controller) ShellPGID() int {
	return c.shellPGID
}

// ShellTmodes returns the shell's baseline terminal attributes,
// captured at New.
func (c *Controller) ShellTmodes() unix.Termios {
	return c.shellTmodes
}

// SaveAttr reads the terminal's current attributes, for a job's
// snapshot (taken when a foreground job is demoted to background so a
// later resume restores what the job left behind).
func (c *Controller) SaveAttr() (unix.Termios, error) {
	tm, err := unix.IoctlGetTermios(c.fd, tcgets)
	if err != nil {
		return unix.Termios{}, err
	}
	return *tm, nil
}
