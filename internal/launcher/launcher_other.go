//go:build !linux

package launcher

import "os/exec"

// foregroundAttr has no Foreground/Ctty equivalent outside linux's
// syscall.SysProcAttr. The fallback here gives up the race-free
// child-side handoff and leaves terminal ownership to an explicit
// parent-side Term.SetForeground call after Start() returns (see
// callers in launcher.go), accepting the small extra window that
// opens between fork and that call — the same kind of window
// original_source/jobs.c's own parent-side "setpgid(pid, pid)"
// duplicate assignment already tolerates for process-group identity.
func foregroundAttr(cmd *exec.Cmd, ttyFD int) (cleanup func(), err error) {
	cmd.SysProcAttr.Setpgid = true
	return nil, nil
}
