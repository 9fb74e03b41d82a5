package launcher

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// foregroundAttr arranges for cmd's child, once forked, to claim the
// terminal's foreground process group before exec — the race-free
// kernel-mediated analogue of original_source/shell.c:do_job's
// child-side "setfgpgrp(getpgrp())" call.
//
// SysProcAttr.Ctty is indexed in the CHILD's own fd table, not the
// parent's (see the donation dance in
// _examples/Talismancer-gvisor-ligolo/runsc/sandbox/sandbox.go), so
// the controlling-terminal descriptor is donated as an extra file and
// Ctty points at the slot it lands in.
func foregroundAttr(cmd *exec.Cmd, ttyFD int) (cleanup func(), err error) {
	dupFD, err := unix.Dup(ttyFD)
	if err != nil {
		return nil, fmt.Errorf("launcher: dup controlling terminal: %w", err)
	}

	f := os.NewFile(uintptr(dupFD), "ctty")
	cmd.ExtraFiles = append(cmd.ExtraFiles, f)
	idx := 3 + len(cmd.ExtraFiles) - 1

	cmd.SysProcAttr.Setpgid = true
	cmd.SysProcAttr.Foreground = true
	cmd.SysProcAttr.Ctty = idx

	return func() { f.Close() }, nil
}
