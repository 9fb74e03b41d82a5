// Package jobfmt renders job-control announcements in the one textual
// form spec.md §4.7 and §8 specify, shared between internal/monitor
// (the foreground job's own completion announcement) and
// internal/jobcontrol (the jobs/watch listing), so the two paths
// never drift apart.
//
// Grounded on original_source/jobs.c:watchjobs's printf calls.
package jobfmt

import (
	"fmt"
	"syscall"
)

// Running renders a RUNNING job's listing line.
func Running(j int, cmd string) string {
	return fmt.Sprintf("[%d] running '%s'", j, cmd)
}

// Suspended renders a STOPPED job's listing line.
func Suspended(j int, cmd string) string {
	return fmt.Sprintf("[%d] suspended '%s'", j, cmd)
}

// Finished renders a FINISHED job's listing line: "exited ..." for a
// normal exit, "killed ... by signal N" for termination by signal.
func Finished(j int, cmd string, ws syscall.WaitStatus) string {
	if ws.Signaled() {
		return fmt.Sprintf("[%d] killed '%s' by signal %d", j, cmd, int(ws.Signal()))
	}
	return fmt.Sprintf("[%d] exited '%s', status=%d", j, cmd, ws.ExitStatus())
}
