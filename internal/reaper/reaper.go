// Package reaper implements the child-status reaping algorithm spec.md
// §4.3 describes as the SIGCHLD handler: non-blockingly drain all
// pending status changes and fold them into the job table.
//
// Grounded on original_source/jobs.c:sigchld_handler's
// waitpid(-1, &status, WNOHANG|WUNTRACED|WCONTINUED) loop, rendered in
// Go's idiom the way
// _examples/other_examples/889c3989_mmichie-gosh__job.go.go's
// ReapChildren uses syscall.Wait4 in place of waitpid.
package reaper

import "syscall"

// Table is the subset of *jobtable.Table the reaper needs. Declared
// as an interface here, rather than importing jobtable directly, so
// the reaper has no dependency beyond the one method it actually
// calls.
type Table interface {
	ApplyStatus(pid int, ws syscall.WaitStatus) bool
}

// Reap drains every currently-available child-status change in a
// single call and applies each to tbl. It never blocks: each
// iteration uses WNOHANG, and the loop terminates as soon as Wait4
// reports no child is ready.
//
// The caller must invoke Reap only from within an
// sigctl.Arbiter.Blocked region, since the job table is not otherwise
// safe for concurrent access.
func Reap(tbl Table) {
	for {
		var ws syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG|syscall.WUNTRACED|syscall.WCONTINUED, nil)
		if pid <= 0 || err != nil {
			return
		}
		tbl.ApplyStatus(pid, ws)
	}
}
