// Package monitor implements the Foreground Monitor of spec.md §4.6:
// block until the foreground job leaves the running state, promote a
// stopped foreground job to a background slot, and return the
// terminal to the shell.
//
// Grounded on original_source/jobs.c:monitorjob.
package monitor

import (
	"fmt"
	"io"
	"syscall"

	"github.com/joshuarubin/gosh/internal/jobfmt"
	"github.com/joshuarubin/gosh/internal/jobtable"
	"github.com/joshuarubin/gosh/internal/sigctl"
	"github.com/joshuarubin/gosh/internal/termctl"
)

// Env groups the Foreground Monitor's dependencies.
type Env struct {
	Table *jobtable.Table
	Term  *termctl.Controller
	Arb   *sigctl.Arbiter
	Out   io.Writer
}

// Run must be called with the Arbiter's Blocked region already held
// (the caller entered it before forking the foreground job, per
// spec.md §5's ordering guarantee). It blocks on SuspendUntilSignal
// until the foreground job is no longer RUNNING, then:
//   - if STOPPED: demotes the job to a background slot, snapshotting
//     the terminal's current attributes into that slot so a later
//     resume restores what the job left behind;
//   - if FINISHED: the slot has already been freed by JobState.
//
// In both cases the terminal's foreground group and attributes are
// unconditionally restored to the shell's own before Run returns.
func Run(env *Env) int {
	cmd := env.Table.Command(jobtable.FG)

	state, ws := env.Table.JobState(jobtable.FG)
	for state == jobtable.Running {
		env.Arb.SuspendUntilSignal()
		state, ws = env.Table.JobState(jobtable.FG)
	}

	exitCode := 0
	switch state {
	case jobtable.Stopped:
		j := env.Table.DemoteFG()
		if tm, err := env.Term.SaveAttr(); err == nil {
			env.Table.SetTmodes(j, tm)
		}
		fmt.Fprintln(env.Out, jobfmt.Suspended(j, env.Table.Command(j)))
	case jobtable.Finished:
		exitCode = exitCodeOf(ws)
		if ws.Signaled() {
			fmt.Fprintln(env.Out, jobfmt.Finished(0, cmd, ws))
		}
	}

	if err := env.Term.SetForeground(env.Term.ShellPGID()); err != nil {
		fmt.Fprintln(env.Out, "monitor: reclaim terminal:", err)
	}
	if err := env.Term.RestoreAttr(env.Term.ShellTmodes()); err != nil {
		fmt.Fprintln(env.Out, "monitor: restore terminal attributes:", err)
	}

	return exitCode
}

func exitCodeOf(ws syscall.WaitStatus) int {
	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return 128 + int(ws.Signal())
	default:
		return 0
	}
}
