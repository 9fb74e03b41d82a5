// Package jobcontrol implements the user-visible job-control
// operations of spec.md §4.7: list, continue (fg/bg), kill, shutdown.
//
// Grounded on original_source/jobs.c:watchjobs/resumejob/killjob/
// shutdownjobs.
package jobcontrol

import (
	"fmt"
	"io"
	"syscall"

	"github.com/joshuarubin/gosh/internal/jobfmt"
	"github.com/joshuarubin/gosh/internal/jobtable"
	"github.com/joshuarubin/gosh/internal/monitor"
	"github.com/joshuarubin/gosh/internal/sigctl"
	"github.com/joshuarubin/gosh/internal/termctl"
)

// All selects every job regardless of state, for Watch.
const All = -1

// Env groups the job-control operations' dependencies.
type Env struct {
	Table *jobtable.Table
	Term  *termctl.Controller
	Arb   *sigctl.Arbiter
	Out   io.Writer
}

// Watch reports the state of every background job matching which (or
// every job, if which == All). FINISHED jobs are deleted once
// reported, per spec.md §4.7.
func (env *Env) Watch(which int) {
	env.Arb.Blocked(func() {
		for j := 1; j < env.Table.Len(); j++ {
			if env.Table.Free(j) {
				continue
			}
			snap := env.Table.Snapshot(j)
			if which != All && int(snap.State) != which {
				continue
			}

			switch snap.State {
			case jobtable.Running:
				fmt.Fprintln(env.Out, jobfmt.Running(j, snap.Command))
			case jobtable.Stopped:
				fmt.Fprintln(env.Out, jobfmt.Suspended(j, snap.Command))
			case jobtable.Finished:
				ws := snap.Procs[len(snap.Procs)-1].ExitStatus
				fmt.Fprintln(env.Out, jobfmt.Finished(j, snap.Command, ws))
				env.Table.DelJob(j)
			}
		}
	})
}

// Resume continues a stopped (or already-running, for bg) job. If j
// < 0, the highest-indexed non-FINISHED slot is selected. Background:
// SIGCONT is delivered and a "continue" line printed. Foreground: the
// job is moved into the FG slot, given the terminal and its saved
// attributes, sent SIGCONT, and waited on until its continuation has
// actually been observed, then handed to the Foreground Monitor.
func (env *Env) Resume(j int, bg bool) error {
	var err error

	env.Arb.Blocked(func() {
		if j < 0 {
			j = env.Table.LastNonFinished()
		}
		if j < 0 || j >= env.Table.Len() || env.Table.Free(j) {
			err = fmt.Errorf("jobcontrol: no such job")
			return
		}

		if bg {
			pgid := env.Table.PGID(j)
			if kerr := syscall.Kill(-pgid, syscall.SIGCONT); kerr != nil {
				err = fmt.Errorf("jobcontrol: resume: %w", kerr)
				return
			}
			fmt.Fprintf(env.Out, "[%d] continue '%s'\n", j, env.Table.Command(j))
			return
		}

		if j != jobtable.FG {
			env.Table.MoveJob(j, jobtable.FG)
		}

		_ = env.Term.SetForeground(env.Table.PGID(jobtable.FG))
		_ = env.Term.RestoreAttr(env.Table.Tmodes(jobtable.FG))

		pgid := env.Table.PGID(jobtable.FG)
		if kerr := syscall.Kill(-pgid, syscall.SIGCONT); kerr != nil {
			err = fmt.Errorf("jobcontrol: resume: %w", kerr)
			return
		}

		for env.Table.PeekState(jobtable.FG) != jobtable.Running {
			env.Arb.SuspendUntilSignal()
		}

		fmt.Fprintf(env.Out, "[%d] continue '%s'\n", j, env.Table.Command(jobtable.FG))

		monitor.Run(&monitor.Env{
			Table: env.Table,
			Term:  env.Term,
			Arb:   env.Arb,
			Out:   env.Out,
		})
	})

	return err
}

// Kill delivers SIGTERM then SIGCONT to job j's process group (the
// continue guarantees stopped processes actually see the terminate)
// and does not wait for it to die.
func (env *Env) Kill(j int) error {
	var err error

	env.Arb.Blocked(func() {
		if j < 0 {
			j = env.Table.LastNonFinished()
		}
		if j < 0 || j >= env.Table.Len() || env.Table.Free(j) {
			err = fmt.Errorf("jobcontrol: no such job")
			return
		}

		pgid := env.Table.PGID(j)
		_ = syscall.Kill(-pgid, syscall.SIGTERM)
		_ = syscall.Kill(-pgid, syscall.SIGCONT)
	})

	return err
}

// Shutdown kills every job still alive and waits for each to finish,
// reports the FINISHED results, and closes the terminal descriptor.
// Called just before the shell process exits.
func (env *Env) Shutdown() {
	env.Arb.Blocked(func() {
		for j := 0; j < env.Table.Len(); j++ {
			if env.Table.Free(j) || env.Table.PeekState(j) == jobtable.Finished {
				continue
			}

			pgid := env.Table.PGID(j)
			_ = syscall.Kill(-pgid, syscall.SIGTERM)
			_ = syscall.Kill(-pgid, syscall.SIGCONT)

			for env.Table.PeekState(j) != jobtable.Finished {
				env.Arb.SuspendUntilSignal()
			}
		}
	})

	env.Watch(int(jobtable.Finished))

	if err := env.Term.Close(); err != nil {
		fmt.Fprintln(env.Out, "jobcontrol: close terminal:", err)
	}
}
