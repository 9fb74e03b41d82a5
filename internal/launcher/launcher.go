// Package launcher implements the Job Launcher of spec.md §4.5: forks
// children, assigns process groups, wires redirections and pipe
// stages, and registers the resulting job.
//
// Grounded on original_source/shell.c's do_job/do_stage/do_pipeline/
// mkpipe. Go's os/exec.Cmd plus syscall.SysProcAttr's Setpgid/Pgid
// (and, on linux, Foreground/Ctty) replace the original's manual
// fork/setpgid/setfgpgrp dance with the same race-free guarantee:
// the child's process-group (and, for the single-command foreground
// case, its terminal ownership) is established by the kernel between
// fork and exec, before any other code can observe the new process.
package launcher

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/joshuarubin/gosh/internal/jobfmt"
	"github.com/joshuarubin/gosh/internal/jobtable"
	"github.com/joshuarubin/gosh/internal/monitor"
	"github.com/joshuarubin/gosh/internal/sigctl"
	"github.com/joshuarubin/gosh/internal/termctl"
	"github.com/joshuarubin/gosh/internal/token"
)

// Builtin resolves argv as a built-in command; see internal/builtin.
// Declared as a function type, rather than importing internal/builtin
// directly, to keep package dependencies one-directional: cmd/gosh
// wires the concrete resolver in.
type Builtin func(argv []string) (code int, handled bool, err error)

// Env groups the Job Launcher's dependencies.
type Env struct {
	Table   *jobtable.Table
	Term    *termctl.Controller
	Arb     *sigctl.Arbiter
	Builtin Builtin
	Out     io.Writer
}

func orDefault(f *os.File, fallback *os.File) *os.File {
	if f != nil {
		return f
	}
	return fallback
}

func closeIfSet(f *os.File) {
	if f != nil {
		f.Close()
	}
}

// DoJob implements the single-command launch path of spec.md §4.5.
func (env *Env) DoJob(toks []token.Token, bg bool) (int, error) {
	argv, in, out, err := resolveRedir(toks)
	if err != nil {
		return 1, err
	}

	if len(argv) == 0 {
		closeIfSet(in)
		closeIfSet(out)
		return 0, fmt.Errorf("launcher: empty command")
	}

	if !bg {
		if code, handled, berr := env.Builtin(argv); handled {
			closeIfSet(in)
			closeIfSet(out)
			return code, berr
		}
	}

	var exitCode int
	var startErr error

	env.Arb.Blocked(func() {
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Stdin = orDefault(in, os.Stdin)
		cmd.Stdout = orDefault(out, os.Stdout)
		cmd.Stderr = os.Stderr
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

		var cleanup func()
		if !bg {
			cleanup, startErr = foregroundAttr(cmd, env.Term.FD())
			if startErr != nil {
				closeIfSet(in)
				closeIfSet(out)
				return
			}
		}

		startErr = cmd.Start()
		if cleanup != nil {
			cleanup()
		}
		closeIfSet(in)
		closeIfSet(out)
		if startErr != nil {
			return
		}

		pid := cmd.Process.Pid
		// Race-safe duplicate assignment: the child already set its
		// own pgid via SysProcAttr.Setpgid before exec; the parent
		// repeats the assignment so neither side's view of the
		// process group can lag the other (spec.md §5).
		_ = syscall.Setpgid(pid, pid)

		if !bg {
			// On linux the child already claimed the terminal via
			// foregroundAttr's Foreground/Ctty wiring; elsewhere this
			// is the only handoff (see launcher_other.go). Either way
			// asserting it again here is idempotent.
			_ = env.Term.SetForeground(pid)
		}

		j := env.Table.AddJob(pid, bg, env.Term.ShellTmodes())
		env.Table.AddProc(j, pid, argv)

		if bg {
			fmt.Fprintln(env.Out, jobfmt.Running(j, env.Table.Command(j)))
			return
		}

		exitCode = monitor.Run(&monitor.Env{
			Table: env.Table,
			Term:  env.Term,
			Arb:   env.Arb,
			Out:   env.Out,
		})
	})

	return exitCode, startErr
}

// DoPipeline implements the pipeline launch path of spec.md §4.5:
// splits toks at pipe boundaries into stages, keeping a single fresh
// pipe between each consecutive pair, and launches every stage into
// one shared process group led by the first stage's pid.
//
// Unlike DoJob, no stage ever claims the terminal's foreground process
// group here: original_source/shell.c:do_stage has no analogue of
// do_job's child-side setfgpgrp call, and that asymmetry is preserved
// deliberately (DESIGN.md, Open Question decision 3) rather than
// "fixed".
//
// Every stage is started as an external command through os/exec;
// env.Builtin is not consulted, so a built-in name in a pipeline is
// looked up on PATH like any other command.
func (env *Env) DoPipeline(toks []token.Token, bg bool) (int, error) {
	stages := splitStages(toks)

	var (
		job      = -1
		pgid     int
		prevOut  *os.File
		exitCode int
		lastErr  error
	)

	env.Arb.Blocked(func() {
		for i, stageToks := range stages {
			argv, in, out, err := resolveRedir(stageToks)
			if err != nil {
				lastErr = err
				closeIfSet(prevOut)
				prevOut = nil
				break
			}
			if len(argv) == 0 {
				lastErr = fmt.Errorf("launcher: empty pipeline stage")
				closeIfSet(in)
				closeIfSet(out)
				closeIfSet(prevOut)
				prevOut = nil
				break
			}

			last := i == len(stages)-1

			var pr, pw *os.File
			if !last {
				pr, pw, err = os.Pipe()
				if err != nil {
					lastErr = fmt.Errorf("launcher: pipe: %w", err)
					closeIfSet(in)
					closeIfSet(out)
					closeIfSet(prevOut)
					prevOut = nil
					break
				}
			}

			cmd := exec.Command(argv[0], argv[1:]...)
			cmd.Stdin = orDefault(in, orDefault(prevOut, os.Stdin))
			cmd.Stdout = orDefault(out, orDefault(pw, os.Stdout))
			cmd.Stderr = os.Stderr
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}

			startErr := cmd.Start()

			closeIfSet(in)
			closeIfSet(out)
			closeIfSet(prevOut)
			closeIfSet(pw)
			prevOut = nil

			if startErr != nil {
				lastErr = startErr
				closeIfSet(pr)
				break
			}

			pid := cmd.Process.Pid
			if i == 0 {
				pgid = pid
				job = env.Table.AddJob(pgid, bg, env.Term.ShellTmodes())
			}
			_ = syscall.Setpgid(pid, pgid)
			env.Table.AddProc(job, pid, argv)

			prevOut = pr
		}

		if lastErr != nil {
			closeIfSet(prevOut)
			// An earlier stage may already be running as a registered
			// job (spec.md §8: "a redirection whose target cannot be
			// opened aborts the pipeline without any child surviving").
			// Kill its process group and drain its reap before
			// returning, so the FG slot invariant of spec.md §3 holds:
			// the slot is never left non-free across a return from here.
			if job != -1 {
				_ = syscall.Kill(-pgid, syscall.SIGKILL)
				for env.Table.PeekState(job) != jobtable.Finished {
					env.Arb.SuspendUntilSignal()
				}
				env.Table.DelJob(job)
			}
			return
		}

		if bg {
			fmt.Fprintln(env.Out, jobfmt.Running(job, env.Table.Command(job)))
			return
		}

		exitCode = monitor.Run(&monitor.Env{
			Table: env.Table,
			Term:  env.Term,
			Arb:   env.Arb,
			Out:   env.Out,
		})
	})

	return exitCode, lastErr
}

// splitStages breaks toks at Pipe tokens into per-stage token slices.
func splitStages(toks []token.Token) [][]token.Token {
	var stages [][]token.Token
	start := 0
	for i, t := range toks {
		if t.Kind == token.Pipe {
			stages = append(stages, toks[start:i])
			start = i + 1
		}
	}
	stages = append(stages, toks[start:])
	return stages
}
