// Package jobtable implements the in-memory registry of jobs and their
// processes: slot allocation, lifecycle transitions, and the reduction
// rule that folds process states into a job state.
//
// A Table is not safe for concurrent use on its own. Every access must
// happen from within a function run by sigctl.Arbiter.Blocked, which
// supplies the mutual exclusion between the main goroutine and the
// reaper goroutine that spec.md describes as "blocking SIGCHLD".
package jobtable

import (
	"fmt"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// State is the lifecycle state of a process or a job.
type State int

const (
	Running State = iota
	Stopped
	Finished
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "suspended"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Process is one pipeline stage's OS process.
type Process struct {
	PID        int
	State      State
	ExitStatus syscall.WaitStatus // valid only once State == Finished
}

// Job is a process group launched as a single command or pipeline.
type Job struct {
	PGID    int // 0 means this slot is free
	Procs   []Process
	Tmodes  unix.Termios
	State   State
	Command string
}

// FG is the reserved index for the foreground job.
const FG = 0

// Table is the job array described in spec §3: index 0 is the
// foreground slot, indices >= 1 are background slots allocated on
// demand and never compacted.
type Table struct {
	jobs []Job
}

// New returns a Table with only the (free) foreground slot present.
func New() *Table {
	return &Table{jobs: make([]Job, 1)}
}

// Len reports the number of slots, including slot 0.
func (t *Table) Len() int {
	return len(t.jobs)
}

// alloc returns a free background slot, reusing one if available.
func (t *Table) alloc() int {
	for j := 1; j < len(t.jobs); j++ {
		if t.jobs[j].PGID == 0 {
			return j
		}
	}
	t.jobs = append(t.jobs, Job{})
	return len(t.jobs) - 1
}

// AddJob installs a new job at FG (if !bg) or a freshly allocated
// background slot, seeded with tmodes as its starting terminal-mode
// snapshot, and returns the slot index.
func (t *Table) AddJob(pgid int, bg bool, tmodes unix.Termios) int {
	j := FG
	if bg {
		j = t.alloc()
	}
	t.jobs[j] = Job{
		PGID:   pgid,
		State:  Running,
		Tmodes: tmodes,
	}
	return j
}

// AddProc appends a running process to job j's pipeline and extends
// the job's textual command, inserting " | " between stages.
func (t *Table) AddProc(j, pid int, argv []string) {
	job := &t.jobs[j]
	job.Procs = append(job.Procs, Process{PID: pid, State: Running})
	if job.Command != "" {
		job.Command += " | "
	}
	job.Command += strings.Join(argv, " ")
}

// DelJob frees slot j. The caller must have already observed the
// job's FINISHED state and exit status.
func (t *Table) DelJob(j int) {
	if t.jobs[j].State != Finished {
		panic("jobtable: DelJob of a job that is not FINISHED")
	}
	t.jobs[j] = Job{}
}

// MoveJob relocates the contents of slot from to the free slot to,
// clearing from.
func (t *Table) MoveJob(from, to int) {
	if t.jobs[to].PGID != 0 {
		panic("jobtable: MoveJob onto an occupied slot")
	}
	t.jobs[to] = t.jobs[from]
	t.jobs[from] = Job{}
}

// JobState returns job j's current aggregate state. If it is
// FINISHED, the exit status of the job's last process (the pipeline
// exit convention) is also returned and the slot is freed.
func (t *Table) JobState(j int) (State, syscall.WaitStatus) {
	job := &t.jobs[j]
	state := job.State

	var status syscall.WaitStatus
	if state == Finished {
		status = job.Procs[len(job.Procs)-1].ExitStatus
		t.DelJob(j)
	}
	return state, status
}

// PeekState returns job j's current aggregate state without the
// freeing side effect JobState has for FINISHED jobs. Used by
// operations that must distinguish "not yet finished" from "finished"
// while polling with SuspendUntilSignal, without prematurely
// releasing the slot before its exit status is otherwise observed.
func (t *Table) PeekState(j int) State {
	return t.jobs[j].State
}

// Command returns job j's textual command rendering.
func (t *Table) Command(j int) string {
	return t.jobs[j].Command
}

// PGID returns job j's process-group id, or 0 if the slot is free.
func (t *Table) PGID(j int) int {
	return t.jobs[j].PGID
}

// Tmodes returns job j's saved terminal-attribute snapshot.
func (t *Table) Tmodes(j int) unix.Termios {
	return t.jobs[j].Tmodes
}

// SetTmodes updates job j's saved terminal-attribute snapshot; used
// when a foreground job is demoted to background so a later resume
// restores what the job left behind.
func (t *Table) SetTmodes(j int, tm unix.Termios) {
	t.jobs[j].Tmodes = tm
}

// Snapshot returns a read-only copy of slot j, for listing and
// diagnostics.
func (t *Table) Snapshot(j int) Job {
	return t.jobs[j]
}

// Free reports whether slot j holds no job.
func (t *Table) Free(j int) bool {
	return t.jobs[j].PGID == 0
}

// LastNonFinished returns the highest-indexed non-FINISHED slot, or
// -1 if none exists. Used to resolve resume/kill operations with no
// explicit job index.
func (t *Table) LastNonFinished() int {
	for j := len(t.jobs) - 1; j > 0; j-- {
		if t.jobs[j].PGID != 0 && t.jobs[j].State != Finished {
			return j
		}
	}
	return -1
}

// DemoteFG moves the foreground job to a freshly allocated background
// slot and returns its new index. Used when the Foreground Monitor
// observes the foreground job has stopped rather than finished.
func (t *Table) DemoteFG() int {
	j := t.alloc()
	t.MoveJob(FG, j)
	return j
}

// ApplyStatus locates the process with the given pid among all
// non-free jobs and folds the observed wait status into its state,
// then recomputes the owning job's aggregate state by the reduction
// rule (RUNNING > STOPPED > FINISHED). Reports whether pid was found.
func (t *Table) ApplyStatus(pid int, ws syscall.WaitStatus) bool {
	for ji := range t.jobs {
		job := &t.jobs[ji]
		if job.PGID == 0 {
			continue
		}

		found := false
		for pi := range job.Procs {
			p := &job.Procs[pi]
			if p.PID != pid || p.State == Finished {
				continue
			}
			found = true

			switch {
			case ws.Continued():
				p.State = Running
			case ws.Stopped():
				p.State = Stopped
			default: // exited or signaled
				p.State = Finished
				p.ExitStatus = ws
			}
		}

		if found {
			job.State = reduce(job.Procs)
			return true
		}
	}
	return false
}

// reduce folds a pipeline's per-process states into the job's
// aggregate state: RUNNING if any process is running, else STOPPED
// if any is stopped, else FINISHED.
func reduce(procs []Process) State {
	running, stopped := false, false
	for _, p := range procs {
		switch p.State {
		case Running:
			running = true
		case Stopped:
			stopped = true
		}
	}
	switch {
	case running:
		return Running
	case stopped:
		return Stopped
	default:
		return Finished
	}
}
