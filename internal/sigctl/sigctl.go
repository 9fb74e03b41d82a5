// Package sigctl installs the shell's signal dispositions and exposes
// the blocked-critical-section primitive every other package
// synchronizes on: a SIGCHLD-aware mutex/condvar pair standing in for
// the POSIX sigprocmask/sigsuspend discipline that a literal signal
// mask cannot express across goroutines (see DESIGN.md, Open Question
// decision 4).
package sigctl

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Arbiter owns the shell's signal dispositions and the mutual
// exclusion between the main goroutine and the reaper goroutine that
// spec.md describes as "blocking SIGCHLD".
type Arbiter struct {
	mu   sync.Mutex
	cond *sync.Cond

	chldCh chan os.Signal
	intCh  chan os.Signal

	// gen is bumped every time the reaper has drained a round of
	// child-status changes; SuspendUntilSignal waits for it to move.
	gen uint64
}

// New installs the shell's signal dispositions:
//   - SIGCHLD is delivered to a channel, never left at its default
//     (which is to be ignored) nor allowed to interrupt blindly.
//   - SIGINT is delivered to a channel so a blocking terminal read can
//     be interrupted and the prompt redrawn; it never terminates the
//     shell.
//   - SIGTSTP, SIGTTIN, SIGTTOU are ignored in the shell process so it
//     is never itself stopped or blocked by terminal-access signals.
//
// The returned Arbiter must be started with Run.
func New() *Arbiter {
	a := &Arbiter{}
	a.cond = sync.NewCond(&a.mu)

	signal.Ignore(syscall.SIGTSTP, syscall.SIGTTIN, syscall.SIGTTOU)

	a.chldCh = make(chan os.Signal, 1)
	signal.Notify(a.chldCh, syscall.SIGCHLD)

	a.intCh = make(chan os.Signal, 1)
	signal.Notify(a.intCh, syscall.SIGINT)

	return a
}

// Interrupted returns the channel on which SIGINT is delivered, for
// the line reader to select against a blocking terminal read.
func (a *Arbiter) Interrupted() <-chan os.Signal {
	return a.intCh
}

// Run drives the SIGCHLD notification loop until stop is closed. Each
// SIGCHLD wakes reap, which is expected to drain all pending
// child-status changes non-blockingly (internal/reaper.Reap); once
// reap returns, every goroutine waiting in SuspendUntilSignal is
// woken so it can re-examine the job table.
func (a *Arbiter) Run(stop <-chan struct{}, reap func()) {
	for {
		select {
		case <-a.chldCh:
			a.Blocked(reap)
			a.mu.Lock()
			a.gen++
			a.cond.Broadcast()
			a.mu.Unlock()
		case <-stop:
			return
		}
	}
}

// Blocked runs fn with the Arbiter's mutex held, excluding the reaper
// for fn's duration — the functional equivalent of
// sigprocmask(SIG_BLOCK, &sigchld_mask, ...) around a critical
// section. Every job-table access outside the reaper must go through
// Blocked.
func (a *Arbiter) Blocked(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn()
}

// SuspendUntilSignal must be called from within Blocked. It releases
// the lock, waits for the next round of reaping to complete, and
// reacquires the lock before returning — the analogue of
// sigsuspend(2)'s atomic mask-swap-and-wait, since sync.Cond.Wait
// atomically unlocks and parks the calling goroutine.
func (a *Arbiter) SuspendUntilSignal() {
	gen := a.gen
	for a.gen == gen {
		a.cond.Wait()
	}
}
