package jobtable

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// exitStatus builds the syscall.WaitStatus a normal exit with code
// produces, per syscall_linux.go's encoding (status in the high byte,
// the low 7 bits zero).
func exitStatus(code int) syscall.WaitStatus {
	return syscall.WaitStatus(code << 8)
}

// signaledStatus builds the syscall.WaitStatus termination by sig
// produces (the low 7 bits hold the signal number).
func signaledStatus(sig syscall.Signal) syscall.WaitStatus {
	return syscall.WaitStatus(sig)
}

// stoppedStatus builds the syscall.WaitStatus a stop by sig produces.
func stoppedStatus(sig syscall.Signal) syscall.WaitStatus {
	return syscall.WaitStatus(sig<<8 | 0x7F)
}

// continuedStatus is the sentinel WCONTINUED reports.
func continuedStatus() syscall.WaitStatus {
	return syscall.WaitStatus(0xFFFF)
}

func TestAddJobForeground(t *testing.T) {
	assert := assert.New(t)

	tbl := New()
	j := tbl.AddJob(1234, false, unix.Termios{})
	assert.Equal(FG, j)
	assert.Equal(1234, tbl.PGID(FG))
	assert.Equal(Running, tbl.PeekState(FG))
}

func TestAddJobBackgroundAllocatesAndReusesSlots(t *testing.T) {
	assert := assert.New(t)

	tbl := New()

	j1 := tbl.AddJob(100, true, unix.Termios{})
	assert.Equal(1, j1)
	tbl.AddProc(j1, 100, []string{"sleep", "10"})

	j2 := tbl.AddJob(200, true, unix.Termios{})
	assert.Equal(2, j2)
	tbl.AddProc(j2, 200, []string{"sleep", "5"})

	// Finish and free j1; a later AddJob must reuse its slot rather
	// than growing the table.
	tbl.ApplyStatus(100, exitStatus(0))
	state, _ := tbl.JobState(j1)
	assert.Equal(Finished, state)
	assert.True(tbl.Free(j1))

	j3 := tbl.AddJob(300, true, unix.Termios{})
	assert.Equal(1, j3, "freed slot 1 should be reused before growing")
	assert.Equal(3, tbl.Len())
}

func TestAddProcBuildsPipelineCommandString(t *testing.T) {
	assert := assert.New(t)

	tbl := New()
	j := tbl.AddJob(1, true, unix.Termios{})
	tbl.AddProc(j, 1, []string{"cat", "/etc/hostname"})
	assert.Equal("cat /etc/hostname", tbl.Command(j))

	tbl.AddProc(j, 2, []string{"tr", "a-z", "A-Z"})
	assert.Equal("cat /etc/hostname | tr a-z A-Z", tbl.Command(j))
}

func TestDelJobRequiresFinished(t *testing.T) {
	assert := assert.New(t)

	tbl := New()
	j := tbl.AddJob(1, true, unix.Termios{})
	tbl.AddProc(j, 1, []string{"sleep", "10"})

	assert.Panics(func() { tbl.DelJob(j) })

	tbl.ApplyStatus(1, exitStatus(0))
	assert.NotPanics(func() { tbl.DelJob(j) })
	assert.True(tbl.Free(j))
}

func TestMoveJobRoundTrip(t *testing.T) {
	assert := assert.New(t)

	tbl := New()
	a := tbl.AddJob(42, true, unix.Termios{})
	tbl.AddProc(a, 42, []string{"sleep", "10"})

	// move_job(a, b) followed by move_job(b, c) leaves the same
	// contents at c as the original a (spec.md §8 round-trip property).
	before := tbl.Snapshot(a)

	b := tbl.alloc()
	tbl.MoveJob(a, b)
	assert.True(tbl.Free(a))

	c := tbl.alloc()
	tbl.MoveJob(b, c)
	assert.True(tbl.Free(b))

	after := tbl.Snapshot(c)
	assert.Equal(before.PGID, after.PGID)
	assert.Equal(before.Command, after.Command)
	assert.Equal(before.Procs, after.Procs)
}

func TestMoveJobOntoOccupiedSlotPanics(t *testing.T) {
	assert := assert.New(t)

	tbl := New()
	a := tbl.AddJob(1, true, unix.Termios{})
	tbl.AddProc(a, 1, []string{"x"})
	b := tbl.AddJob(2, true, unix.Termios{})
	tbl.AddProc(b, 2, []string{"y"})

	assert.Panics(func() { tbl.MoveJob(a, b) })
}

func TestJobStateReductionPriority(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	tbl := New()
	j := tbl.AddJob(1, true, unix.Termios{})
	tbl.AddProc(j, 1, []string{"stage1"})
	tbl.AddProc(j, 2, []string{"stage2"})
	tbl.AddProc(j, 3, []string{"stage3"})

	// All running -> RUNNING.
	assert.Equal(Running, tbl.PeekState(j))

	// One stopped, others running -> STOPPED beats RUNNING? No: RUNNING
	// > STOPPED > FINISHED, so any RUNNING process keeps the job
	// RUNNING even if another has stopped.
	require.True(tbl.ApplyStatus(2, stoppedStatus(syscall.SIGTSTP)))
	assert.Equal(Running, tbl.PeekState(j))

	// Stop the rest; now STOPPED.
	require.True(tbl.ApplyStatus(1, stoppedStatus(syscall.SIGTSTP)))
	require.True(tbl.ApplyStatus(3, stoppedStatus(syscall.SIGTSTP)))
	assert.Equal(Stopped, tbl.PeekState(j))

	// Resume one process; RUNNING wins again over the still-STOPPED
	// siblings.
	require.True(tbl.ApplyStatus(2, continuedStatus()))
	assert.Equal(Running, tbl.PeekState(j))

	// Finish everything; aggregate becomes FINISHED and the job's exit
	// status is that of the LAST process (pipeline exit convention),
	// per spec.md §3.
	require.True(tbl.ApplyStatus(1, exitStatus(0)))
	require.True(tbl.ApplyStatus(2, exitStatus(0)))
	require.True(tbl.ApplyStatus(3, exitStatus(7)))
	assert.Equal(Finished, tbl.PeekState(j))

	state, status := tbl.JobState(j)
	assert.Equal(Finished, state)
	assert.Equal(7, status.ExitStatus())
	assert.True(tbl.Free(j), "JobState must free a FINISHED slot once observed")
}

func TestApplyStatusUnknownPIDReportsNotFound(t *testing.T) {
	assert := assert.New(t)

	tbl := New()
	j := tbl.AddJob(1, true, unix.Termios{})
	tbl.AddProc(j, 1, []string{"sleep", "1"})

	assert.False(tbl.ApplyStatus(9999, exitStatus(0)))
}

func TestApplyStatusIgnoresAlreadyFinishedProcess(t *testing.T) {
	assert := assert.New(t)

	tbl := New()
	j := tbl.AddJob(1, true, unix.Termios{})
	tbl.AddProc(j, 1, []string{"sleep", "1"})

	assert.True(tbl.ApplyStatus(1, exitStatus(0)))
	// A second, stray status report for the same (now-finished) pid
	// must not be folded in again (spec.md §4.3: "finished processes
	// are not revisited").
	assert.False(tbl.ApplyStatus(1, exitStatus(99)))

	state, status := tbl.JobState(j)
	assert.Equal(Finished, state)
	assert.Equal(0, status.ExitStatus())
}

func TestDemoteFGMovesToFreshBackgroundSlot(t *testing.T) {
	assert := assert.New(t)

	tbl := New()
	tbl.AddJob(1, false, unix.Termios{})
	tbl.AddProc(FG, 1, []string{"sleep", "10"})
	tbl.ApplyStatus(1, stoppedStatus(syscall.SIGTSTP))

	j := tbl.DemoteFG()
	assert.Equal(1, j)
	assert.True(tbl.Free(FG))
	assert.Equal(Stopped, tbl.PeekState(j))
	assert.Equal("sleep 10", tbl.Command(j))
}

func TestLastNonFinished(t *testing.T) {
	assert := assert.New(t)

	tbl := New()
	assert.Equal(-1, tbl.LastNonFinished())

	j1 := tbl.AddJob(1, true, unix.Termios{})
	tbl.AddProc(j1, 1, []string{"a"})
	j2 := tbl.AddJob(2, true, unix.Termios{})
	tbl.AddProc(j2, 2, []string{"b"})

	assert.Equal(j2, tbl.LastNonFinished())

	tbl.ApplyStatus(2, exitStatus(0))
	assert.Equal(j1, tbl.LastNonFinished(), "a FINISHED slot must not be selected")
}

func TestSignaledWaitStatusDecoding(t *testing.T) {
	assert := assert.New(t)

	tbl := New()
	j := tbl.AddJob(1, true, unix.Termios{})
	tbl.AddProc(j, 1, []string{"sleep", "5"})
	tbl.ApplyStatus(1, signaledStatus(syscall.SIGINT))

	state, status := tbl.JobState(j)
	assert.Equal(Finished, state)
	assert.True(status.Signaled())
	assert.Equal(syscall.SIGINT, status.Signal())
}

func TestStateString(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("running", Running.String())
	assert.Equal("suspended", Stopped.String())
	assert.Equal("finished", Finished.String())
}
