package launcher

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuarubin/gosh/internal/jobtable"
	"github.com/joshuarubin/gosh/internal/reaper"
	"github.com/joshuarubin/gosh/internal/sigctl"
	"github.com/joshuarubin/gosh/internal/termctl"
	"github.com/joshuarubin/gosh/internal/token"
)

// newTestEnv wires an Env against a zero-value termctl.Controller.
// DoPipeline never calls FD, and the background tests here only read
// ShellTmodes's plain field, which needs no real terminal. The
// foreground single-stage test does reach monitor.Run, whose
// SetForeground/RestoreAttr calls on the zero Controller's fd 0 are
// reported to Out and otherwise ignored; its return value is all
// that test checks.
func newTestEnv(t *testing.T) *Env {
	t.Helper()

	tbl := jobtable.New()
	arb := sigctl.New()
	var out bytes.Buffer

	stop := make(chan struct{})
	go arb.Run(stop, func() { reaper.Reap(tbl) })
	t.Cleanup(func() { close(stop) })

	return &Env{
		Table:   tbl,
		Term:    &termctl.Controller{},
		Arb:     arb,
		Builtin: func([]string) (int, bool, error) { return 0, false, nil },
		Out:     &out,
	}
}

// TestDoPipelineMidStageFailureKillsEarlierStagesAndFreesSlot covers
// the spec.md §8 boundary property ("a redirection whose target
// cannot be opened aborts the pipeline without any child surviving")
// for a stage *after* the first: `sleep 100 | cat > /no/such/dir/x`.
// Stage 0 is already forked and registered by the time stage 1's
// resolveRedir fails, so DoPipeline must kill stage 0's process group
// and free the job slot before returning, not leave it dangling for
// the next AddJob to clobber (spec.md §3).
func TestDoPipelineMidStageFailureKillsEarlierStagesAndFreesSlot(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)

	missingPath := filepath.Join(t.TempDir(), "no-such-dir", "out.txt")

	toks := []token.Token{
		arg("sleep"), arg("100"),
		{Kind: token.Pipe},
		arg("cat"), outRedir(), arg(missingPath),
	}

	code, err := env.DoPipeline(toks, true)
	require.Error(err)
	require.Zero(code)

	require.True(env.Table.Free(jobtable.FG))
	for j := 1; j < env.Table.Len(); j++ {
		require.True(env.Table.Free(j), "background slot %d must not hold the killed stage", j)
	}
}

// TestDoPipelineMidStageFailureKillsRunningEarlierStage is the same
// property for a stage that fails at cmd.Start() (lookup failure)
// rather than at resolveRedir, again with a long-lived first stage so
// the kill is observed racing a still-running sleep rather than a
// process that might already have exited on its own.
func TestDoPipelineMidStageFailureKillsRunningEarlierStage(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)

	toks := []token.Token{
		arg("sleep"), arg("100"),
		{Kind: token.Pipe},
		arg("no-such-command-anywhere-on-path"),
	}

	code, err := env.DoPipeline(toks, true)
	require.Error(err)
	require.Zero(code)

	require.Eventually(func() bool {
		return env.Table.Free(jobtable.FG)
	}, 2*time.Second, 10*time.Millisecond)

	for j := 1; j < env.Table.Len(); j++ {
		require.True(env.Table.Free(j), "background slot %d must not hold the killed stage", j)
	}
}

func TestDoPipelineSingleStageSucceeds(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)

	toks := []token.Token{arg("true")}
	code, err := env.DoPipeline(toks, false)
	require.NoError(err)
	require.Zero(code)
	require.True(env.Table.Free(jobtable.FG))
}
