package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/joshuarubin/gosh/internal/builtin"
	"github.com/joshuarubin/gosh/internal/jobcontrol"
	"github.com/joshuarubin/gosh/internal/jobtable"
	"github.com/joshuarubin/gosh/internal/launcher"
	"github.com/joshuarubin/gosh/internal/lineedit"
	"github.com/joshuarubin/gosh/internal/reaper"
	"github.com/joshuarubin/gosh/internal/session"
	"github.com/joshuarubin/gosh/internal/sigctl"
	"github.com/joshuarubin/gosh/internal/termctl"
	"github.com/joshuarubin/gosh/internal/token"
)

func main() {
	if err := run(); err != nil {
		if code, ok := exitCode(err); ok {
			os.Exit(code)
		}
		os.Exit(1)
	}
}

func run() error {
	root := cobra.Command{
		Use:   "gosh",
		Short: "An interactive POSIX job-control shell",

		// silence these so a failed foreground job's exit code isn't
		// dressed up with cobra usage output
		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd.Context())
		},
	}

	ctx := context.Background()

	cmd, err := root.ExecuteContextC(ctx)
	if _, ok := exitCode(err); ok {
		// we have a proper exit code from the command
		return err
	}

	if err != nil {
		root.Println(cmd.UsageString())
		root.PrintErrln(root.ErrPrefix(), err.Error())
	}

	return err
}

func exitCode(err error) (int, bool) {
	var eerr *exec.ExitError
	if errors.As(err, &eerr) {
		return eerr.ExitCode(), true
	}
	return 0, false
}

const prompt = "# "

// runShell wires every core component together and drives the
// read-eval-print loop described in original_source/shell.c's main.
func runShell(_ context.Context) error {
	sid, err := session.New()
	if err != nil {
		return fmt.Errorf("gosh: new session id: %w", err)
	}
	log := slog.With("session", sid.String())

	term, err := termctl.New()
	if err != nil {
		log.Error("shell can run only in interactive mode", "err", err)
		return err
	}

	tbl := jobtable.New()
	arb := sigctl.New()

	stop := make(chan struct{})
	go arb.Run(stop, func() { reaper.Reap(tbl) })
	defer close(stop)

	jc := &jobcontrol.Env{Table: tbl, Term: term, Arb: arb, Out: os.Stdout}
	lnch := &launcher.Env{Table: tbl, Term: term, Arb: arb, Out: os.Stdout}

	sh := &builtin.Shell{
		Chdir:  os.Chdir,
		Watch:  jc.Watch,
		Resume: jc.Resume,
		Kill:   jc.Kill,
	}
	lnch.Builtin = func(argv []string) (int, bool, error) {
		return builtin.Resolve(sh, argv)
	}

	reader := lineedit.New(os.Stdin, os.Stdout)

	for {
		line, err := reader.ReadLine(prompt, arb.Interrupted())
		switch {
		case err == io.EOF:
			fmt.Fprintln(os.Stdout)
			jc.Shutdown()
			return nil
		case errors.Is(err, lineedit.ErrInterrupted):
			fmt.Fprintln(os.Stdout)
			continue
		case err != nil:
			log.Error("read error", "err", err)
			continue
		}

		if line == "" {
			continue
		}

		if err := eval(lnch, line); err != nil {
			if errors.Is(err, builtin.ErrQuit) {
				jc.Shutdown()
				return nil
			}
			fmt.Fprintln(os.Stderr, "gosh:", err)
		}

		jc.Watch(int(jobtable.Finished))
	}
}

// eval tokenizes line and dispatches it to the pipeline or
// single-command launch path, mirroring
// original_source/shell.c:eval's is_pipeline check.
func eval(lnch *launcher.Env, line string) error {
	toks, err := token.Tokenize(line)
	if err != nil {
		return err
	}
	if len(toks) == 0 {
		return nil
	}

	bg := false
	if toks[len(toks)-1].Kind == token.Background {
		toks = toks[:len(toks)-1]
		bg = true
	}
	if len(toks) == 0 {
		return nil
	}

	var runErr error
	if isPipeline(toks) {
		_, runErr = lnch.DoPipeline(toks, bg)
	} else {
		_, runErr = lnch.DoJob(toks, bg)
	}
	return runErr
}

func isPipeline(toks []token.Token) bool {
	for _, t := range toks {
		if t.Kind == token.Pipe {
			return true
		}
	}
	return false
}
