// Package builtin is the built-in command resolver consumed by the
// shell core per spec.md §6: builtin_command(argv) -> exit code if
// argv names a built-in that was executed, or "not a builtin"
// otherwise. Built-ins that mutate shell state (cd, fg, bg, jobs,
// kill, quit) are handled here, exactly as original_source/shell.h's
// builtin_command contract describes.
//
// Resolve is given a *Shell — the minimal set of operations a
// built-in needs against the running shell — rather than depending on
// internal/jobcontrol or internal/launcher directly, so this package
// has no import cycle with the packages that construct it.
package builtin

import (
	"errors"
	"fmt"
	"os"
)

// ErrQuit is returned by Resolve when the "quit"/"exit" built-in ran;
// the caller (cmd/gosh's main loop) treats it as a request to begin
// shutdown.
var ErrQuit = errors.New("builtin: quit requested")

// Shell is the subset of the running shell a built-in may act on.
type Shell struct {
	Chdir  func(dir string) error
	Watch  func(which int)
	Resume func(j int, bg bool) error
	Kill   func(j int) error
}

// Resolve executes argv as a built-in against sh if argv[0] names
// one, returning its exit code and true. It returns false if argv
// does not name a built-in, in which case the caller must fall
// through to the external launcher.
func Resolve(sh *Shell, argv []string) (code int, handled bool, err error) {
	if len(argv) == 0 {
		return 0, false, nil
	}

	switch argv[0] {
	case "cd":
		dir := os.Getenv("HOME")
		if len(argv) > 1 {
			dir = argv[1]
		}
		if err := sh.Chdir(dir); err != nil {
			fmt.Fprintf(os.Stderr, "cd: %v\n", err)
			return 1, true, nil
		}
		return 0, true, nil

	case "jobs":
		sh.Watch(watchAll)
		return 0, true, nil

	case "fg":
		j, err := jobArg(argv)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fg: %v\n", err)
			return 1, true, nil
		}
		if err := sh.Resume(j, false); err != nil {
			fmt.Fprintf(os.Stderr, "fg: %v\n", err)
			return 1, true, nil
		}
		return 0, true, nil

	case "bg":
		j, err := jobArg(argv)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bg: %v\n", err)
			return 1, true, nil
		}
		if err := sh.Resume(j, true); err != nil {
			fmt.Fprintf(os.Stderr, "bg: %v\n", err)
			return 1, true, nil
		}
		return 0, true, nil

	case "kill":
		j, err := jobArg(argv)
		if err != nil {
			fmt.Fprintf(os.Stderr, "kill: %v\n", err)
			return 1, true, nil
		}
		if err := sh.Kill(j); err != nil {
			fmt.Fprintf(os.Stderr, "kill: %v\n", err)
			return 1, true, nil
		}
		return 0, true, nil

	case "quit", "exit":
		return 0, true, ErrQuit

	default:
		return 0, false, nil
	}
}

// watchAll mirrors original_source/jobs.h's ALL sentinel for
// watchjobs; kept local since jobtable.State's zero value already
// means RUNNING and a distinct "any state" tag is needed.
const watchAll = -1

// jobArg parses an optional job index argument, defaulting to -1
// (meaning "the highest-indexed non-finished job", resolved by
// internal/jobcontrol.Resume/Kill per spec.md §4.7).
func jobArg(argv []string) (int, error) {
	if len(argv) < 2 {
		return -1, nil
	}
	var j int
	if _, err := fmt.Sscanf(argv[1], "%d", &j); err != nil {
		return 0, fmt.Errorf("invalid job number %q", argv[1])
	}
	return j, nil
}
