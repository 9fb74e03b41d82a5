package launcher

import (
	"fmt"
	"os"

	"github.com/joshuarubin/gosh/internal/token"
)

// noPending marks "no redirection operator currently pending" in
// resolveRedir's scan.
const noPending token.Kind = -1

// resolveRedir consumes redirection tokens left to right per spec.md
// §4.5.1: a redirection token puts the resolver in a pending mode,
// and the next non-redirection token names the file to open in that
// mode. Later redirections of the same direction supersede earlier
// ones, closing the earlier descriptor first. Non-redirection tokens
// retain their relative order in the returned argv.
//
// Output files are opened O_TRUNC (DESIGN.md, Open Question decision
// 1) with owner-rwx permissions, mirroring
// original_source/shell.c:do_redir's S_IRWXU.
func resolveRedir(toks []token.Token) (argv []string, in, out *os.File, err error) {
	mode := noPending

	closeOpened := func() {
		if in != nil {
			in.Close()
		}
		if out != nil {
			out.Close()
		}
	}

	for _, t := range toks {
		switch t.Kind {
		case token.InputRedirect, token.OutputRedirect:
			mode = t.Kind
			continue
		case token.Arg:
			// fall through to the mode switch below
		default:
			continue
		}

		switch mode {
		case token.InputRedirect:
			if in != nil {
				in.Close()
			}
			f, oerr := os.OpenFile(t.Value, os.O_RDONLY, 0)
			if oerr != nil {
				closeOpened()
				return nil, nil, nil, fmt.Errorf("%s: %w", t.Value, oerr)
			}
			in = f
			mode = noPending

		case token.OutputRedirect:
			if out != nil {
				out.Close()
			}
			f, oerr := os.OpenFile(t.Value, os.O_CREAT|os.O_WRONLY|os.O_TRUNC, 0o700)
			if oerr != nil {
				closeOpened()
				return nil, nil, nil, fmt.Errorf("%s: %w", t.Value, oerr)
			}
			out = f
			mode = noPending

		default:
			argv = append(argv, t.Value)
		}
	}

	return argv, in, out, nil
}
