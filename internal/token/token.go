// Package token implements the tokenizer consumed by the shell core
// per spec.md §6: splitting a line into a flat token sequence with
// distinguished tokens for input redirect, output redirect, pipe, and
// background marker. This is one of the four external collaborators
// spec.md places out of scope for the core; it is implemented here at
// the same minimal level original_source/shell.c gives its own
// tokenize (whitespace-separated words with single-character
// operators), so the rest of the core has something real to run
// against.
package token

import "strings"

// Kind tags a Token's role in the grammar.
type Kind int

const (
	Arg Kind = iota
	InputRedirect
	OutputRedirect
	Pipe
	Background
)

// Token is one element of a tokenized command line.
type Token struct {
	Kind Kind
	// Value holds the literal argv text for Arg tokens (including a
	// redirection target, which arrives as a plain Arg token
	// immediately following the operator, per §4.5.1). It is empty for
	// InputRedirect, OutputRedirect, Pipe and Background.
	Value string
}

// Tokenize splits line on whitespace, recognizing "<", ">" and "|" as
// standalone operator tokens and a trailing "&" as the background
// marker. It performs no quoting, escaping or globbing: those are
// explicitly out of scope (spec.md §1 non-goals: "no POSIX-locale-
// sensitive parsing").
func Tokenize(line string) ([]Token, error) {
	fields := strings.Fields(line)
	toks := make([]Token, 0, len(fields))

	for i, f := range fields {
		switch f {
		case "<":
			toks = append(toks, Token{Kind: InputRedirect})
		case ">":
			toks = append(toks, Token{Kind: OutputRedirect})
		case "|":
			toks = append(toks, Token{Kind: Pipe})
		case "&":
			if i == len(fields)-1 {
				toks = append(toks, Token{Kind: Background})
			} else {
				// "&" is only a background marker as the final token;
				// elsewhere it is a literal argument.
				toks = append(toks, Token{Kind: Arg, Value: f})
			}
		default:
			toks = append(toks, Token{Kind: Arg, Value: f})
		}
	}

	return toks, nil
}
