package lineedit

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadLineWritesPromptAndReturnsLine(t *testing.T) {
	require := require.New(t)

	r, w, err := os.Pipe()
	require.NoError(err)
	defer w.Close()

	var out bytes.Buffer
	rdr := New(r, &out)

	_, werr := w.Write([]byte("echo hi\n"))
	require.NoError(werr)

	line, rerr := rdr.ReadLine("# ", nil)
	require.NoError(rerr)
	require.Equal("echo hi", line)
	require.Equal("# ", out.String())
}

func TestReadLineServesMultipleLinesInOrder(t *testing.T) {
	require := require.New(t)

	r, w, err := os.Pipe()
	require.NoError(err)
	defer w.Close()

	rdr := New(r, &bytes.Buffer{})

	_, werr := w.Write([]byte("one\ntwo\n"))
	require.NoError(werr)

	l1, err := rdr.ReadLine("# ", nil)
	require.NoError(err)
	require.Equal("one", l1)

	l2, err := rdr.ReadLine("# ", nil)
	require.NoError(err)
	require.Equal("two", l2)
}

func TestReadLineReturnsEOFAtEndOfInput(t *testing.T) {
	require := require.New(t)

	r, w, err := os.Pipe()
	require.NoError(err)
	require.NoError(w.Close()) // closing immediately delivers EOF

	rdr := New(r, &bytes.Buffer{})

	_, rerr := rdr.ReadLine("# ", nil)
	require.ErrorIs(rerr, io.EOF)
}

func TestReadLineReturnsLastLineWithoutTrailingNewline(t *testing.T) {
	require := require.New(t)

	r, w, err := os.Pipe()
	require.NoError(err)

	rdr := New(r, &bytes.Buffer{})

	_, werr := w.Write([]byte("no newline"))
	require.NoError(werr)
	require.NoError(w.Close())

	line, rerr := rdr.ReadLine("# ", nil)
	require.NoError(rerr)
	require.Equal("no newline", line)
}

func TestReadLineInterruptedBeforeLineArrives(t *testing.T) {
	require := require.New(t)

	r, w, err := os.Pipe()
	require.NoError(err)
	defer w.Close()
	defer r.Close()

	rdr := New(r, &bytes.Buffer{})

	interrupted := make(chan os.Signal, 1)
	interrupted <- os.Interrupt

	line, rerr := rdr.ReadLine("# ", interrupted)
	require.ErrorIs(rerr, ErrInterrupted)
	require.Empty(line)
}

func TestReadLineSubsequentCallGetsAbandonedReadOnceCompleted(t *testing.T) {
	require := require.New(t)

	r, w, err := os.Pipe()
	require.NoError(err)
	defer w.Close()

	rdr := New(r, &bytes.Buffer{})

	interrupted := make(chan os.Signal, 1)
	interrupted <- os.Interrupt
	_, rerr := rdr.ReadLine("# ", interrupted)
	require.ErrorIs(rerr, ErrInterrupted)

	// The abandoned read from the first call is still outstanding; once
	// a line actually arrives, the next ReadLine picks it up instead of
	// blocking forever.
	_, werr := w.Write([]byte("hello\n"))
	require.NoError(werr)

	line, rerr := rdr.ReadLine("# ", nil)
	require.NoError(rerr)
	require.Equal("hello", line)
}

func TestNewDoesNotBlockConstruction(t *testing.T) {
	require := require.New(t)

	r, w, err := os.Pipe()
	require.NoError(err)
	defer r.Close()
	defer w.Close()

	done := make(chan struct{})
	go func() {
		New(r, &bytes.Buffer{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("New blocked on its background read loop starting")
	}
}
