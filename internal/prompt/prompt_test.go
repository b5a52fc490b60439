package prompt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestReaderReadsLines(t *testing.T) {
	var out bytes.Buffer
	r := NewReader(strings.NewReader("first\r\nsecond\n\nlast"), &out)
	ctx := context.Background()

	for _, want := range []string{"first", "second", "", "last"} {
		got, err := r.ReadLine(ctx, "> ")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := r.ReadLine(ctx, "> ")
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "> > > > > ", out.String())
}

func TestReaderEmptyPromptWritesNothing(t *testing.T) {
	var out bytes.Buffer
	r := NewReader(strings.NewReader("x\n"), &out)

	got, err := r.ReadLine(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "x", got)
	assert.Empty(t, out.String())
}

func TestReaderCancelledBeforeRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := NewReader(strings.NewReader("x\n"), &out).ReadLine(ctx, "> ")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String(), "no prompt after cancellation")
}

func TestReaderCancelUnblocksPendingRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	r := NewReader(pr, io.Discard)

	errCh := make(chan error, 1)
	go func() {
		_, err := r.ReadLine(ctx, "")
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadLine did not return after cancel")
	}
}

func TestScripted(t *testing.T) {
	s := NewScripted("9", "")
	ctx := context.Background()

	line, err := s.ReadLine(ctx, "choose: ")
	require.NoError(t, err)
	assert.Equal(t, "9", line)
	assert.Equal(t, 1, s.Remaining())

	line, err = s.ReadLine(ctx, "again: ")
	require.NoError(t, err)
	assert.Equal(t, "", line)

	_, err = s.ReadLine(ctx, "done: ")
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"choose: ", "again: ", "done: "}, s.Prompts())
}
