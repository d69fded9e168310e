package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/garethgeorge/hybridspace/internal/spacemgr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T, capacity int, opts Options, mopts ...spacemgr.Option) (*Session, *bytes.Buffer) {
	t.Helper()
	m, err := spacemgr.New(capacity, mopts...)
	require.NoError(t, err)
	var out bytes.Buffer
	return NewSession(m, &out, opts), &out
}

func TestSession_AllocateAndFree(t *testing.T) {
	s, out := newSession(t, 50, Options{Quiet: true})

	script := strings.Join([]string{
		"alloc 10 5",
		"list",
		"allocate 0 10",
		"free 0 10",
		"list",
		"dealloc 10 5",
		"list",
	}, "\n")
	require.NoError(t, s.Run(context.Background(), strings.NewReader(script)))

	assert.Equal(t, strings.Join([]string{
		"Allocated 5 blocks starting at 10",
		"[0:10] -> [15:50]",
		"Allocated 10 blocks starting at 0",
		"Deallocated 10 blocks from 0",
		"[0:10] -> [15:50]",
		"Deallocated 5 blocks from 10",
		"[0:50]",
		"",
	}, "\n"), out.String())
	require.NoError(t, s.Manager().Verify())
}

func TestSession_Rejections(t *testing.T) {
	s, out := newSession(t, 50, Options{Quiet: true})

	testCases := []struct {
		line     string
		expected string
	}{
		{"alloc 48 5", "(OutOfRange)"},
		{"alloc 0 0", "(InvalidCount)"},
		{"alloc x 5", "error: enter valid numbers"},
		{"alloc 5", "error: enter valid numbers"},
		{"free -1 3", "(OutOfRange)"},
		{"free 1 two", "error: enter valid numbers"},
		{"reset -4", "(InvalidCapacity)"},
		{"reset 16777217", "(InvalidCapacity)"},
		{"reset 9223372036854775807", "(InvalidCapacity)"},
		{"fits 0", "error: enter valid numbers"},
		{"fits", "error: enter valid numbers"},
		{"reset big", "error: enter valid numbers"},
		{"frobnicate", `unknown command "frobnicate"`},
	}
	for _, tc := range testCases {
		t.Run(tc.line, func(t *testing.T) {
			out.Reset()
			quit, err := s.Exec(tc.line)
			require.NoError(t, err)
			assert.False(t, quit)
			assert.Contains(t, out.String(), tc.expected)
		})
	}

	_, err := s.Exec("alloc 0 5")
	require.NoError(t, err)
	out.Reset()
	_, err = s.Exec("alloc 2 2")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "cannot allocate 2 blocks at position 2")
	assert.Contains(t, out.String(), "(AlreadyAllocated)")
}

func TestSession_Fits(t *testing.T) {
	s, out := newSession(t, 50, Options{Quiet: true})

	script := strings.Join([]string{
		"fits 50",
		"fits 51",
		"alloc 10 10",
		"alloc 30 10",
		"fits 10",
		"fits 11",
		"alloc 0 5",
		"fits 6",
	}, "\n")
	require.NoError(t, s.Run(context.Background(), strings.NewReader(script)))

	assert.Equal(t, strings.Join([]string{
		"1 of 1 free groups can hold 50 blocks",
		"0 of 1 free groups can hold 51 blocks",
		"Allocated 10 blocks starting at 10",
		"Allocated 10 blocks starting at 30",
		"3 of 3 free groups can hold 10 blocks",
		"0 of 3 free groups can hold 11 blocks",
		"Allocated 5 blocks starting at 0",
		"2 of 3 free groups can hold 6 blocks",
		"",
	}, "\n"), out.String())
}

func TestSession_StrictDoubleFree(t *testing.T) {
	s, out := newSession(t, 20, Options{Quiet: true}, spacemgr.WithStrictDeallocation())
	_, err := s.Exec("free 0 5")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "(DoubleFree)")
}

func TestSession_GroupsAndReset(t *testing.T) {
	s, out := newSession(t, 50, Options{Quiet: true})
	for _, line := range []string{"alloc 10 10", "alloc 30 10"} {
		_, err := s.Exec(line)
		require.NoError(t, err)
	}

	out.Reset()
	_, err := s.Exec("groups")
	require.NoError(t, err)
	assert.Equal(t, "Group 1: Start=0, Size=10 blocks\nGroup 2: Start=20, Size=10 blocks\nGroup 3: Start=40, Size=10 blocks\n", out.String())

	out.Reset()
	_, err = s.Exec("reset 30")
	require.NoError(t, err)
	assert.Equal(t, "Reset device to 30 blocks\n", out.String())
	assert.Equal(t, 30, s.Manager().Capacity())
	assert.Equal(t, []spacemgr.FreeExtent{{Start: 0, Length: 30}}, s.Manager().FreeExtents())

	_, err = s.Exec("alloc 0 30")
	require.NoError(t, err)
	out.Reset()
	_, err = s.Exec("groups")
	require.NoError(t, err)
	assert.Equal(t, "No free space available\n", out.String())
}

func TestSession_RedrawAfterMutation(t *testing.T) {
	s, out := newSession(t, 20, Options{GridCols: 10})
	_, err := s.Exec("alloc 0 3")
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Allocated 3 blocks starting at 0")
	assert.Contains(t, text, " 0 ###.......")
	assert.Contains(t, text, "10 ..........")
	assert.Contains(t, text, "Allocated: 3 blocks | Free: 17 blocks")
	assert.Contains(t, text, "[3:20]")
}

func TestSession_CommentsQuitAndPrompt(t *testing.T) {
	s, out := newSession(t, 10, Options{Quiet: true, Prompt: "> "})
	script := "# setup\n\nalloc 0 2   # first two\nverify\nquit\nalloc 5 1\n"
	require.NoError(t, s.Run(context.Background(), strings.NewReader(script)))

	assert.Equal(t, "> > > Allocated 2 blocks starting at 0\n> ok\n> ", out.String())
	assert.False(t, s.Manager().IsAllocated(5), "commands after quit are not run")
}

func TestSession_StatusAndMap(t *testing.T) {
	s, out := newSession(t, 12, Options{Quiet: true, GridCols: 6})
	_, err := s.Exec("alloc 6 6")
	require.NoError(t, err)

	out.Reset()
	_, err = s.Exec("map")
	require.NoError(t, err)
	assert.Equal(t, " 0 ......\n 6 ######\n", out.String())

	out.Reset()
	_, err = s.Exec("STATUS")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Total Disk Size: 12 blocks")

	out.Reset()
	_, err = s.Exec("help")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "alloc <start> <count>")
}

func TestSession_ContextCancelled(t *testing.T) {
	s, _ := newSession(t, 10, Options{Quiet: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Run(ctx, strings.NewReader("alloc 0 1\n"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Manager().AllocatedBlocks())
}
