package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "hybridspace "+Version+"\n", out)
}

func TestRunFromStdin(t *testing.T) {
	out, err := execute(t, "alloc 0 5\nfree 1 2\nlist\n", "run", "-", "--quiet", "--disk-size", "20")
	require.NoError(t, err)
	assert.Equal(t,
		"Allocated 5 blocks starting at 0\n"+
			"Deallocated 2 blocks from 1\n"+
			"[1:3] -> [5:20]\n",
		out)
}

func TestRunScriptFile(t *testing.T) {
	script := filepath.Join(t.TempDir(), "fragment.txt")
	require.NoError(t, os.WriteFile(script, []byte("# fragment the device\nalloc 10 10\nalloc 30 10\ngroups\n"), 0o644))

	out, err := execute(t, "", "run", script, "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "Group 1: Start=0, Size=10 blocks")
	assert.Contains(t, out, "Group 2: Start=20, Size=10 blocks")
	assert.Contains(t, out, "Group 3: Start=40, Size=10 blocks")
}

func TestRunMissingScript(t *testing.T) {
	_, err := execute(t, "", "run", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open script")
}

func TestStrictFlag(t *testing.T) {
	out, err := execute(t, "free 0 3\n", "run", "-", "-q", "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "DoubleFree")
}

func TestShellDrawsInitialState(t *testing.T) {
	out, err := execute(t, "quit\n", "shell", "--disk-size", "4", "--grid-cols", "4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "0 ....\n"), out)
	assert.Contains(t, out, "Total Disk Size: 4 blocks")
	assert.True(t, strings.HasSuffix(out, "> "), out)
}

func TestSimulate(t *testing.T) {
	out, err := execute(t, "", "simulate", "--devices", "3", "--ops", "200", "--seed", "11", "--disk-size", "40")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "DEVICE"))
	for i, line := range lines[1:] {
		fields := strings.Fields(line)
		require.Len(t, fields, 10)
		assert.Equal(t, strconv.Itoa(i), fields[0])
		assert.Equal(t, strconv.Itoa(11+i), fields[1])
		assert.Equal(t, "200", fields[2])
	}
}

func TestSimulateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"simulate", "--devices", "2", "--ops", "10", "--seed", "3"})
	err := cmd.ExecuteContext(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, out.String(), "DEVICE")
}

func TestRunRejectsOversizedReset(t *testing.T) {
	out, err := execute(t, "reset 9223372036854775807\nstatus\n", "run", "-", "-q", "--disk-size", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "(InvalidCapacity)")
	assert.Contains(t, out, "Total Disk Size: 20 blocks")
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := execute(t, "", "run", "-", "--disk-size", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk_size")

	_, err = execute(t, "", "run", "-", "--disk-size", "9223372036854775807")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk_size")

	_, err = execute(t, "", "version", "--log-format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_format")
}

func TestConfigFile(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "hybridspace.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("disk_size: 12\nstrict_dealloc: true\n"), 0o644))

	out, err := execute(t, "free 0 1\nstatus\n", "run", "-", "-q", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "DoubleFree")
	assert.Contains(t, out, "Total Disk Size: 12 blocks")
}
