package sysinfo

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeProc lays out the minimum of /proc that the sampler reads.
func writeFakeProc(t *testing.T, loadavg, stat, status string) string {
	t.Helper()
	root := t.TempDir()
	write := func(rel, data string) {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	}
	write("loadavg", loadavg)
	write("stat", stat)
	if status != "" {
		// procfs resolves Self() through the "self" symlink
		pid := "4242"
		write(filepath.Join(pid, "status"), status)
		require.NoError(t, os.Symlink(pid, filepath.Join(root, "self")))
	}
	return root
}

const fakeStat = `ctxt 0
btime 1700000000
processes 1
procs_running 1
procs_blocked 0
`

const fakeStatus = `Name:	server
Pid:	4242
VmHWM:	   20480 kB
VmRSS:	   10240 kB
`

func TestSampler_FromProc(t *testing.T) {
	root := writeFakeProc(t, "0.50 0.25 0.10 1/100 4242\n", fakeStat, fakeStatus)
	s, err := NewWithRoot(root)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Unix(1700000100, 0) }

	mem := s.Memory()
	assert.Equal(t, uint64(10240*1024), mem.Current)
	assert.Equal(t, uint64(20480*1024), mem.Peak)

	h := s.Host()
	assert.Equal(t, runtime.GOOS, h.OS)
	assert.Equal(t, runtime.GOARCH, h.Arch)
	require.NotNil(t, h.LoadAverage)
	assert.Equal(t, [3]float64{0.5, 0.25, 0.1}, *h.LoadAverage)
	require.NotNil(t, h.Uptime)
	assert.InDelta(t, 100.0, *h.Uptime, 0.001)
}

func TestSampler_MissingFilesDegrade(t *testing.T) {
	s, err := NewWithRoot(t.TempDir())
	require.NoError(t, err)

	h := s.Host()
	assert.Nil(t, h.LoadAverage, "load average should be nil without /proc/loadavg")
	assert.Nil(t, h.Uptime, "uptime should be nil without /proc/stat")

	mem := s.Memory()
	assert.NotZero(t, mem.Current, "runtime fallback should report mapped memory")
	assert.Equal(t, mem.Current, mem.Peak)
}

func TestRuntimeMemory_NonZero(t *testing.T) {
	assert.NotZero(t, runtimeMemory())
}
