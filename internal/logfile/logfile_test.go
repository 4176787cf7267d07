package logfile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	require.NoError(t, sc.Err())
	return out
}

func TestAppend_CreatesDirAndTerminatesLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	a := New(dir, "access.log")

	require.NoError(t, a.AppendString("first"))
	require.NoError(t, a.Append([]byte("second\n")))

	raw, err := os.ReadFile(a.Path())
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(raw))
}

func TestAppend_PreservesExistingContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contact.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	require.NoError(t, New(dir, "contact.log").AppendString("new"))
	assert.Equal(t, []string{"old", "new"}, readLines(t, path))
}

func TestAppend_ConcurrentWritersProduceWholeLines(t *testing.T) {
	dir := t.TempDir()
	// separate appenders share only the OS lock
	a1 := New(dir, "shared.log")
	a2 := New(dir, "shared.log")

	const perWriter = 200
	payload := strings.Repeat("x", 512)

	var wg sync.WaitGroup
	for i, a := range []*Appender{a1, a2, a1, a2} {
		wg.Add(1)
		go func(id int, a *Appender) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				assert.NoError(t, a.AppendString(fmt.Sprintf("w%d-%d-%s", id, j, payload)))
			}
		}(i, a)
	}
	wg.Wait()

	lines := readLines(t, filepath.Join(dir, "shared.log"))
	require.Len(t, lines, 4*perWriter)
	for _, l := range lines {
		assert.True(t, strings.HasSuffix(l, payload), "torn line: %q", l)
	}
}

func TestAppend_UnwritableTarget(t *testing.T) {
	dir := t.TempDir()
	// a directory where the file should be
	require.NoError(t, os.Mkdir(filepath.Join(dir, "contact.log"), 0o755))

	err := New(dir, "contact.log").AppendString("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact.log")
}
