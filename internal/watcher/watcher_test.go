package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherFiresOnJSONLWrite(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	w := New(dir, 50*time.Millisecond, func() { fired.Add(1) })
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(dir, "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0644))

	assert.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	w := New(dir, 150*time.Millisecond, func() { fired.Add(1) })
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(dir, "session.jsonl")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 2*time.Second, 20*time.Millisecond)

	// A burst of writes collapses into a single callback
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	w := New(dir, 50*time.Millisecond, func() { fired.Add(1) })
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
