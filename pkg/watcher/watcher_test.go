package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	fw, err := NewFileWatcher(time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()

	assert.True(t, fw.Matches("/in/part.STL"))
	assert.True(t, fw.Matches("box.scad"))
	assert.False(t, fw.Matches("notes.txt"))
	assert.False(t, fw.Matches("stl"))
}

func TestRunDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()
	require.NoError(t, fw.Watch(dir))

	var (
		mu    sync.Mutex
		calls = map[string]int{}
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = fw.Run(ctx, func(path string) {
			mu.Lock()
			calls[filepath.Base(path)]++
			mu.Unlock()
		})
	}()

	part := filepath.Join(dir, "part.stl")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(part, []byte("solid part\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls["part.stl"] == 1
	}, 2*time.Second, 20*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls["part.stl"])
	assert.Zero(t, calls["readme.txt"])
}
