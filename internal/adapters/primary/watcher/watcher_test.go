package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"prediction-service/internal/core/domain"
	"prediction-service/internal/testutil"
)

func TestFileWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crop.json")
	require.NoError(t, os.WriteFile(path, testutil.CropArtifactJSON(1, 0.6), 0o644))

	reloaded := make(chan string, 4)
	reloader := new(testutil.MockReloader)
	reloader.On("Reload", mock.Anything, "file://"+path).
		Run(func(args mock.Arguments) { reloaded <- args.String(1) }).
		Return(&domain.ReloadResult{Status: domain.ReloadStatusSwapped, Version: 2}, nil)

	w := New(reloader, "file://"+path, path, 50*time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Close()

	// A burst of writes collapses into one reload.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, testutil.CropArtifactJSON(2, 0.6), 0o644))
	}

	select {
	case ref := <-reloaded:
		require.Equal(t, "file://"+path, ref)
	case <-time.After(2 * time.Second):
		t.Fatal("artifact change did not trigger a reload")
	}

	time.Sleep(100 * time.Millisecond)
	require.Len(t, reloaded, 0)
}

func TestFileWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crop.json")
	require.NoError(t, os.WriteFile(path, testutil.CropArtifactJSON(1, 0.6), 0o644))

	reloader := new(testutil.MockReloader)
	w := New(reloader, path, path, 10*time.Millisecond)
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, w.Close())
	reloader.AssertNotCalled(t, "Reload", mock.Anything, mock.Anything)
}

func TestFileWatcher_ReloadErrorKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crop.json")
	require.NoError(t, os.WriteFile(path, testutil.CropArtifactJSON(1, 0.6), 0o644))

	calls := make(chan struct{}, 4)
	reloader := new(testutil.MockReloader)
	reloader.On("Reload", mock.Anything, path).
		Run(func(mock.Arguments) { calls <- struct{}{} }).
		Return(nil, &domain.LoadError{Ref: path, Err: errors.New("truncated")})

	w := New(reloader, path, path, 10*time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Close()

	for i := 0; i < 2; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"version":`), 0o644))
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("write %d did not trigger a reload", i)
		}
	}
}

func TestFileWatcher_StartMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "crop.json")
	w := New(new(testutil.MockReloader), path, path, 0)

	require.Error(t, w.Start())
	require.NoError(t, w.Close())
}
