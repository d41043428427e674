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

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(t.TempDir(), 100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)
}

func TestIgnoreFilter(t *testing.T) {
	filter := IgnoreFilter("node_modules", ".git", "*.map")

	testCases := []struct {
		path     string
		expected bool
	}{
		{"src/assets/css/style.css", true},
		{"src/theme/node_modules/pkg/index.js", false},
		{"node_modules", false},
		{".git/HEAD", false},
		{"src/assets/js/app.js.map", false},
		{"src/theme/git.php", true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, filter(tc.path))
		})
	}
}

func TestNoEditorTempFilter(t *testing.T) {
	assert.True(t, NoEditorTempFilter("src/theme/index.php"))
	assert.False(t, NoEditorTempFilter("src/theme/index.php~"))
	assert.False(t, NoEditorTempFilter("src/theme/.index.php.swp"))
	assert.False(t, NoEditorTempFilter("src/theme/.#index.php"))
}

func TestAddRecursiveRejectsEscapes(t *testing.T) {
	watcher, err := NewFileWatcher(t.TempDir(), 10*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.Error(t, watcher.AddRecursive("../elsewhere"))
	assert.NoError(t, watcher.AddRecursive("missing"))
}

func TestDebouncerDeduplicatesAndSorts(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.start(ctx)

	for _, p := range []string{"b.css", "a.css", "b.css", "a.css", "c.css"} {
		d.events <- ChangeEvent{Type: EventTypeModified, Path: p}
	}

	select {
	case batch := <-d.output:
		require.Len(t, batch, 3)
		assert.Equal(t, "a.css", batch[0].Path)
		assert.Equal(t, "b.css", batch[1].Path)
		assert.Equal(t, "c.css", batch[2].Path)
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer did not flush")
	}
}

func TestFileWatcherDeliversRelativePaths(t *testing.T) {
	root := t.TempDir()
	cssDir := filepath.Join(root, "src", "assets", "css")
	require.NoError(t, os.MkdirAll(cssDir, 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "node_modules"), 0755))

	watcher, err := NewFileWatcher(root, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	watcher.AddFilter(IgnoreFilter("node_modules"))

	var mu sync.Mutex
	var seen []string
	watcher.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			seen = append(seen, e.Path)
		}
		return nil
	})

	require.NoError(t, watcher.AddRecursive("src"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "node_modules", "x.js"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(cssDir, "style.css"), []byte("body{}"), 0644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range seen {
			if p == "src/assets/css/style.css" {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, seen, "src/node_modules/x.js")
}
