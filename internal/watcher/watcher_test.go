package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHidden(t *testing.T) {
	assert.True(t, isHidden(".git"))
	assert.True(t, isHidden(".notes.txt"))
	assert.False(t, isHidden("notes.txt"))
	assert.False(t, isHidden("."))
	assert.False(t, isHidden(".."))
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name       string
		prev, next ChangeType
		want       ChangeType
	}{
		{"first change", 0, ChangeUpdated, ChangeUpdated},
		{"write after create stays created", ChangeCreated, ChangeUpdated, ChangeCreated},
		{"recreate after delete is an update", ChangeDeleted, ChangeCreated, ChangeUpdated},
		{"delete wins", ChangeUpdated, ChangeDeleted, ChangeDeleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, merge(tt.prev, tt.next))
		})
	}
}

func TestChangeType_String(t *testing.T) {
	assert.Equal(t, "created", ChangeCreated.String())
	assert.Equal(t, "updated", ChangeUpdated.String())
	assert.Equal(t, "deleted", ChangeDeleted.String())
	assert.Equal(t, "unknown", ChangeType(0).String())
}

func TestHandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(file, []byte("content"), 0o644))
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	skipped := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(skipped, []byte{0x89}, 0o644))

	w := New(dir, WithFilter(func(p string) bool { return strings.HasSuffix(p, ".txt") }))

	tests := []struct {
		name  string
		event fsnotify.Event
		want  *Change
	}{
		{"create file", fsnotify.Event{Name: file, Op: fsnotify.Create}, &Change{ChangeCreated, file}},
		{"write file", fsnotify.Event{Name: file, Op: fsnotify.Write}, &Change{ChangeUpdated, file}},
		{"write and chmod", fsnotify.Event{Name: file, Op: fsnotify.Write | fsnotify.Chmod}, &Change{ChangeUpdated, file}},
		{"remove", fsnotify.Event{Name: filepath.Join(dir, "gone.txt"), Op: fsnotify.Remove}, &Change{ChangeDeleted, filepath.Join(dir, "gone.txt")}},
		{"rename", fsnotify.Event{Name: file, Op: fsnotify.Rename}, &Change{ChangeDeleted, file}},
		{"chmod only", fsnotify.Event{Name: file, Op: fsnotify.Chmod}, nil},
		{"directory", fsnotify.Event{Name: sub, Op: fsnotify.Create}, nil},
		{"hidden", fsnotify.Event{Name: filepath.Join(dir, ".swp"), Op: fsnotify.Create}, nil},
		{"filtered", fsnotify.Event{Name: skipped, Op: fsnotify.Create}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.handleFsEvent(tt.event))
		})
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"b.txt", "a.md", "nested/c.txt", ".hidden/d.txt", ".e.txt"} {
		full := filepath.Join(dir, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(p), 0o644))
	}

	files, err := New(dir).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.md"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "nested", "c.txt"),
	}, files)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, New(dir).Validate())

	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.ErrorIs(t, New(file).Validate(), ErrNotDirectory)
	assert.ErrorIs(t, New(filepath.Join(dir, "missing")).Validate(), os.ErrNotExist)
}

func TestWatch_ReportsCoalescedChanges(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(dir, WithDebounce(50*time.Millisecond))
	changes, _, err := w.Watch(ctx)
	require.NoError(t, err)

	file := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(file, []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(file, []byte("two"), 0o644))

	select {
	case c := <-changes:
		assert.Equal(t, Change{Type: ChangeCreated, Path: file}, c)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	for range changes {
	}
}
