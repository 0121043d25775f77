// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func stage(t *testing.T, s *Store, name string) string {
	t.Helper()
	path := filepath.Join(s.Dir(), name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))
	return path
}

func TestNewID_IsUniqueForTheSameURL(t *testing.T) {
	s := newTestStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := s.NewID("https://example.com/v")
		assert.Len(t, id, 32, "identifier is 128 bits hex-encoded")
		assert.False(t, seen[id], "identifier collision")
		seen[id] = true
	}
}

func TestStagingPath_LivesInStoreDir(t *testing.T) {
	s := newTestStore(t)
	id := s.NewID("https://example.com/v")
	assert.Equal(t, filepath.Join(s.Dir(), id), s.StagingPath(id))
}

func TestRemove_DeletesEveryStagedFile(t *testing.T) {
	s := newTestStore(t)
	id := s.NewID("https://example.com/v")
	stage(t, s, id+".mp4")
	stage(t, s, id+".mp4.part")
	other := stage(t, s, "unrelated.mp4")

	s.Remove(id, "test")

	assert.Equal(t, 1, s.FileCount())
	_, err := os.Stat(other)
	assert.NoError(t, err, "unrelated files stay")

	s.Remove(id, "test") // idempotent
	assert.Equal(t, 1, s.FileCount())
}

func TestSweepOlderThan_DeletesOnlyStaleFiles(t *testing.T) {
	s := newTestStore(t)
	stale := stage(t, s, "old.mp4")
	fresh := stage(t, s, "new.mp4")

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	deleted := s.SweepOlderThan(time.Hour)
	assert.Equal(t, 1, deleted)

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestSweepOlderThan_EmptyDirIsANoOp(t *testing.T) {
	s := newTestStore(t)
	assert.Zero(t, s.SweepOlderThan(time.Minute))
}

func TestScheduleRemove_FiresAfterDelay(t *testing.T) {
	s := newTestStore(t)
	id := s.NewID("https://example.com/v")
	staged := stage(t, s, id+".mp4")

	s.ScheduleRemove(id, time.Millisecond)

	require.Eventually(t, func() bool {
		_, err := os.Stat(staged)
		return os.IsNotExist(err)
	}, time.Second, 5*time.Millisecond)
}

func TestReaper_StopsOnContextCancel(t *testing.T) {
	s := newTestStore(t)
	stale := stage(t, s, "old.mp4")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	r := NewReaper(s, 30*time.Minute, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(stale)
		return os.IsNotExist(err)
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancellation")
	}
}
