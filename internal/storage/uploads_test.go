package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 记录所有定时器，由测试手动触发
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// fire 触发第 i 个定时器
func (c *fakeClock) fire(i int) {
	c.mu.Lock()
	t := c.timers[i]
	c.mu.Unlock()
	if !t.stopped {
		t.f()
	}
}

type fakeArchive struct {
	mu        sync.Mutex
	archived  []string
	removed   []string
	putErr    error
	removeErr error
}

func (a *fakeArchive) ArchiveUpload(_ context.Context, objectName, path, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.putErr != nil {
		return a.putErr
	}
	a.archived = append(a.archived, objectName)
	return nil
}

func (a *fakeArchive) RemoveUpload(_ context.Context, objectName string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removed = append(a.removed, objectName)
	return a.removeErr
}

func newTestStore(t *testing.T, opts ...UploadOption) *UploadStore {
	t.Helper()
	s, err := NewUploadStore(filepath.Join(t.TempDir(), "uploads"), opts...)
	require.NoError(t, err)
	return s
}

func TestUploadStore_Save(t *testing.T) {
	archive := &fakeArchive{}
	s := newTestStore(t, WithArchive(archive))

	f, err := s.Save(context.Background(), "My CV (final).pdf", strings.NewReader("%PDF-1.4 data"))
	require.NoError(t, err)

	assert.Equal(t, "My CV (final).pdf", f.OriginalName)
	assert.True(t, strings.HasSuffix(f.StoredName, "_My_CV__final_.pdf"), f.StoredName)
	id, err := uuid.FromString(strings.SplitN(f.StoredName, "_", 2)[0])
	require.NoError(t, err)
	assert.Equal(t, byte(7), id.Version())
	assert.EqualValues(t, len("%PDF-1.4 data"), f.Size)
	assert.True(t, f.Archived)
	assert.Equal(t, []string{f.StoredName}, archive.archived)

	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 data", string(data))
}

func TestUploadStore_SaveUniqueNames(t *testing.T) {
	s := newTestStore(t)
	a, err := s.Save(context.Background(), "cv.pdf", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := s.Save(context.Background(), "cv.pdf", strings.NewReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a.StoredName, b.StoredName)
}

func TestUploadStore_SaveTooLarge(t *testing.T) {
	s := newTestStore(t, WithMaxFileSize(4))

	_, err := s.Save(context.Background(), "big.pdf", bytes.NewReader([]byte("12345")))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "oversized upload must not be left on disk")

	_, err = s.Save(context.Background(), "ok.pdf", bytes.NewReader([]byte("1234")))
	assert.NoError(t, err)
}

func TestUploadStore_ArchiveFailureIsNotFatal(t *testing.T) {
	s := newTestStore(t, WithArchive(&fakeArchive{putErr: errors.New("minio down")}))
	f, err := s.Save(context.Background(), "cv.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	assert.False(t, f.Archived)
	assert.FileExists(t, f.Path)
}

func TestUploadStore_ResolveRejectsPaths(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"", ".", "..", "../etc/passwd", "a/b.pdf", `a\b.pdf`} {
		_, err := s.Resolve(name)
		assert.ErrorIs(t, err, ErrInvalidStoredName, name)
	}
	path, err := s.Resolve("abc_cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "abc_cv.pdf"), path)
}

func TestUploadStore_RemoveMissingFileIsNotAnError(t *testing.T) {
	archive := &fakeArchive{}
	s := newTestStore(t, WithArchive(archive))
	assert.NoError(t, s.Remove(context.Background(), "gone.pdf"))
	assert.Equal(t, []string{"gone.pdf"}, archive.removed)
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"resume.pdf":           "resume.pdf",
		"../../etc/passwd":     "passwd",
		`C:\Users\me\cv.docx`:  "cv.docx",
		"my résumé.pdf":        "my_r_sum_.pdf",
		".hidden.png":          "hidden.png",
		"":                     "upload",
		"...":                  "upload",
		"John-Doe_CV 2024.jpg": "John-Doe_CV_2024.jpg",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}

func TestCleanupScheduler_DeletesAfterGracePeriod(t *testing.T) {
	clock := &fakeClock{}
	s := newTestStore(t)
	f, err := s.Save(context.Background(), "cv.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	sched := NewCleanupScheduler(s, WithAfterFunc(clock.AfterFunc))
	task := sched.Schedule(f.StoredName)

	require.Len(t, clock.timers, 1)
	assert.Equal(t, 300*time.Second, clock.timers[0].d)
	assert.Equal(t, 1, sched.Pending())
	assert.FileExists(t, f.Path)

	clock.fire(0)
	<-task.Done()
	assert.NoError(t, task.Err())
	assert.NoFileExists(t, f.Path)
	assert.Equal(t, 0, sched.Pending())
}

func TestCleanupScheduler_Cancel(t *testing.T) {
	clock := &fakeClock{}
	s := newTestStore(t)
	f, err := s.Save(context.Background(), "cv.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	sched := NewCleanupScheduler(s, WithAfterFunc(clock.AfterFunc), WithGracePeriod(time.Minute))
	task := sched.Schedule(f.StoredName)
	assert.Equal(t, time.Minute, clock.timers[0].d)

	assert.True(t, task.Cancel())
	assert.False(t, task.Cancel(), "second cancel is a no-op")
	<-task.Done()
	assert.ErrorIs(t, task.Err(), ErrCleanupCancelled)
	assert.True(t, clock.timers[0].stopped)

	// 已取消的任务不会再执行
	clock.timers[0].f()
	assert.FileExists(t, f.Path)
	assert.Equal(t, 0, sched.Pending())
}

func TestCleanupScheduler_CancelAfterRunReturnsFalse(t *testing.T) {
	clock := &fakeClock{}
	s := newTestStore(t)
	sched := NewCleanupScheduler(s, WithAfterFunc(clock.AfterFunc))
	task := sched.Schedule("missing.pdf")
	clock.fire(0)
	<-task.Done()
	assert.False(t, task.Cancel())
	assert.NoError(t, task.Err())
}

func TestCleanupScheduler_Flush(t *testing.T) {
	clock := &fakeClock{}
	s := newTestStore(t)
	var files []*StoredFile
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		f, err := s.Save(context.Background(), name, strings.NewReader(name))
		require.NoError(t, err)
		files = append(files, f)
	}

	sched := NewCleanupScheduler(s, WithAfterFunc(clock.AfterFunc))
	t1 := sched.Schedule(files[0].StoredName, files[1].StoredName)
	t2 := sched.Schedule(files[2].StoredName)
	assert.True(t, t2.Cancel())

	sched.Flush()
	<-t1.Done()
	assert.NoError(t, t1.Err())
	assert.NoFileExists(t, files[0].Path)
	assert.NoFileExists(t, files[1].Path)
	assert.FileExists(t, files[2].Path)
	assert.Equal(t, 0, sched.Pending())
}

func TestCleanupScheduler_FailuresAreReportedNotFatal(t *testing.T) {
	clock := &fakeClock{}
	archive := &fakeArchive{removeErr: errors.New("bucket gone")}
	s := newTestStore(t, WithArchive(archive))
	f, err := s.Save(context.Background(), "cv.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	sched := NewCleanupScheduler(s, WithAfterFunc(clock.AfterFunc))
	task := sched.Schedule(f.StoredName, "../escape.pdf")
	clock.fire(0)
	<-task.Done()

	err = task.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStoredName)
	assert.Contains(t, err.Error(), "bucket gone")
	// 本地文件仍被删除
	assert.NoFileExists(t, f.Path)
}

func TestCleanupScheduler_RealTimer(t *testing.T) {
	s := newTestStore(t)
	f, err := s.Save(context.Background(), "cv.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	sched := NewCleanupScheduler(s, WithGracePeriod(10*time.Millisecond))
	task := sched.Schedule(f.StoredName)
	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup did not run")
	}
	assert.NoFileExists(t, f.Path)
}
