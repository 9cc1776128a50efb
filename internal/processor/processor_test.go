package processor

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"testing/iotest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IgorBayerl/mfp/internal/filesystem"
)

// createTestFile writes content to dir/name and returns its path.
func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// stubFile is an fs.File whose content comes from an arbitrary reader.
type stubFile struct {
	r      io.Reader
	closed chan struct{}
	once   sync.Once
}

func newStubFile(r io.Reader) *stubFile {
	return &stubFile{r: r, closed: make(chan struct{})}
}

func (f *stubFile) Stat() (fs.FileInfo, error) { return nil, errors.New("not supported") }
func (f *stubFile) Read(b []byte) (int, error) { return f.r.Read(b) }
func (f *stubFile) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

// stubFS serves regular entries from a MapFS and lets tests replace the
// reader behind selected paths.
type stubFS struct {
	filesystem.FSAdapter
	readers map[string]func(f *stubFile) io.Reader
}

func newStubFS(files map[string]string, readers map[string]func(f *stubFile) io.Reader) stubFS {
	mapFS := fstest.MapFS{}
	for name, content := range files {
		mapFS[name] = &fstest.MapFile{Data: []byte(content)}
	}
	for name := range readers {
		if _, ok := mapFS[name]; !ok {
			mapFS[name] = &fstest.MapFile{}
		}
	}
	return stubFS{FSAdapter: filesystem.FSAdapter{FS: mapFS}, readers: readers}
}

func (s stubFS) Open(name string) (fs.File, error) {
	if mk, ok := s.readers[name]; ok {
		f := newStubFile(nil)
		f.r = mk(f)
		return f, nil
	}
	return s.FSAdapter.Open(name)
}

// blockingReader never returns data; it unblocks with an error once the file is closed.
type blockingReader struct{ f *stubFile }

func (b blockingReader) Read([]byte) (int, error) {
	<-b.f.closed
	return 0, fs.ErrClosed
}

// slowReader sleeps before serving its content, simulating I/O latency.
type slowReader struct {
	delay    time.Duration
	r        io.Reader
	started  bool
	inFlight *atomic.Int32
	maxSeen  *atomic.Int32
}

func (s *slowReader) Read(b []byte) (int, error) {
	if !s.started {
		s.started = true
		if s.inFlight != nil {
			now := s.inFlight.Add(1)
			for {
				seen := s.maxSeen.Load()
				if now <= seen || s.maxSeen.CompareAndSwap(seen, now) {
					break
				}
			}
			defer s.inFlight.Add(-1)
		}
		time.Sleep(s.delay)
	}
	return s.r.Read(b)
}

type recordingObserver struct {
	mu        sync.Mutex
	started   []int
	succeeded []string
	failed    map[string]error
	summaries []BatchSummary
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{failed: make(map[string]error)}
}

func (r *recordingObserver) BatchStarted(_ string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, total)
}

func (r *recordingObserver) FileSucceeded(_, path string, _ FileProcessingResult, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.succeeded = append(r.succeeded, path)
}

func (r *recordingObserver) FileFailed(_, path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[path] = err
}

func (r *recordingObserver) BatchFinished(summary BatchSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, summary)
}

func TestNewTextProcessorStartsEmpty(t *testing.T) {
	p := NewTextProcessor(Options{})
	assert.Empty(t, p.Results())
	assert.Equal(t, DefaultConcurrency, p.concurrency)
}

func TestProcessSingleFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("EmptyFile", func(t *testing.T) {
		path := createTestFile(t, dir, "empty.txt", "")
		result, err := NewTextProcessor(Options{}).processSingleFile(context.Background(), path)
		require.NoError(t, err)
		assert.NotNil(t, result.LineCounts)
		assert.Empty(t, result.LineCounts)
		assert.Equal(t, 0, result.TotalWords)
	})

	t.Run("MultilineFile", func(t *testing.T) {
		path := createTestFile(t, dir, "multi.txt", "one two\nthree four five\nsix")
		result, err := NewTextProcessor(Options{}).processSingleFile(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3, 1}, result.LineCounts)
		assert.Equal(t, 6, result.TotalWords)
	})

	t.Run("NonexistentFile", func(t *testing.T) {
		_, err := NewTextProcessor(Options{}).processSingleFile(context.Background(), filepath.Join(dir, "nonexistent.txt"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFileNotFound)
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("Directory", func(t *testing.T) {
		_, err := NewTextProcessor(Options{}).processSingleFile(context.Background(), dir)
		require.Error(t, err)
		assert.Equal(t, KindIO, KindOf(err))
	})
}

func TestProcessFilesEmptyInput(t *testing.T) {
	obs := newRecordingObserver()
	p := NewTextProcessor(Options{Observer: obs})

	err := p.ProcessFiles(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyFileList)
	assert.Empty(t, p.Results())
	assert.Empty(t, obs.started)
	assert.Empty(t, obs.summaries)
}

func TestProcessFilesEmptyInputLeavesResultsUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := createTestFile(t, dir, "a.txt", "a b c")
	p := NewTextProcessor(Options{})
	require.NoError(t, p.ProcessFiles(context.Background(), []string{path}))
	before := p.Results()

	assert.ErrorIs(t, p.ProcessFiles(context.Background(), []string{}), ErrEmptyFileList)
	assert.Empty(t, cmp.Diff(before, p.Results()))
}

func TestProcessFilesAllSucceed(t *testing.T) {
	dir := t.TempDir()
	file1 := createTestFile(t, dir, "file1.txt", "one two")
	file2 := createTestFile(t, dir, "file2.txt", "three")

	obs := newRecordingObserver()
	p := NewTextProcessor(Options{Observer: obs})
	require.NoError(t, p.ProcessFiles(context.Background(), []string{file1, file2}))

	want := map[string]FileProcessingResult{
		file1: {LineCounts: []int{2}, TotalWords: 2},
		file2: {LineCounts: []int{1}, TotalWords: 1},
	}
	if diff := cmp.Diff(want, p.Results()); diff != "" {
		t.Errorf("Results() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []int{2}, obs.started)
	assert.ElementsMatch(t, []string{file1, file2}, obs.succeeded)
	require.Len(t, obs.summaries, 1)
	assert.True(t, obs.summaries[0].Succeeded())
	assert.Equal(t, 2, obs.summaries[0].TotalCount)
	assert.NotEmpty(t, obs.summaries[0].BatchID)
}

func TestProcessFilesPartialFailure(t *testing.T) {
	dir := t.TempDir()
	valid := createTestFile(t, dir, "valid.txt", "content")
	invalid := filepath.Join(dir, "nonexistent.txt")

	obs := newRecordingObserver()
	p := NewTextProcessor(Options{Observer: obs})
	err := p.ProcessFiles(context.Background(), []string{valid, invalid})

	var partial *PartialProcessingError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, partial.FailedCount)
	assert.Equal(t, 2, partial.TotalCount)
	assert.Equal(t, "failed to process 1 out of 2 files", err.Error())

	results := p.Results()
	require.Len(t, results, 1)
	assert.Contains(t, results, valid)

	require.Contains(t, obs.failed, invalid)
	assert.ErrorIs(t, obs.failed[invalid], ErrFileNotFound)
	assert.Equal(t, 1, obs.summaries[0].FailedCount)
}

func TestProcessFilesAllFail(t *testing.T) {
	dir := t.TempDir()
	p := NewTextProcessor(Options{})
	err := p.ProcessFiles(context.Background(), []string{
		filepath.Join(dir, "missing1.txt"),
		filepath.Join(dir, "missing2.txt"),
		filepath.Join(dir, "missing3.txt"),
	})

	var partial *PartialProcessingError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, PartialProcessingError{FailedCount: 3, TotalCount: 3}, *partial)
	assert.Empty(t, p.Results())
}

func TestProcessFilesReadErrorIsAtomic(t *testing.T) {
	boom := errors.New("device error")
	fsys := newStubFS(
		map[string]string{"good.txt": "a b\nc"},
		map[string]func(f *stubFile) io.Reader{
			"broken.txt": func(*stubFile) io.Reader {
				return io.MultiReader(strings.NewReader("line one\nline two\n"), iotest.ErrReader(boom))
			},
		},
	)

	obs := newRecordingObserver()
	p := NewTextProcessor(Options{FS: fsys, Observer: obs})
	err := p.ProcessFiles(context.Background(), []string{"good.txt", "broken.txt"})

	var partial *PartialProcessingError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, partial.FailedCount)

	results := p.Results()
	assert.NotContains(t, results, "broken.txt")
	assert.Equal(t, FileProcessingResult{LineCounts: []int{2, 1}, TotalWords: 3}, results["good.txt"])

	failure := obs.failed["broken.txt"]
	assert.ErrorIs(t, failure, boom)
	var fileErr *FileError
	require.ErrorAs(t, failure, &fileErr)
	assert.Equal(t, "read", fileErr.Op)
	assert.Equal(t, KindIO, fileErr.Kind)
}

func TestProcessFilesOpenError(t *testing.T) {
	dir := t.TempDir()
	path := createTestFile(t, dir, "locked.txt", "secret words")
	require.NoError(t, os.Chmod(path, 0o000))
	t.Cleanup(func() { os.Chmod(path, 0o644) })

	if f, err := os.Open(path); err == nil {
		f.Close()
		t.Skip("running with privileges that ignore file permissions")
	}

	obs := newRecordingObserver()
	p := NewTextProcessor(Options{Observer: obs})
	err := p.ProcessFiles(context.Background(), []string{path})

	var partial *PartialProcessingError
	require.ErrorAs(t, err, &partial)
	var fileErr *FileError
	require.ErrorAs(t, obs.failed[path], &fileErr)
	assert.Equal(t, "open", fileErr.Op)
	assert.NotErrorIs(t, fileErr, ErrFileNotFound)
}

func TestProcessFilesFileTimeout(t *testing.T) {
	fsys := newStubFS(
		map[string]string{"fast.txt": "quick words here"},
		map[string]func(f *stubFile) io.Reader{
			"stalled.txt": func(f *stubFile) io.Reader { return blockingReader{f: f} },
		},
	)

	obs := newRecordingObserver()
	p := NewTextProcessor(Options{FS: fsys, Observer: obs, FileTimeout: 50 * time.Millisecond})

	start := time.Now()
	err := p.ProcessFiles(context.Background(), []string{"stalled.txt", "fast.txt"})
	assert.Less(t, time.Since(start), 5*time.Second)

	var partial *PartialProcessingError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, PartialProcessingError{FailedCount: 1, TotalCount: 2}, *partial)
	assert.ErrorIs(t, obs.failed["stalled.txt"], ErrTimeout)
	assert.Equal(t, KindTimeout, KindOf(obs.failed["stalled.txt"]))
	assert.Contains(t, p.Results(), "fast.txt")
}

func TestProcessFilesBatchDeadline(t *testing.T) {
	fsys := newStubFS(nil, map[string]func(f *stubFile) io.Reader{
		"a.txt": func(f *stubFile) io.Reader { return blockingReader{f: f} },
		"b.txt": func(f *stubFile) io.Reader { return blockingReader{f: f} },
		"c.txt": func(f *stubFile) io.Reader { return blockingReader{f: f} },
	})

	// Concurrency 1 leaves two paths waiting for a slot when the deadline hits.
	p := NewTextProcessor(Options{FS: fsys, Concurrency: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.ProcessFiles(ctx, []string{"a.txt", "b.txt", "c.txt"})
	var partial *PartialProcessingError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 3, partial.FailedCount)
}

func TestProcessFilesCanceledContext(t *testing.T) {
	dir := t.TempDir()
	path := createTestFile(t, dir, "a.txt", "words")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	obs := newRecordingObserver()
	p := NewTextProcessor(Options{Observer: obs})
	err := p.ProcessFiles(ctx, []string{path})

	var partial *PartialProcessingError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, partial.FailedCount)
	assert.ErrorIs(t, obs.failed[path], ErrCanceled)
	assert.Empty(t, p.Results())
}

func TestProcessFilesRunsConcurrently(t *testing.T) {
	const (
		fileCount = 8
		delay     = 100 * time.Millisecond
	)
	readers := map[string]func(f *stubFile) io.Reader{}
	var paths []string
	for i := 0; i < fileCount; i++ {
		name := string(rune('a'+i)) + ".txt"
		paths = append(paths, name)
		readers[name] = func(*stubFile) io.Reader {
			return &slowReader{delay: delay, r: strings.NewReader("slow file\n")}
		}
	}

	p := NewTextProcessor(Options{FS: newStubFS(nil, readers)})
	start := time.Now()
	require.NoError(t, p.ProcessFiles(context.Background(), paths))
	elapsed := time.Since(start)

	// Serial execution would take fileCount*delay.
	assert.Less(t, elapsed, fileCount*delay/2, "files were not processed concurrently")
	assert.Len(t, p.Results(), fileCount)
}

func TestProcessFilesRespectsConcurrencyLimit(t *testing.T) {
	var inFlight, maxSeen atomic.Int32
	readers := map[string]func(f *stubFile) io.Reader{}
	var paths []string
	for i := 0; i < 6; i++ {
		name := string(rune('a'+i)) + ".txt"
		paths = append(paths, name)
		readers[name] = func(*stubFile) io.Reader {
			return &slowReader{
				delay:    20 * time.Millisecond,
				r:        strings.NewReader("x y\n"),
				inFlight: &inFlight,
				maxSeen:  &maxSeen,
			}
		}
	}

	p := NewTextProcessor(Options{FS: newStubFS(nil, readers), Concurrency: 2})
	require.NoError(t, p.ProcessFiles(context.Background(), paths))
	assert.LessOrEqual(t, maxSeen.Load(), int32(2))
	assert.Len(t, p.Results(), 6)
}

func TestProcessFilesAccumulatesAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	first := createTestFile(t, dir, "first.txt", "one")
	second := createTestFile(t, dir, "second.txt", "two words")

	p := NewTextProcessor(Options{})
	require.NoError(t, p.ProcessFiles(context.Background(), []string{first}))
	require.NoError(t, p.ProcessFiles(context.Background(), []string{second}))

	results := p.Results()
	assert.Len(t, results, 2)
	assert.Equal(t, 2, results[second].TotalWords)

	p.Reset()
	assert.Empty(t, p.Results())
}

func TestResultsIsIdempotentAndIsolated(t *testing.T) {
	dir := t.TempDir()
	path := createTestFile(t, dir, "a.txt", "alpha beta\ngamma")

	p := NewTextProcessor(Options{})
	require.NoError(t, p.ProcessFiles(context.Background(), []string{path}))

	first := p.Results()
	first[path].LineCounts[0] = 99
	delete(first, path)

	second := p.Results()
	third := p.Results()
	assert.Empty(t, cmp.Diff(second, third))
	assert.Equal(t, []int{2, 1}, second[path].LineCounts)
}

func TestFileErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *FileError
		want string
	}{
		{
			name: "not found",
			err:  &FileError{Path: "a.txt", Op: "stat", Kind: KindNotFound, Err: fs.ErrNotExist},
			want: "file not found: a.txt",
		},
		{
			name: "io",
			err:  &FileError{Path: "b.txt", Op: "read", Kind: KindIO, Err: errors.New("bad sector")},
			want: "IO error: read b.txt: bad sector",
		},
		{
			name: "timeout",
			err:  &FileError{Path: "c.txt", Op: "read", Kind: KindTimeout, Err: context.DeadlineExceeded},
			want: "timed out processing c.txt during read",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
	assert.Equal(t, "timeout", KindTimeout.String())
	assert.Equal(t, KindIO, KindOf(errors.New("plain")))
}
