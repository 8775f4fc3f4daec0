package tracker

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"videosync/internal/jobrunner"
	"videosync/models"
)

type fakeTrackerRunner struct {
	runs      map[int64]*jobrunner.WorkflowRun
	artifacts map[int64][]jobrunner.Artifact
	archives  map[string][]byte

	getErr      error
	listErr     error
	downloadErr error
}

func (f *fakeTrackerRunner) GetRun(ctx context.Context, runID int64) (*jobrunner.WorkflowRun, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	run, ok := f.runs[runID]
	if !ok {
		return nil, errors.New("run not found")
	}
	return run, nil
}

func (f *fakeTrackerRunner) ListArtifacts(ctx context.Context, runID int64) ([]jobrunner.Artifact, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.artifacts[runID], nil
}

func (f *fakeTrackerRunner) DownloadArtifact(ctx context.Context, archiveURL string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	archive, ok := f.archives[archiveURL]
	if !ok {
		return nil, errors.New("archive not found")
	}
	return archive, nil
}

// fakeTrackerStore mimics the conditional-transition semantics of the
// real store: a transition applies only when the current status matches.
type fakeTrackerStore struct {
	mu        sync.Mutex
	workflows map[uuid.UUID]*models.RenderWorkflow
	videos    []models.UserVideo

	transitionErr error
	insertErr     error
}

func newFakeTrackerStore(workflows ...*models.RenderWorkflow) *fakeTrackerStore {
	s := &fakeTrackerStore{workflows: make(map[uuid.UUID]*models.RenderWorkflow)}
	for _, w := range workflows {
		s.workflows[w.ID] = w
	}
	return s
}

func (f *fakeTrackerStore) ListActiveWorkflows() ([]models.RenderWorkflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var active []models.RenderWorkflow
	for _, w := range f.workflows {
		if !w.Status.Terminal() {
			active = append(active, *w)
		}
	}
	return active, nil
}

func (f *fakeTrackerStore) TransitionWorkflow(id uuid.UUID, from, to models.WorkflowStatus, fields map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transitionErr != nil {
		return false, f.transitionErr
	}
	w, ok := f.workflows[id]
	if !ok || w.Status != from {
		return false, nil
	}
	w.Status = to
	if url, ok := fields["video_url"].(string); ok {
		w.VideoURL = &url
	}
	return true, nil
}

func (f *fakeTrackerStore) InsertUserVideo(video models.UserVideo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.videos = append(f.videos, video)
	return nil
}

type fakeObjects struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (f *fakeObjects) Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.paths = append(f.paths, path)
	return "https://cdn.example.com/" + path, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func videoArchive(t *testing.T, fileName string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create(fileName)
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := fw.Write([]byte("rendered video bytes")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func queuedWorkflow(runID int64) *models.RenderWorkflow {
	duration := 30.0
	return &models.RenderWorkflow{
		ID:           uuid.New(),
		UserID:       "user-1",
		WorkflowID:   runID,
		SegmentIndex: 2,
		Status:       models.StatusQueued,
		OutputFile:   "rendered_none_1.mp4",
		Duration:     &duration,
	}
}

func TestTickRecordsProgress(t *testing.T) {
	t.Parallel()

	workflow := queuedWorkflow(50)
	runner := &fakeTrackerRunner{runs: map[int64]*jobrunner.WorkflowRun{
		50: {ID: 50, Status: "in_progress"},
	}}
	store := newFakeTrackerStore(workflow)
	tr := New(runner, store, &fakeObjects{}, quietLogger())

	tr.Tick(context.Background())

	if got := store.workflows[workflow.ID].Status; got != models.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", got)
	}
	if len(store.videos) != 0 {
		t.Errorf("no user video should exist before completion")
	}
}

func TestTickUnchangedStatusIsNoOp(t *testing.T) {
	t.Parallel()

	workflow := queuedWorkflow(50)
	runner := &fakeTrackerRunner{runs: map[int64]*jobrunner.WorkflowRun{
		50: {ID: 50, Status: "queued"},
	}}
	store := newFakeTrackerStore(workflow)
	tr := New(runner, store, &fakeObjects{}, quietLogger())

	tr.Tick(context.Background())

	if got := store.workflows[workflow.ID].Status; got != models.StatusQueued {
		t.Fatalf("status = %s, want queued untouched", got)
	}
}

func TestTickCompletesAndPublishesVideo(t *testing.T) {
	t.Parallel()

	workflow := queuedWorkflow(60)
	runner := &fakeTrackerRunner{
		runs: map[int64]*jobrunner.WorkflowRun{
			60: {ID: 60, Status: "completed", Conclusion: "success"},
		},
		artifacts: map[int64][]jobrunner.Artifact{
			60: {{ID: 1, Name: jobrunner.VideoArtifactName, ArchiveDownloadURL: "https://jobs.example.com/a1.zip"}},
		},
		archives: map[string][]byte{
			"https://jobs.example.com/a1.zip": videoArchive(t, "out.mp4"),
		},
	}
	store := newFakeTrackerStore(workflow)
	objects := &fakeObjects{}
	tr := New(runner, store, objects, quietLogger())

	tr.Tick(context.Background())

	final := store.workflows[workflow.ID]
	if final.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", final.Status)
	}
	if final.VideoURL == nil || !strings.HasPrefix(*final.VideoURL, "https://cdn.example.com/rendered/") {
		t.Fatalf("video URL = %v, want public rendered URL", final.VideoURL)
	}
	if len(store.videos) != 1 {
		t.Fatalf("expected 1 user video, got %d", len(store.videos))
	}
	video := store.videos[0]
	if video.UserID != "user-1" || video.Name != "Rendered Segment 3" {
		t.Errorf("user video = %+v", video)
	}
	if len(objects.paths) != 1 || !strings.HasPrefix(objects.paths[0], "rendered/") {
		t.Errorf("upload paths = %v", objects.paths)
	}
}

func TestTickSecondPassDoesNotDuplicate(t *testing.T) {
	t.Parallel()

	workflow := queuedWorkflow(60)
	runner := &fakeTrackerRunner{
		runs: map[int64]*jobrunner.WorkflowRun{
			60: {ID: 60, Status: "completed", Conclusion: "success"},
		},
		artifacts: map[int64][]jobrunner.Artifact{
			60: {{ID: 1, Name: jobrunner.VideoArtifactName, ArchiveDownloadURL: "https://jobs.example.com/a1.zip"}},
		},
		archives: map[string][]byte{
			"https://jobs.example.com/a1.zip": videoArchive(t, "out.mp4"),
		},
	}
	store := newFakeTrackerStore(workflow)
	tr := New(runner, store, &fakeObjects{}, quietLogger())

	tr.Tick(context.Background())
	tr.Tick(context.Background())

	if len(store.videos) != 1 {
		t.Fatalf("expected exactly 1 user video after repeated ticks, got %d", len(store.videos))
	}
}

func TestCompleteLosingConditionalUpdateSkipsInsert(t *testing.T) {
	t.Parallel()

	workflow := queuedWorkflow(60)
	runner := &fakeTrackerRunner{
		runs: map[int64]*jobrunner.WorkflowRun{
			60: {ID: 60, Status: "completed", Conclusion: "success"},
		},
		artifacts: map[int64][]jobrunner.Artifact{
			60: {{ID: 1, Name: jobrunner.VideoArtifactName, ArchiveDownloadURL: "https://jobs.example.com/a1.zip"}},
		},
		archives: map[string][]byte{
			"https://jobs.example.com/a1.zip": videoArchive(t, "out.mp4"),
		},
	}
	store := newFakeTrackerStore(workflow)
	tr := New(runner, store, &fakeObjects{}, quietLogger())

	// Simulate a concurrent tick winning the terminal transition between
	// the poll read and the conditional update.
	stale := *workflow
	store.workflows[workflow.ID].Status = models.StatusCompleted

	if err := tr.complete(context.Background(), stale); err != nil {
		t.Fatalf("complete returned error: %v", err)
	}
	if len(store.videos) != 0 {
		t.Fatalf("losing conditional update must not insert a user video")
	}
}

func TestTickFailedConclusion(t *testing.T) {
	t.Parallel()

	workflow := queuedWorkflow(70)
	runner := &fakeTrackerRunner{runs: map[int64]*jobrunner.WorkflowRun{
		70: {ID: 70, Status: "completed", Conclusion: "failure"},
	}}
	store := newFakeTrackerStore(workflow)
	tr := New(runner, store, &fakeObjects{}, quietLogger())

	tr.Tick(context.Background())

	if got := store.workflows[workflow.ID].Status; got != models.StatusFailed {
		t.Fatalf("status = %s, want failed", got)
	}
	if len(store.videos) != 0 {
		t.Errorf("failed run must not produce a user video")
	}
}

func TestTickMissingArtifactFails(t *testing.T) {
	t.Parallel()

	workflow := queuedWorkflow(80)
	runner := &fakeTrackerRunner{
		runs: map[int64]*jobrunner.WorkflowRun{
			80: {ID: 80, Status: "completed", Conclusion: "success"},
		},
		artifacts: map[int64][]jobrunner.Artifact{
			80: {{ID: 1, Name: "logs", ArchiveDownloadURL: "https://jobs.example.com/logs.zip"}},
		},
	}
	store := newFakeTrackerStore(workflow)
	tr := New(runner, store, &fakeObjects{}, quietLogger())

	tr.Tick(context.Background())

	if got := store.workflows[workflow.ID].Status; got != models.StatusFailed {
		t.Fatalf("status = %s, want failed when the video artifact is missing", got)
	}
}

func TestTickArchiveWithoutVideoFails(t *testing.T) {
	t.Parallel()

	workflow := queuedWorkflow(90)
	runner := &fakeTrackerRunner{
		runs: map[int64]*jobrunner.WorkflowRun{
			90: {ID: 90, Status: "completed", Conclusion: "success"},
		},
		artifacts: map[int64][]jobrunner.Artifact{
			90: {{ID: 1, Name: jobrunner.VideoArtifactName, ArchiveDownloadURL: "https://jobs.example.com/bad.zip"}},
		},
		archives: map[string][]byte{
			"https://jobs.example.com/bad.zip": videoArchive(t, "report.txt"),
		},
	}
	store := newFakeTrackerStore(workflow)
	tr := New(runner, store, &fakeObjects{}, quietLogger())

	tr.Tick(context.Background())

	if got := store.workflows[workflow.ID].Status; got != models.StatusFailed {
		t.Fatalf("status = %s, want failed when archive has no video", got)
	}
}

func TestTickUploadFailureFails(t *testing.T) {
	t.Parallel()

	workflow := queuedWorkflow(95)
	runner := &fakeTrackerRunner{
		runs: map[int64]*jobrunner.WorkflowRun{
			95: {ID: 95, Status: "completed", Conclusion: "success"},
		},
		artifacts: map[int64][]jobrunner.Artifact{
			95: {{ID: 1, Name: jobrunner.VideoArtifactName, ArchiveDownloadURL: "https://jobs.example.com/a.zip"}},
		},
		archives: map[string][]byte{
			"https://jobs.example.com/a.zip": videoArchive(t, "out.mp4"),
		},
	}
	store := newFakeTrackerStore(workflow)
	tr := New(runner, store, &fakeObjects{err: errors.New("bucket down")}, quietLogger())

	tr.Tick(context.Background())

	if got := store.workflows[workflow.ID].Status; got != models.StatusFailed {
		t.Fatalf("status = %s, want failed on upload error", got)
	}
	if len(store.videos) != 0 {
		t.Errorf("no user video should exist when the upload failed")
	}
}

func TestExtractVideo(t *testing.T) {
	t.Parallel()

	data, err := extractVideo(videoArchive(t, "clip.mp4"))
	if err != nil {
		t.Fatalf("extractVideo returned error: %v", err)
	}
	if string(data) != "rendered video bytes" {
		t.Errorf("extracted %q", data)
	}

	if _, err := extractVideo([]byte("not a zip")); err == nil {
		t.Error("expected error for a corrupt archive")
	}
}
