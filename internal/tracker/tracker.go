package tracker

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"videosync/config"
	"videosync/internal/jobrunner"
	"videosync/internal/storage"
	"videosync/models"
)

// JobRunner is the slice of the job system the tracker needs.
type JobRunner interface {
	GetRun(ctx context.Context, runID int64) (*jobrunner.WorkflowRun, error)
	ListArtifacts(ctx context.Context, runID int64) ([]jobrunner.Artifact, error)
	DownloadArtifact(ctx context.Context, archiveURL string) ([]byte, error)
}

// WorkflowStore is the persistence surface the tracker needs.
type WorkflowStore interface {
	ListActiveWorkflows() ([]models.RenderWorkflow, error)
	TransitionWorkflow(id uuid.UUID, from, to models.WorkflowStatus, fields map[string]interface{}) (bool, error)
	InsertUserVideo(video models.UserVideo) error
}

// Tracker resolves outstanding render workflows to terminal states by
// polling the job system, and materializes completed renders as user
// videos.
type Tracker struct {
	runner   JobRunner
	store    WorkflowStore
	objects  storage.ObjectStore
	logger   *logrus.Logger
	interval time.Duration
}

func New(runner JobRunner, store WorkflowStore, objects storage.ObjectStore, logger *logrus.Logger) *Tracker {
	return &Tracker{
		runner:   runner,
		store:    store,
		objects:  objects,
		logger:   logger,
		interval: config.TrackerPollInterval,
	}
}

// Run polls until the context is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.WithField("interval", t.interval.String()).Info("Render job tracker started")
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Render job tracker stopped")
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick performs one polling pass over every non-terminal workflow.
// Workflows are processed sequentially; a failure on one does not stop
// the pass.
func (t *Tracker) Tick(ctx context.Context) {
	workflows, err := t.store.ListActiveWorkflows()
	if err != nil {
		t.logger.WithField("error", err.Error()).Error("Failed to load active workflows")
		return
	}

	for _, workflow := range workflows {
		if workflow.Status.Terminal() {
			// Terminal states are absorbing; nothing to re-process.
			continue
		}
		if err := t.poll(ctx, workflow); err != nil {
			t.logger.WithFields(logrus.Fields{
				"workflow_run_id": workflow.WorkflowID,
				"error":           err.Error(),
			}).Error("Polling workflow failed")
		}
	}
}

func (t *Tracker) poll(ctx context.Context, workflow models.RenderWorkflow) error {
	run, err := t.runner.GetRun(ctx, workflow.WorkflowID)
	if err != nil {
		return fmt.Errorf("fetch run status: %w", err)
	}

	if run.Status != "completed" {
		newStatus := models.StatusInProgress
		if run.Status == "queued" {
			newStatus = models.StatusQueued
		}
		if newStatus == workflow.Status {
			return nil
		}
		_, err := t.store.TransitionWorkflow(workflow.ID, workflow.Status, newStatus, nil)
		if err != nil {
			return fmt.Errorf("record status %s: %w", newStatus, err)
		}
		return nil
	}

	if run.Conclusion != "success" {
		return t.fail(workflow, fmt.Sprintf("run concluded with %s", run.Conclusion))
	}

	return t.complete(ctx, workflow)
}

// complete retrieves the rendered artifact, publishes it to object
// storage, and records a user video. Any sub-step failure maps the
// workflow to failed so it is never polled again.
func (t *Tracker) complete(ctx context.Context, workflow models.RenderWorkflow) error {
	artifacts, err := t.runner.ListArtifacts(ctx, workflow.WorkflowID)
	if err != nil {
		return t.fail(workflow, fmt.Sprintf("list artifacts: %v", err))
	}

	var videoArtifact *jobrunner.Artifact
	for i := range artifacts {
		if artifacts[i].Name == jobrunner.VideoArtifactName {
			videoArtifact = &artifacts[i]
			break
		}
	}
	if videoArtifact == nil {
		return t.fail(workflow, "no rendered-video artifact found")
	}

	archive, err := t.runner.DownloadArtifact(ctx, videoArtifact.ArchiveDownloadURL)
	if err != nil {
		return t.fail(workflow, fmt.Sprintf("download artifact: %v", err))
	}

	videoBytes, err := extractVideo(archive)
	if err != nil {
		return t.fail(workflow, err.Error())
	}

	fileName := fmt.Sprintf("rendered_%d_%d.mp4", workflow.SegmentIndex, time.Now().UnixMilli())
	publicURL, err := t.objects.Upload(ctx, "rendered/"+fileName, bytes.NewReader(videoBytes), "video/mp4")
	if err != nil {
		return t.fail(workflow, fmt.Sprintf("upload rendered video: %v", err))
	}

	fields := map[string]interface{}{"video_url": publicURL}
	if workflow.Duration != nil {
		fields["duration"] = *workflow.Duration
	}

	// The conditional transition is the idempotence guard: if another
	// tick already moved this row to a terminal state, no row matches
	// and the user video must not be inserted again.
	updated, err := t.store.TransitionWorkflow(workflow.ID, workflow.Status, models.StatusCompleted, fields)
	if err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	if !updated {
		t.logger.WithField("workflow_run_id", workflow.WorkflowID).
			Warn("Workflow already transitioned, skipping video insert")
		return nil
	}

	video := models.UserVideo{
		ID:        uuid.New(),
		UserID:    workflow.UserID,
		VideoURL:  publicURL,
		Name:      fmt.Sprintf("Rendered Segment %d", workflow.SegmentIndex+1),
		Duration:  workflow.Duration,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.store.InsertUserVideo(video); err != nil {
		return fmt.Errorf("insert user video: %w", err)
	}

	t.logger.WithFields(logrus.Fields{
		"workflow_run_id": workflow.WorkflowID,
		"video_url":       publicURL,
	}).Info("Render workflow completed")
	return nil
}

func (t *Tracker) fail(workflow models.RenderWorkflow, reason string) error {
	t.logger.WithFields(logrus.Fields{
		"workflow_run_id": workflow.WorkflowID,
		"reason":          reason,
	}).Warn("Render workflow failed")

	_, err := t.store.TransitionWorkflow(workflow.ID, workflow.Status, models.StatusFailed, nil)
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// extractVideo unpacks the artifact archive and returns the single video
// file inside it.
func extractVideo(archive []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open artifact archive: %w", err)
	}

	for _, file := range reader.File {
		if !strings.HasSuffix(file.Name, ".mp4") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s in artifact archive: %w", file.Name, err)
		}
		defer rc.Close()

		videoBytes, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s from artifact archive: %w", file.Name, err)
		}
		return videoBytes, nil
	}
	return nil, fmt.Errorf("no video file found in artifact archive")
}
