package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"videosync/config"
	"videosync/internal/jobrunner"
	"videosync/models"
)

// ErrNoWorkflowsTriggered is the aggregate failure returned only when
// zero segments in a batch produced a render workflow.
var ErrNoWorkflowsTriggered = errors.New("no workflows triggered successfully")

// validStyles is the fixed set of supported subtitle styles.
var validStyles = map[string]struct{}{
	"none":       {},
	"hormozi":    {},
	"abdaal":     {},
	"neonGlow":   {},
	"retroWave":  {},
	"minimalPop": {},
}

// RenderSegment is one unit of a bulk render request.
type RenderSegment struct {
	SegmentIndex  int                  `json:"segment_index"`
	VideoURLs     []string             `json:"video_urls,omitempty"`
	Images        []string             `json:"images,omitempty"`
	Subtitles     []models.SubtitleCue `json:"subtitles,omitempty"`
	StyleType     string               `json:"style_type"`
	AudioURL      string               `json:"audio_url,omitempty"`
	Duration      float64              `json:"duration"`
	ImageDuration float64              `json:"image_duration,omitempty"`
	Title         string               `json:"title,omitempty"`
	Description   string               `json:"description,omitempty"`
}

// renderProps is the client payload handed to the rendering workflow.
// Field names match what the workflow's render step expects.
type renderProps struct {
	VideoURLs     []string             `json:"videoUrls"`
	Subtitles     []models.SubtitleCue `json:"subtitles"`
	StyleType     string               `json:"styleType"`
	Images        []string             `json:"images"`
	AudioURL      string               `json:"audioUrl"`
	AudioVolume   float64              `json:"audioVolume"`
	Duration      float64              `json:"duration"`
	OutputFile    string               `json:"outputFile"`
	ImageDuration float64              `json:"imageDuration,omitempty"`
}

// JobRunner is the slice of the job system the dispatcher needs.
type JobRunner interface {
	Dispatch(ctx context.Context, eventType string, payload interface{}) error
	ListRuns(ctx context.Context) ([]jobrunner.WorkflowRun, error)
}

// WorkflowStore persists dispatched workflow records.
type WorkflowStore interface {
	InsertWorkflow(workflow models.RenderWorkflow) error
}

// Result reports the outcome of a bulk dispatch. Partial success is
// expected; Failed lists the segment indices that produced no workflow.
type Result struct {
	WorkflowRunIDs []int64 `json:"workflow_run_ids"`
	Failed         []int   `json:"failed_segments,omitempty"`
}

// Dispatcher submits render jobs for segments and correlates each
// dispatch with the workflow run it triggered.
type Dispatcher struct {
	runner   JobRunner
	store    WorkflowStore
	logger   *logrus.Logger
	attempts int
	interval time.Duration
}

func New(runner JobRunner, store WorkflowStore, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		runner:   runner,
		store:    store,
		logger:   logger,
		attempts: config.RunDiscoveryAttempts,
		interval: config.RunDiscoveryInterval,
	}
}

// SetDiscoveryBudget overrides the run-id discovery attempt budget.
// Used by tests to avoid real waiting.
func (d *Dispatcher) SetDiscoveryBudget(attempts int, interval time.Duration) {
	d.attempts = attempts
	d.interval = interval
}

// Dispatch processes the segments independently and sequentially. A
// segment that fails validation, dispatch, or run-id discovery is
// skipped; the batch errors only when no segment succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, segments []RenderSegment, userID string) (*Result, error) {
	result := &Result{}

	for _, segment := range segments {
		runID, err := d.dispatchOne(ctx, segment, userID)
		if err != nil {
			d.logger.WithFields(logrus.Fields{
				"segment_index": segment.SegmentIndex,
				"user_id":       userID,
				"error":         err.Error(),
			}).Warn("Segment dispatch failed")
			result.Failed = append(result.Failed, segment.SegmentIndex)
			continue
		}
		result.WorkflowRunIDs = append(result.WorkflowRunIDs, runID)
	}

	if len(result.WorkflowRunIDs) == 0 {
		return nil, ErrNoWorkflowsTriggered
	}
	return result, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, segment RenderSegment, userID string) (int64, error) {
	if err := validateSegment(segment); err != nil {
		return 0, err
	}

	subtitles := segment.Subtitles
	if malformed(subtitles) {
		d.logger.WithField("segment_index", segment.SegmentIndex).
			Warn("Malformed subtitles on segment, substituting empty list")
		subtitles = []models.SubtitleCue{}
	}
	if subtitles == nil {
		subtitles = []models.SubtitleCue{}
	}

	props := renderProps{
		VideoURLs:   segment.VideoURLs,
		Subtitles:   subtitles,
		StyleType:   segment.StyleType,
		Images:      segment.Images,
		AudioURL:    segment.AudioURL,
		AudioVolume: 1,
		Duration:    segment.Duration,
		OutputFile:  fmt.Sprintf("rendered_%s_%d.mp4", segment.StyleType, time.Now().UnixMilli()),
	}
	if props.VideoURLs == nil {
		props.VideoURLs = []string{}
	}
	if props.Images == nil {
		props.Images = []string{}
	}
	if len(segment.Images) > 0 {
		props.ImageDuration = segment.ImageDuration
		if props.ImageDuration <= 0 {
			props.ImageDuration = 3
		}
	}

	if err := d.runner.Dispatch(ctx, jobrunner.RenderEventType, props); err != nil {
		return 0, fmt.Errorf("dispatch render event: %w", err)
	}

	runID, err := d.discoverRunID(ctx)
	if err != nil {
		return 0, err
	}

	duration := segment.Duration
	workflow := models.RenderWorkflow{
		ID:           uuid.New(),
		UserID:       userID,
		WorkflowID:   runID,
		SegmentIndex: segment.SegmentIndex,
		Status:       models.StatusQueued,
		OutputFile:   props.OutputFile,
		Duration:     &duration,
		CreatedAt:    time.Now().UTC(),
	}
	if segment.Title != "" {
		workflow.Title = &segment.Title
	}
	if segment.Description != "" {
		workflow.Description = &segment.Description
	}

	if err := d.store.InsertWorkflow(workflow); err != nil {
		return 0, fmt.Errorf("persist workflow record: %w", err)
	}

	d.logger.WithFields(logrus.Fields{
		"segment_index":   segment.SegmentIndex,
		"workflow_run_id": runID,
	}).Info("Render workflow dispatched")
	return runID, nil
}

// discoverRunID polls the run list for the run the just-submitted
// dispatch triggered. The dispatch acknowledgement carries no run id, so
// matching is heuristic: most recent repository_dispatch run that has
// not completed. The loop is bounded; giving up does not cancel the
// underlying run.
func (d *Dispatcher) discoverRunID(ctx context.Context) (int64, error) {
	for attempt := 0; attempt < d.attempts; attempt++ {
		runs, err := d.runner.ListRuns(ctx)
		if err != nil {
			return 0, fmt.Errorf("list workflow runs: %w", err)
		}

		for _, run := range runs {
			if run.Event == "repository_dispatch" && run.Status != "completed" {
				return run.ID, nil
			}
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(d.interval):
		}
	}
	return 0, fmt.Errorf("workflow run not discovered within %d attempts", d.attempts)
}

func validateSegment(segment RenderSegment) error {
	if _, ok := validStyles[segment.StyleType]; !ok {
		return fmt.Errorf("unsupported style type %q", segment.StyleType)
	}
	if segment.Duration <= 0 {
		return fmt.Errorf("segment duration must be positive, got %v", segment.Duration)
	}
	if len(segment.VideoURLs) == 0 && len(segment.Images) == 0 {
		return errors.New("segment requires a video source or a non-empty image list")
	}
	return nil
}

// malformed reports whether any subtitle entry is unusable. The whole
// list is replaced rather than silently repaired.
func malformed(cues []models.SubtitleCue) bool {
	for _, cue := range cues {
		if cue.Text == "" || cue.Start < 0 || cue.End <= cue.Start {
			return true
		}
	}
	return false
}
