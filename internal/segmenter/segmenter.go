package segmenter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"videosync/config"
	"videosync/internal/storage"
	"videosync/models"
)

// ErrInvalidDuration is returned when an asset has a non-positive duration.
var ErrInvalidDuration = errors.New("asset duration must be positive")

// Span is one planned time slice of an asset, before materialization.
type Span struct {
	Index     int
	StartTime float64
	Duration  float64
}

// PlanSegments computes the deterministic partition of an asset:
//   - duration > 300s: fixed 30s spans, capped at 4.
//   - 30s < duration <= 300s: max(2, ceil(duration/target)) equal spans.
//   - duration <= 30s: a single span covering the whole asset.
func PlanSegments(duration, targetSegmentSeconds float64) ([]Span, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if targetSegmentSeconds <= 0 {
		targetSegmentSeconds = config.DefaultTargetSegmentSeconds
	}

	if duration > config.LongAssetThreshold {
		var spans []Span
		for i := 0; i < config.MaxFixedSegments; i++ {
			start := float64(i) * config.FixedSegmentSeconds
			if start >= duration {
				break
			}
			spans = append(spans, Span{
				Index:     i,
				StartTime: start,
				Duration:  math.Min(config.FixedSegmentSeconds, duration-start),
			})
		}
		return spans, nil
	}

	if duration <= config.FixedSegmentSeconds {
		return []Span{{Index: 0, StartTime: 0, Duration: duration}}, nil
	}

	count := int(math.Ceil(duration / targetSegmentSeconds))
	if count < 2 {
		count = 2
	}
	segmentDuration := duration / float64(count)

	spans := make([]Span, count)
	for i := 0; i < count; i++ {
		spans[i] = Span{
			Index:     i,
			StartTime: float64(i) * segmentDuration,
			Duration:  segmentDuration,
		}
	}
	return spans, nil
}

// Transcoder materializes one span of the input as an independently
// playable unit at the output path.
type Transcoder interface {
	ExtractSegment(ctx context.Context, input, output string, start, duration float64, verticalCrop bool) error
}

// Segmenter splits a source asset into materialized segments.
type Segmenter struct {
	transcoder Transcoder
	store      storage.ObjectStore
	logger     *logrus.Logger
	workDir    string
}

func New(transcoder Transcoder, store storage.ObjectStore, logger *logrus.Logger, workDir string) *Segmenter {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Segmenter{transcoder: transcoder, store: store, logger: logger, workDir: workDir}
}

// Segment plans and materializes segments for the given source media.
// Spans are processed sequentially; a span whose transcode or upload
// fails is logged and skipped, never retried, so the returned slice is
// contiguous by index only when every span succeeds.
func (s *Segmenter) Segment(ctx context.Context, sourceURL string, duration, targetSegmentSeconds float64, verticalCrop bool) ([]models.Segment, error) {
	spans, err := PlanSegments(duration, targetSegmentSeconds)
	if err != nil {
		return nil, err
	}

	segments := make([]models.Segment, 0, len(spans))
	for _, span := range spans {
		segment, err := s.materialize(ctx, sourceURL, span, verticalCrop)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"segment_index": span.Index,
				"start_time":    span.StartTime,
				"duration":      span.Duration,
				"error":         err.Error(),
			}).Error("Segment materialization failed, skipping")
			continue
		}
		segments = append(segments, *segment)
	}
	return segments, nil
}

func (s *Segmenter) materialize(ctx context.Context, sourceURL string, span Span, verticalCrop bool) (*models.Segment, error) {
	localPath := filepath.Join(s.workDir, fmt.Sprintf("segment_%d_%s.mp4", span.Index, uuid.NewString()))
	defer os.Remove(localPath)

	if err := s.transcoder.ExtractSegment(ctx, sourceURL, localPath, span.StartTime, span.Duration, verticalCrop); err != nil {
		return nil, fmt.Errorf("transcode segment %d: %w", span.Index, err)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open transcoded segment %d: %w", span.Index, err)
	}
	defer file.Close()

	objectPath := fmt.Sprintf("segments/%s", filepath.Base(localPath))
	publicURL, err := s.store.Upload(ctx, objectPath, file, "video/mp4")
	if err != nil {
		return nil, fmt.Errorf("upload segment %d: %w", span.Index, err)
	}

	return &models.Segment{
		Index:     span.Index,
		StartTime: span.StartTime,
		Duration:  span.Duration,
		VideoURL:  publicURL,
	}, nil
}
