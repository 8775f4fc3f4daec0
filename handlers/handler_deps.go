package handlers

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"videosync/internal/dispatcher"
	"videosync/internal/storage"
	"videosync/models"
)

var validate = validator.New()

// SpeechClient defines the transcription operation handlers expect.
// This allows for decoupling and easier testing.
type SpeechClient interface {
	Transcribe(ctx context.Context, mediaURL string) (*models.Transcription, error)
}

// VideoSegmenter splits a source asset into materialized segments.
type VideoSegmenter interface {
	Segment(ctx context.Context, sourceURL string, duration, targetSegmentSeconds float64, verticalCrop bool) ([]models.Segment, error)
}

// RenderDispatcher submits render jobs for a batch of segments.
type RenderDispatcher interface {
	Dispatch(ctx context.Context, segments []dispatcher.RenderSegment, userID string) (*dispatcher.Result, error)
}

// ImageGenerator runs a prediction against the image-generation service.
type ImageGenerator interface {
	Generate(ctx context.Context, modelPath string, input map[string]interface{}) (json.RawMessage, error)
}

// SpeechSynthesizer converts text into audio bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID, outputFormat string) ([]byte, error)
}

// DataStore is the persistence surface the handlers need.
type DataStore interface {
	InsertMediaAsset(asset models.MediaAsset) error
	GetMediaAsset(id uuid.UUID) (*models.MediaAsset, error)
	UpdateMediaAsset(id uuid.UUID, fields map[string]interface{}) error
	ListWorkflowsByUser(userID string) ([]models.RenderWorkflow, error)
	ListUserVideos(userID string) ([]models.UserVideo, error)
	DeleteUserVideo(userID string, videoID uuid.UUID) (bool, error)
}

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Logger    *logrus.Logger
	DB        DataStore
	Objects   storage.ObjectStore
	Speech    SpeechClient
	Segmenter VideoSegmenter
	Renderer  RenderDispatcher
	Images    ImageGenerator
	Voice     SpeechSynthesizer
}

// NewApplicationHandler creates a new ApplicationHandler with the given dependencies.
func NewApplicationHandler(
	logger *logrus.Logger,
	db DataStore,
	objects storage.ObjectStore,
	speech SpeechClient,
	segmenter VideoSegmenter,
	renderer RenderDispatcher,
	images ImageGenerator,
	voice SpeechSynthesizer,
) *ApplicationHandler {
	return &ApplicationHandler{
		Logger:    logger,
		DB:        db,
		Objects:   objects,
		Speech:    speech,
		Segmenter: segmenter,
		Renderer:  renderer,
		Images:    images,
		Voice:     voice,
	}
}
