package handlers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"videosync/config"
	"videosync/internal/store"
	"videosync/models"
	"videosync/utils"
)

const sourceVideoBucket = "source-videos"

// InitiateUploadRequest defines the expected JSON structure for initiating a video upload.
type InitiateUploadRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	FileName    string `json:"file_name" validate:"required"`
	ContentType string `json:"content_type" validate:"required"` // e.g., "video/mp4"
}

// InitiateVideoUpload creates a MediaAsset record and a signed URL the
// client uses to PUT the file into the source bucket.
func (h *ApplicationHandler) InitiateVideoUpload(c *fiber.Ctx) error {
	payload := new(InitiateUploadRequest)
	if err := c.BodyParser(payload); err != nil {
		h.Logger.Errorf("Error parsing initiate upload payload: %v", err)
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}

	if err := validate.Struct(payload); err != nil {
		errors := utils.FormatValidationErrors(err)
		return utils.RespondWithError(c, fiber.StatusBadRequest, strings.Join(errors, ", "))
	}

	newAssetID := uuid.New()
	now := time.Now().UTC()
	fileExtension := filepath.Ext(payload.FileName)
	// storagePath keeps names unique in the bucket using the asset's UUID.
	storagePath := fmt.Sprintf("%s/%s%s", payload.UserID, newAssetID.String(), fileExtension)

	format := payload.ContentType
	asset := models.MediaAsset{
		ID:          newAssetID,
		UserID:      payload.UserID,
		Title:       payload.FileName,
		StoragePath: storagePath,
		Format:      &format,
		Status:      "pending_upload",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.DB.InsertMediaAsset(asset); err != nil {
		h.Logger.Errorf("Error creating media asset record: %v", err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not create media asset record")
	}

	signedUploadURL, err := config.SupabaseClient.Storage.CreateSignedUploadUrl(sourceVideoBucket, storagePath)
	if err != nil {
		h.Logger.Errorf("Error generating signed upload URL for path '%s': %v", storagePath, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not generate upload URL")
	}

	uploadURL := signedUploadURL.Url
	if !strings.HasPrefix(uploadURL, "http") {
		uploadURL = strings.TrimSuffix(config.GetSupabaseURL(), "/") + "/" + strings.TrimPrefix(uploadURL, "/")
	}

	h.Logger.Infof("Initiated upload for media asset %s", newAssetID)
	return utils.RespondWithJSON(c, fiber.StatusCreated, fiber.Map{
		"asset_id":     newAssetID,
		"upload_url":   uploadURL,
		"method":       "PUT",
		"storage_path": storagePath,
		"headers": fiber.Map{
			"Content-Type": payload.ContentType,
		},
	})
}

// SegmentVideoRequest controls how an asset is split.
type SegmentVideoRequest struct {
	Duration             *float64 `json:"duration,omitempty" validate:"omitempty,gt=0"`
	TargetSegmentSeconds float64  `json:"target_segment_seconds,omitempty" validate:"omitempty,gt=0"`
	VerticalCrop         bool     `json:"vertical_crop,omitempty"`
}

// SegmentVideo splits a previously uploaded asset into independently
// playable segments per the segmentation policy. Per-segment failures
// are skipped, so a partial result is a success.
func (h *ApplicationHandler) SegmentVideo(c *fiber.Ctx) error {
	videoID, err := uuid.Parse(c.Params("videoId"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid video ID format")
	}

	payload := new(SegmentVideoRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		errors := utils.FormatValidationErrors(err)
		return utils.RespondWithError(c, fiber.StatusBadRequest, strings.Join(errors, ", "))
	}

	asset, err := h.DB.GetMediaAsset(videoID)
	if err != nil {
		if err == store.ErrRecordNotFound {
			return utils.RespondWithError(c, fiber.StatusNotFound, "Video not found")
		}
		h.Logger.Errorf("Error fetching media asset %s: %v", videoID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to retrieve video details")
	}

	duration := 0.0
	if asset.Duration != nil {
		duration = *asset.Duration
	}
	if payload.Duration != nil {
		duration = *payload.Duration
	}
	if duration <= 0 {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Video duration is unknown; probe the asset or supply duration")
	}

	sourceURL := asset.StoragePath
	if asset.SourceURL != nil && *asset.SourceURL != "" {
		sourceURL = *asset.SourceURL
	} else {
		sourceURL = fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
			strings.TrimSuffix(config.GetSupabaseURL(), "/"), sourceVideoBucket, asset.StoragePath)
	}

	segments, err := h.Segmenter.Segment(c.Context(), sourceURL, duration, payload.TargetSegmentSeconds, payload.VerticalCrop)
	if err != nil {
		h.Logger.Errorf("Segmentation failed for asset %s: %v", videoID, err)
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Could not segment video: %v", err))
	}

	if len(segments) == 0 {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "All segments failed to materialize")
	}

	if err := h.DB.UpdateMediaAsset(videoID, map[string]interface{}{
		"status":     "segmented",
		"updated_at": time.Now().UTC(),
	}); err != nil {
		h.Logger.WithFields(logrus.Fields{
			"asset_id": videoID,
			"error":    err.Error(),
		}).Warn("Failed to record segmented status")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"asset_id": videoID,
		"segments": segments,
	})
}
