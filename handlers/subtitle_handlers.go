package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"videosync/internal/subtitles"
	"videosync/utils"
)

// TranscribeSegmentRequest asks for aligned subtitles for one segment.
// SegmentStart is the segment's absolute offset in the source timeline;
// pass 0 when VideoURL points at the segment's own media.
type TranscribeSegmentRequest struct {
	VideoURL        string  `json:"video_url" validate:"required,url"`
	SegmentStart    float64 `json:"segment_start" validate:"gte=0"`
	SegmentDuration float64 `json:"segment_duration" validate:"required,gt=0"`
}

// TranscribeSegment obtains a transcription for a segment's media and
// returns segment-local subtitle cues. Subtitle generation is
// best-effort: transcription failures yield a sentinel cue with HTTP
// 200, never an error response.
func (h *ApplicationHandler) TranscribeSegment(c *fiber.Ctx) error {
	payload := new(TranscribeSegmentRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		errors := utils.FormatValidationErrors(err)
		return utils.RespondWithError(c, fiber.StatusBadRequest, strings.Join(errors, ", "))
	}

	transcription, err := h.Speech.Transcribe(c.Context(), payload.VideoURL)
	if err != nil {
		h.Logger.WithFields(logrus.Fields{
			"video_url": payload.VideoURL,
			"error":     err.Error(),
		}).Error("Transcription failed, emitting sentinel cue")
		return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
			"subtitles": subtitles.ErrorCues(payload.SegmentDuration),
		})
	}

	cues := subtitles.Align(transcription, payload.SegmentStart, payload.SegmentDuration)
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"subtitles": cues,
	})
}
