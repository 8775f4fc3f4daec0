package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"videosync/internal/imagegen"
	"videosync/utils"
)

// GenerateImagesRequest proxies an image-generation prediction.
type GenerateImagesRequest struct {
	ModelPath string                 `json:"model_path"`
	Input     map[string]interface{} `json:"input"`
}

// GenerateImages forwards the prediction to the image-generation
// service. Vendor error payloads are passed through with their original
// status code.
func (h *ApplicationHandler) GenerateImages(c *fiber.Ctx) error {
	payload := new(GenerateImagesRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}

	if payload.ModelPath == "" || payload.Input == nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Missing model path or input")
	}

	raw, err := h.Images.Generate(c.Context(), payload.ModelPath, payload.Input)
	if err != nil {
		var vendorErr *imagegen.VendorError
		if errors.As(err, &vendorErr) {
			h.Logger.Errorf("Image generation vendor error: %v", vendorErr)
			return c.Status(vendorErr.StatusCode).JSON(fiber.Map{
				"status":  "error",
				"message": vendorErr.Detail,
				"raw":     vendorErr.Raw,
			})
		}
		h.Logger.Errorf("Image generation failed: %v", err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Image generation failed")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(raw)
}

// SynthesizeSpeechRequest converts narration text into hosted audio.
type SynthesizeSpeechRequest struct {
	Text         string `json:"text" validate:"required"`
	VoiceID      string `json:"voice_id" validate:"required"`
	OutputFormat string `json:"output_format,omitempty"`
}

// SynthesizeSpeech generates audio for the given text and voice, stores
// it, and returns the public URL.
func (h *ApplicationHandler) SynthesizeSpeech(c *fiber.Ctx) error {
	payload := new(SynthesizeSpeechRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		errs := utils.FormatValidationErrors(err)
		return utils.RespondWithError(c, fiber.StatusBadRequest, strings.Join(errs, ", "))
	}

	audio, err := h.Voice.Synthesize(c.Context(), payload.Text, payload.VoiceID, payload.OutputFormat)
	if err != nil {
		h.Logger.Errorf("Speech synthesis failed: %v", err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Speech synthesis failed")
	}

	objectPath := fmt.Sprintf("audio/speech_%s.mp3", uuid.NewString())
	audioURL, err := h.Objects.Upload(c.Context(), objectPath, bytes.NewReader(audio), "audio/mpeg")
	if err != nil {
		h.Logger.Errorf("Failed to store synthesized audio: %v", err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not store synthesized audio")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"audio_url": audioURL,
	})
}
