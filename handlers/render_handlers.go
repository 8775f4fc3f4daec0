package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"videosync/internal/dispatcher"
	"videosync/utils"
)

// BulkRenderRequest submits a batch of segments for rendering.
type BulkRenderRequest struct {
	UserID   string                     `json:"user_id"`
	Segments []dispatcher.RenderSegment `json:"segments"`
}

// BulkRender dispatches a render job per segment. Segments are processed
// independently; partial success is reported, and the request fails only
// when no segment produced a workflow.
func (h *ApplicationHandler) BulkRender(c *fiber.Ctx) error {
	payload := new(BulkRenderRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}

	if payload.UserID == "" || len(payload.Segments) == 0 {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Segments array and user_id are required")
	}

	result, err := h.Renderer.Dispatch(c.Context(), payload.Segments, payload.UserID)
	if err != nil {
		if errors.Is(err, dispatcher.ErrNoWorkflowsTriggered) {
			return utils.RespondWithError(c, fiber.StatusInternalServerError, "No workflows triggered successfully")
		}
		h.Logger.Errorf("Bulk render dispatch failed for user %s: %v", payload.UserID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Render dispatch failed")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, result)
}
