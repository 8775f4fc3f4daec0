package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"videosync/utils"
)

// ListWorkflows returns a user's render workflows, newest first.
func (h *ApplicationHandler) ListWorkflows(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "User ID is required")
	}

	workflows, err := h.DB.ListWorkflowsByUser(userID)
	if err != nil {
		h.Logger.Errorf("Error fetching workflows for user %s: %v", userID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not retrieve render workflows")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, workflows)
}

// ListUserVideos returns a user's rendered videos, newest first.
func (h *ApplicationHandler) ListUserVideos(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "User ID is required")
	}

	videos, err := h.DB.ListUserVideos(userID)
	if err != nil {
		h.Logger.Errorf("Error fetching videos for user %s: %v", userID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not retrieve videos")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, videos)
}

// DeleteUserVideo removes a rendered video. The workflow history row
// that produced it is append-only and stays.
func (h *ApplicationHandler) DeleteUserVideo(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "User ID is required")
	}

	videoID, err := uuid.Parse(c.Params("videoId"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid video ID format")
	}

	deleted, err := h.DB.DeleteUserVideo(userID, videoID)
	if err != nil {
		h.Logger.Errorf("Error deleting video %s for user %s: %v", videoID, userID, err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Error deleting video")
	}
	if !deleted {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Video not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
