package controller

import (
	"errors"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"chatwave/models"
	"chatwave/tenancy"
	"chatwave/utils"
)

// currentUser returns the authenticated caller, or nil on routes using
// OptionalAuth where no token was supplied.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

// tenancyError maps tenancy layer failures to HTTP responses. A
// membership conflict is a data-integrity violation: it is reported to
// Sentry and surfaced as a 500, never downgraded to a best-effort pick.
func tenancyError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, tenancy.ErrMembershipConflict):
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "workspace membership conflict", nil)
	case errors.Is(err, tenancy.ErrNoMembership):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "no workspace membership found", nil)
	default:
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "internal error", err)
	}
}

// emptyList is the degraded query response for anonymous or
// workspace-less callers.
func emptyList(c *fiber.Ctx) error {
	return c.JSON(utils.SuccessResponse([]interface{}{}))
}

// loadAuthorizedChannel loads a channel by id and enforces the one
// authorization rule in the system: the entity's workspace must match
// the caller's membership. On failure the fiber error response has
// already been written; callers return it as-is.
func loadAuthorizedChannel(c *fiber.Ctx, db *gorm.DB, membership *models.WorkspaceMember, id string) (*models.Channel, error) {
	channelID := utils.ParseUint(id)
	if channelID == 0 {
		return nil, utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid channel id", nil)
	}

	var channel models.Channel
	if err := db.First(&channel, channelID).Error; err != nil {
		return nil, utils.ErrorResponse(c, fiber.StatusNotFound, "Channel not found", nil)
	}

	if channel.WorkspaceID != membership.WorkspaceID {
		return nil, utils.ErrorResponse(c, fiber.StatusForbidden, "not authorized", nil)
	}

	return &channel, nil
}
