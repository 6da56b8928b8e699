package controller

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"chatwave/models"
	"chatwave/tenancy"
	"chatwave/utils"
)

type ChannelController struct {
	DB      *gorm.DB
	Tenancy *tenancy.Service
	Logger  *logrus.Entry
}

func NewChannelController(db *gorm.DB, tenancyService *tenancy.Service, logger *logrus.Entry) *ChannelController {
	return &ChannelController{
		DB:      db,
		Tenancy: tenancyService,
		Logger:  logger,
	}
}

// CreateChannel creates a channel in the caller's workspace. Names are
// trimmed, non-empty and unique per workspace.
func (cc *ChannelController) CreateChannel(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name string `json:"name" validate:"required,max=80"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Channel name must not be empty", nil)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	membership, err := cc.Tenancy.RequireMembership(user.ID)
	if err != nil {
		return tenancyError(c, err)
	}

	channel := models.Channel{
		WorkspaceID: membership.WorkspaceID,
		Name:        name,
		CreatedBy:   user.ID,
	}
	if err := cc.DB.Create(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Channel already exists", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create channel", err)
	}

	cc.Logger.WithFields(logrus.Fields{
		"workspace_id": membership.WorkspaceID,
		"channel":      name,
	}).Info("Channel created")
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(channel))
}

// GetChannels lists the channels of the caller's workspace.
func (cc *ChannelController) GetChannels(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return emptyList(c)
	}

	membership, err := cc.Tenancy.ResolveMembership(user.ID)
	if err != nil {
		return tenancyError(c, err)
	}
	if membership == nil {
		return emptyList(c)
	}

	var channels []models.Channel
	if err := cc.DB.Where("workspace_id = ?", membership.WorkspaceID).
		Order("name asc").
		Find(&channels).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list channels", err)
	}

	return c.JSON(utils.SuccessResponse(channels))
}

// GetChannel loads one channel, verifying it belongs to the caller's
// workspace before returning it.
func (cc *ChannelController) GetChannel(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return c.JSON(utils.SuccessResponse(nil))
	}

	membership, err := cc.Tenancy.ResolveMembership(user.ID)
	if err != nil {
		return tenancyError(c, err)
	}
	if membership == nil {
		return c.JSON(utils.SuccessResponse(nil))
	}

	channel, err := loadAuthorizedChannel(c, cc.DB, membership, c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(utils.SuccessResponse(channel))
}
