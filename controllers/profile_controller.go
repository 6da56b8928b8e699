package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"chatwave/models"
	"chatwave/utils"
)

type ProfileController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewProfileController(db *gorm.DB, logger *logrus.Entry) *ProfileController {
	return &ProfileController{
		DB:     db,
		Logger: logger,
	}
}

// GetMyProfile returns the caller's profile, or an empty payload for
// anonymous callers.
func (pc *ProfileController) GetMyProfile(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return c.JSON(utils.SuccessResponse(nil))
	}

	var profile models.Profile
	if err := pc.DB.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		return c.JSON(utils.SuccessResponse(nil))
	}

	return c.JSON(utils.SuccessResponse(profile))
}

// UpdateProfile upserts the caller's profile. An avatar reference must
// point at a claimed upload owned by the caller.
func (pc *ProfileController) UpdateProfile(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name     string `json:"name" validate:"required,max=100"`
		AvatarID *uint  `json:"avatar_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Profile name must not be empty", nil)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if input.AvatarID != nil {
		var upload models.FileUpload
		if err := pc.DB.Where("id = ? AND user_id = ? AND claimed = ?", *input.AvatarID, user.ID, true).
			First(&upload).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Avatar upload not found", nil)
		}
	}

	var profile models.Profile
	err := pc.DB.Where("user_id = ?", user.ID).
		Attrs(models.Profile{UserID: user.ID}).
		FirstOrCreate(&profile).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load profile", err)
	}

	updates := map[string]interface{}{"name": name, "avatar_id": input.AvatarID}
	if err := pc.DB.Model(&profile).Updates(updates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update profile", err)
	}
	profile.Name = name
	profile.AvatarID = input.AvatarID

	return c.JSON(utils.SuccessResponse(profile))
}
