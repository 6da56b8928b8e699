package controller

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"chatwave/config"
	"chatwave/models"
	"chatwave/utils"
)

// UploadGrantTTL bounds how long a generated upload URL stays usable.
const UploadGrantTTL = 15 * time.Minute

type UploadController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewUploadController(db *gorm.DB, logger *logrus.Entry) *UploadController {
	return &UploadController{
		DB:     db,
		Logger: logger,
	}
}

type UploadGrantResponse struct {
	UploadID  uint   `json:"upload_id"`
	UploadURL string `json:"upload_url"`
	ExpiresAt int64  `json:"expires_at"`
}

// CreateUploadURL issues a short-lived capability URL the client PUTs
// the blob to. The token is the whole secret; no auth on the PUT.
func (uc *UploadController) CreateUploadURL(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	grant := models.FileUpload{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(UploadGrantTTL),
	}
	if err := uc.DB.Create(&grant).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create upload grant", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(UploadGrantResponse{
		UploadID:  grant.ID,
		UploadURL: config.AppConfig.BaseURL + "/uploads/" + grant.Token,
		ExpiresAt: grant.ExpiresAt.UnixMilli(),
	}))
}

// ReceiveUpload stores the blob for an unexpired, unclaimed grant.
func (uc *UploadController) ReceiveUpload(c *fiber.Ctx) error {
	var grant models.FileUpload
	if err := uc.DB.Where("token = ? AND claimed = ?", c.Params("token"), false).First(&grant).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Upload grant not found", nil)
	}
	if time.Now().After(grant.ExpiresAt) {
		return utils.ErrorResponse(c, fiber.StatusGone, "Upload grant expired", nil)
	}

	body := c.Body()
	if len(body) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Empty upload body", nil)
	}

	if err := os.MkdirAll(config.AppConfig.UploadDir, 0o755); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to prepare upload storage", err)
	}

	storedName := uuid.NewString()
	path := filepath.Join(config.AppConfig.UploadDir, storedName)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to store upload", err)
	}

	updates := map[string]interface{}{
		"stored_name":  storedName,
		"content_type": c.Get("Content-Type"),
		"size":         int64(len(body)),
		"claimed":      true,
	}
	if err := uc.DB.Model(&grant).Updates(updates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to finalize upload", err)
	}

	uc.Logger.WithFields(logrus.Fields{
		"upload_id": grant.ID,
		"size":      len(body),
	}).Info("Upload stored")
	return c.JSON(utils.SuccessResponse(fiber.Map{"upload_id": grant.ID}))
}

// ServeFile streams a stored blob back to the client.
func (uc *UploadController) ServeFile(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))
	if id == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid file id", nil)
	}

	var grant models.FileUpload
	if err := uc.DB.Where("id = ? AND claimed = ?", id, true).First(&grant).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "File not found", nil)
	}

	if grant.ContentType != "" {
		c.Set("Content-Type", grant.ContentType)
	}
	return c.SendFile(filepath.Join(config.AppConfig.UploadDir, grant.StoredName))
}
