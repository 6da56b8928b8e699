package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"chatwave/models"
	"chatwave/tenancy"
	"chatwave/utils"
)

type WorkspaceController struct {
	DB      *gorm.DB
	Tenancy *tenancy.Service
	Logger  *logrus.Entry
}

func NewWorkspaceController(db *gorm.DB, tenancyService *tenancy.Service, logger *logrus.Entry) *WorkspaceController {
	return &WorkspaceController{
		DB:      db,
		Tenancy: tenancyService,
		Logger:  logger,
	}
}

type EnsureWorkspaceResponse struct {
	WorkspaceID uint `json:"workspace_id"`
	Created     bool `json:"created"`
}

// EnsureWorkspace is the first-login bootstrap mutation. Safe to call
// repeatedly; only the first call per user creates anything.
func (wc *WorkspaceController) EnsureWorkspace(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	membership, created, err := wc.Tenancy.EnsureWorkspaceForUser(user)
	if err != nil {
		return tenancyError(c, err)
	}

	return c.JSON(utils.SuccessResponse(EnsureWorkspaceResponse{
		WorkspaceID: membership.WorkspaceID,
		Created:     created,
	}))
}

type WorkspaceInfo struct {
	Workspace models.Workspace `json:"workspace"`
	Role      string           `json:"role"`
}

// GetMyWorkspace returns the caller's workspace and role. Anonymous or
// workspace-less callers get an empty payload.
func (wc *WorkspaceController) GetMyWorkspace(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return c.JSON(utils.SuccessResponse(nil))
	}

	membership, err := wc.Tenancy.ResolveMembership(user.ID)
	if err != nil {
		return tenancyError(c, err)
	}
	if membership == nil {
		return c.JSON(utils.SuccessResponse(nil))
	}

	var workspace models.Workspace
	if err := wc.DB.First(&workspace, membership.WorkspaceID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Workspace not found", nil)
	}

	return c.JSON(utils.SuccessResponse(WorkspaceInfo{
		Workspace: workspace,
		Role:      membership.Role,
	}))
}
