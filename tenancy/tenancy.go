package tenancy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"chatwave/models"
	"chatwave/utils"
)

var (
	// ErrMembershipConflict signals a data-integrity violation: a user
	// with more than one membership row. Callers must propagate it as an
	// unrecoverable error, never pick one of the rows.
	ErrMembershipConflict = errors.New("workspace membership conflict: user belongs to multiple workspaces")

	// ErrNoMembership is returned by RequireMembership when the user has
	// no workspace yet. Distinct from ErrMembershipConflict.
	ErrNoMembership = errors.New("no workspace membership found")

	// ErrAlreadyMember is returned by AddMember when the user already
	// belongs to a different workspace.
	ErrAlreadyMember = errors.New("user already belongs to another workspace")
)

// Service is the single source of truth for workspace membership.
// Every controller resolves the caller's workspace through it before
// touching workspace-scoped data.
type Service struct {
	db     *gorm.DB
	logger *logrus.Entry
}

func NewService(db *gorm.DB, logger *logrus.Entry) *Service {
	return &Service{db: db, logger: logger}
}

// ResolveMembership returns the user's membership row, or nil when the
// user has none. More than one row is a consistency error.
func (s *Service) ResolveMembership(userID uint) (*models.WorkspaceMember, error) {
	var rows []models.WorkspaceMember
	if err := s.db.Where("user_id = ?", userID).Limit(2).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to look up membership: %w", err)
	}

	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		s.logger.WithField("user_id", userID).Error("multiple workspace memberships found")
		return nil, ErrMembershipConflict
	}
}

// RequireMembership is ResolveMembership for write paths, which must
// not silently no-op when the user has no workspace.
func (s *Service) RequireMembership(userID uint) (*models.WorkspaceMember, error) {
	membership, err := s.ResolveMembership(userID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, ErrNoMembership
	}
	return membership, nil
}

// IsMember reports whether the user belongs to the given workspace.
func (s *Service) IsMember(userID, workspaceID uint) (bool, error) {
	membership, err := s.ResolveMembership(userID)
	if err != nil {
		return false, err
	}
	return membership != nil && membership.WorkspaceID == workspaceID, nil
}

// EnsureWorkspaceForUser is the idempotent first-login bootstrap: one
// workspace, one owner membership, one default channel, all inside a
// single transaction. Concurrent calls for the same user are resolved
// by the unique index on workspace_members.user_id: the loser of the
// race observes a duplicate-key error and returns the winner's row.
func (s *Service) EnsureWorkspaceForUser(user *models.User) (*models.WorkspaceMember, bool, error) {
	membership, err := s.ResolveMembership(user.ID)
	if err != nil {
		return nil, false, err
	}
	if membership != nil {
		return membership, false, nil
	}

	var created models.WorkspaceMember
	err = s.db.Transaction(func(tx *gorm.DB) error {
		workspace := models.Workspace{
			Name:      workspaceNameFor(user),
			CreatedBy: user.ID,
		}
		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}

		member := models.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      user.ID,
			Role:        models.RoleOwner,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}

		channel := models.Channel{
			WorkspaceID: workspace.ID,
			Name:        models.DefaultChannelName,
			CreatedBy:   user.ID,
		}
		if err := tx.Create(&channel).Error; err != nil {
			return err
		}

		created = member
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the bootstrap race; the whole transaction rolled back,
			// so the winner's workspace is the only one.
			existing, resolveErr := s.RequireMembership(user.ID)
			if resolveErr != nil {
				return nil, false, resolveErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to bootstrap workspace: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":      user.ID,
		"workspace_id": created.WorkspaceID,
	}).Info("Bootstrapped workspace for user")
	return &created, true, nil
}

// AddMember inserts a membership with the given role. Not exposed over
// HTTP; only the seeder uses it. Idempotent: an existing row in the
// same workspace has its role updated in place, a row in a different
// workspace is refused.
func (s *Service) AddMember(workspaceID, userID uint, role string) (*models.WorkspaceMember, error) {
	existing, err := s.ResolveMembership(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.WorkspaceID != workspaceID {
			return nil, ErrAlreadyMember
		}
		if existing.Role != role {
			if err := s.db.Model(existing).Update("role", role).Error; err != nil {
				return nil, fmt.Errorf("failed to update member role: %w", err)
			}
			existing.Role = role
		}
		return existing, nil
	}

	member := models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
	}
	if err := s.db.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.RequireMembership(userID)
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	return &member, nil
}

// CreateWorkspace finds or creates a workspace by name, attributed to
// the given owner, with no membership or channel side effects. Seed
// path only; normal sign-in goes through EnsureWorkspaceForUser.
func (s *Service) CreateWorkspace(name string, ownerID uint) (*models.Workspace, error) {
	var workspace models.Workspace
	err := s.db.Where("name = ?", name).
		Attrs(models.Workspace{Name: name, CreatedBy: ownerID}).
		FirstOrCreate(&workspace).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace %q: %w", name, err)
	}
	return &workspace, nil
}

// workspaceNameFor derives the bootstrap workspace name from the
// user's display name, then the email local-part, then a generic label.
func workspaceNameFor(user *models.User) string {
	base := ""
	if user.Name != nil {
		base = strings.TrimSpace(*user.Name)
	}
	if base == "" {
		base = strings.TrimSpace(utils.EmailLocalPart(user.Email))
	}
	if base == "" {
		return "Workspace"
	}
	return base + "'s Workspace"
}
