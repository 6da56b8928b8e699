package seed

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	controller "chatwave/controllers"
	"chatwave/models"
	"chatwave/tenancy"
)

// SeedPassword is shared by all demo accounts.
const SeedPassword = "testtest123"

// SeedUser is a fixed demo identity.
type SeedUser struct {
	Email string
	Name  string
}

// SeedWorkspace pairs a workspace name with the identities that own
// and populate it.
type SeedWorkspace struct {
	Name   string
	Owner  SeedUser
	Member SeedUser
}

var Workspaces = []SeedWorkspace{
	{
		Name:   "Seed Workspace A",
		Owner:  SeedUser{Email: "seed.owner.a@chatwave.test", Name: "Seed Owner A"},
		Member: SeedUser{Email: "seed.member.a@chatwave.test", Name: "Seed Member A"},
	},
	{
		Name:   "Seed Workspace B",
		Owner:  SeedUser{Email: "seed.owner.b@chatwave.test", Name: "Seed Owner B"},
		Member: SeedUser{Email: "seed.member.b@chatwave.test", Name: "Seed Member B"},
	},
}

// ChannelNames are created in every seed workspace.
var ChannelNames = []string{"general", "product", "random"}

// messageTemplates take the channel name and workspace name, in that
// order where both appear. Authorship alternates owner, member, owner,
// member. Exactly one message carries the "focused updates" phrase so
// search scenarios have a single known match per channel.
var messageTemplates = []string{
	"Welcome to #%s — this is the home channel for %s.",
	"Happy to be here! What belongs in #%s?",
	"We use this channel for focused updates on %s.",
	"Got it, keeping #%s on topic.",
}

// Seeder populates the two demo tenants. Every step is find-or-create:
// re-running a seed never duplicates users, workspaces, channels or
// message history.
type Seeder struct {
	db      *gorm.DB
	tenancy *tenancy.Service
	logger  *logrus.Entry
}

func NewSeeder(db *gorm.DB, tenancyService *tenancy.Service, logger *logrus.Entry) *Seeder {
	return &Seeder{
		db:      db,
		tenancy: tenancyService,
		logger:  logger,
	}
}

// Run executes the full seed. Any failure to re-locate a just-created
// entity aborts: a partial seed is worse than no seed.
func (s *Seeder) Run() error {
	for _, ws := range Workspaces {
		owner, err := s.ensureUser(ws.Owner)
		if err != nil {
			return err
		}
		member, err := s.ensureUser(ws.Member)
		if err != nil {
			return err
		}

		workspace, err := s.tenancy.CreateWorkspace(ws.Name, owner.ID)
		if err != nil {
			return err
		}

		if _, err := s.tenancy.AddMember(workspace.ID, owner.ID, models.RoleOwner); err != nil {
			return fmt.Errorf("failed to add owner to %q: %w", ws.Name, err)
		}
		if _, err := s.tenancy.AddMember(workspace.ID, member.ID, models.RoleMember); err != nil {
			return fmt.Errorf("failed to add member to %q: %w", ws.Name, err)
		}

		for _, channelName := range ChannelNames {
			if err := s.ensureChannel(workspace, channelName, owner, member); err != nil {
				return err
			}
		}

		s.logger.WithField("workspace", ws.Name).Info("Seeded workspace")
	}
	return nil
}

// ensureUser creates the account through the normal sign-up primitive
// when absent, then makes sure the profile carries the seed display
// name.
func (s *Seeder) ensureUser(identity SeedUser) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", identity.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		name := identity.Name
		created, createErr := controller.CreateUserAccount(s.db, identity.Email, SeedPassword, &name)
		if createErr != nil {
			return nil, fmt.Errorf("failed to create seed user %s: %w", identity.Email, createErr)
		}
		user = *created
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up seed user %s: %w", identity.Email, err)
	}

	// Sign-up succeeded but the row is gone: inconsistent state, abort.
	if user.ID == 0 {
		return nil, fmt.Errorf("seed user %s could not be found after creation", identity.Email)
	}

	var profile models.Profile
	err = s.db.Where("user_id = ?", user.ID).
		Attrs(models.Profile{UserID: user.ID, Name: identity.Name}).
		FirstOrCreate(&profile).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure profile for %s: %w", identity.Email, err)
	}
	if profile.Name != identity.Name {
		if err := s.db.Model(&profile).Update("name", identity.Name).Error; err != nil {
			return nil, fmt.Errorf("failed to update profile name for %s: %w", identity.Email, err)
		}
	}

	return &user, nil
}

// ensureChannel creates the channel if needed and writes the fixed
// message sequence, but only into a channel with no history at all.
// The zero-message guard is what makes re-running the seed safe.
func (s *Seeder) ensureChannel(workspace *models.Workspace, name string, owner, member *models.User) error {
	var channel models.Channel
	err := s.db.Where("workspace_id = ? AND name = ?", workspace.ID, name).
		Attrs(models.Channel{WorkspaceID: workspace.ID, Name: name, CreatedBy: owner.ID}).
		FirstOrCreate(&channel).Error
	if err != nil {
		return fmt.Errorf("failed to ensure channel %s/%s: %w", workspace.Name, name, err)
	}
	if channel.ID == 0 {
		return fmt.Errorf("channel %s/%s could not be found after creation", workspace.Name, name)
	}

	var count int64
	if err := s.db.Model(&models.Message{}).Where("channel_id = ?", channel.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count messages in %s/%s: %w", workspace.Name, name, err)
	}
	if count > 0 {
		return nil
	}

	authors := []*models.User{owner, member, owner, member}
	for i, template := range messageTemplates {
		content := renderTemplate(template, name, workspace.Name)
		message := models.Message{
			WorkspaceID: workspace.ID,
			ChannelID:   channel.ID,
			AuthorID:    authors[i].ID,
			Content:     content,
		}
		if err := s.db.Create(&message).Error; err != nil {
			return fmt.Errorf("failed to seed message in %s/%s: %w", workspace.Name, name, err)
		}
	}

	return nil
}

// renderTemplate fills a template that mentions either the channel,
// the workspace, or both.
func renderTemplate(template, channelName, workspaceName string) string {
	switch countVerbs(template) {
	case 2:
		return fmt.Sprintf(template, channelName, workspaceName)
	default:
		return fmt.Sprintf(template, channelName)
	}
}

func countVerbs(template string) int {
	count := 0
	for i := 0; i+1 < len(template); i++ {
		if template[i] == '%' && template[i+1] == 's' {
			count++
		}
	}
	return count
}
