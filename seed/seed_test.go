package seed

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"chatwave/config"
	"chatwave/logutils"
	"chatwave/models"
	"chatwave/tenancy"
)

var dbCounter int

func newTestSeeder(t *testing.T) (*Seeder, *gorm.DB) {
	t.Helper()
	dbCounter++
	dsn := fmt.Sprintf("file:seed%d?mode=memory&cache=shared", dbCounter)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := config.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	svc := tenancy.NewService(db, logutils.Component("tenancy-test"))
	return NewSeeder(db, svc, logutils.Component("seed-test")), db
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return count
}

func assertRole(t *testing.T, db *gorm.DB, workspaceID uint, email, role string) {
	t.Helper()
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		t.Fatalf("user %s missing: %v", email, err)
	}
	var membership models.WorkspaceMember
	err := db.Where("workspace_id = ? AND user_id = ?", workspaceID, user.ID).First(&membership).Error
	if err != nil {
		t.Fatalf("membership for %s missing: %v", email, err)
	}
	if membership.Role != role {
		t.Fatalf("role for %s = %q, want %q", email, membership.Role, role)
	}
}

func TestSeedProducesFixedDataset(t *testing.T) {
	seeder, db := newTestSeeder(t)

	if err := seeder.Run(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if got := countRows(t, db, &models.User{}); got != 4 {
		t.Fatalf("users = %d, want 4", got)
	}
	if got := countRows(t, db, &models.Workspace{}); got != 2 {
		t.Fatalf("workspaces = %d, want 2", got)
	}
	if got := countRows(t, db, &models.Channel{}); got != 6 {
		t.Fatalf("channels = %d, want 6", got)
	}
	if got := countRows(t, db, &models.WorkspaceMember{}); got != 4 {
		t.Fatalf("memberships = %d, want 4", got)
	}
	if got := countRows(t, db, &models.Message{}); got != 24 {
		t.Fatalf("messages = %d, want 24 (4 per channel)", got)
	}

	// Roles are fixed per identity
	for _, ws := range Workspaces {
		var workspace models.Workspace
		if err := db.Where("name = ?", ws.Name).First(&workspace).Error; err != nil {
			t.Fatalf("workspace %q missing: %v", ws.Name, err)
		}
		assertRole(t, db, workspace.ID, ws.Owner.Email, models.RoleOwner)
		assertRole(t, db, workspace.ID, ws.Member.Email, models.RoleMember)

		for _, name := range ChannelNames {
			var channel models.Channel
			err := db.Where("workspace_id = ? AND name = ?", workspace.ID, name).First(&channel).Error
			if err != nil {
				t.Fatalf("channel %s/%s missing: %v", ws.Name, name, err)
			}

			var matches int64
			db.Model(&models.Message{}).
				Where("channel_id = ? AND content LIKE ?", channel.ID, "%focused updates%").
				Count(&matches)
			if matches != 1 {
				t.Fatalf("channel %s/%s has %d 'focused updates' messages, want 1", ws.Name, name, matches)
			}
		}
	}

	// Profiles carry the seed display names
	var profile models.Profile
	var owner models.User
	if err := db.Where("email = ?", "seed.owner.a@chatwave.test").First(&owner).Error; err != nil {
		t.Fatalf("seed owner missing: %v", err)
	}
	if err := db.Where("user_id = ?", owner.ID).First(&profile).Error; err != nil {
		t.Fatalf("seed owner profile missing: %v", err)
	}
	if profile.Name != "Seed Owner A" {
		t.Fatalf("profile name = %q, want %q", profile.Name, "Seed Owner A")
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	seeder, db := newTestSeeder(t)

	if err := seeder.Run(); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	firstMessages := countRows(t, db, &models.Message{})

	if err := seeder.Run(); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	if got := countRows(t, db, &models.User{}); got != 4 {
		t.Fatalf("users after reseed = %d, want 4", got)
	}
	if got := countRows(t, db, &models.Workspace{}); got != 2 {
		t.Fatalf("workspaces after reseed = %d, want 2", got)
	}
	if got := countRows(t, db, &models.Channel{}); got != 6 {
		t.Fatalf("channels after reseed = %d, want 6", got)
	}
	if got := countRows(t, db, &models.Message{}); got != firstMessages {
		t.Fatalf("messages after reseed = %d, want %d", got, firstMessages)
	}
}

func TestSeedSkipsNonEmptyChannels(t *testing.T) {
	seeder, db := newTestSeeder(t)

	if err := seeder.Run(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// A channel that saw organic traffic keeps its history untouched
	var channel models.Channel
	if err := db.Where("name = ?", "general").First(&channel).Error; err != nil {
		t.Fatalf("general channel missing: %v", err)
	}
	var author models.User
	if err := db.Where("email = ?", "seed.member.a@chatwave.test").First(&author).Error; err != nil {
		t.Fatalf("seed member missing: %v", err)
	}
	organic := models.Message{
		WorkspaceID: channel.WorkspaceID,
		ChannelID:   channel.ID,
		AuthorID:    author.ID,
		Content:     "organic traffic",
	}
	if err := db.Create(&organic).Error; err != nil {
		t.Fatalf("failed to insert organic message: %v", err)
	}

	if err := seeder.Run(); err != nil {
		t.Fatalf("reseed failed: %v", err)
	}

	var count int64
	db.Model(&models.Message{}).Where("channel_id = ?", channel.ID).Count(&count)
	if count != 5 {
		t.Fatalf("messages in touched channel = %d, want 5 (4 seed + 1 organic)", count)
	}
}

func TestSeedMessageAuthorsAlternate(t *testing.T) {
	seeder, db := newTestSeeder(t)

	if err := seeder.Run(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	ws := Workspaces[0]
	var workspace models.Workspace
	if err := db.Where("name = ?", ws.Name).First(&workspace).Error; err != nil {
		t.Fatalf("workspace missing: %v", err)
	}
	var owner, member models.User
	if err := db.Where("email = ?", ws.Owner.Email).First(&owner).Error; err != nil {
		t.Fatalf("owner missing: %v", err)
	}
	if err := db.Where("email = ?", ws.Member.Email).First(&member).Error; err != nil {
		t.Fatalf("member missing: %v", err)
	}

	var channel models.Channel
	if err := db.Where("workspace_id = ? AND name = ?", workspace.ID, "general").First(&channel).Error; err != nil {
		t.Fatalf("general missing: %v", err)
	}

	var messages []models.Message
	if err := db.Where("channel_id = ?", channel.ID).Order("id asc").Find(&messages).Error; err != nil {
		t.Fatalf("failed to load messages: %v", err)
	}
	if len(messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(messages))
	}

	want := []uint{owner.ID, member.ID, owner.ID, member.ID}
	for i, m := range messages {
		if m.AuthorID != want[i] {
			t.Fatalf("message %d author = %d, want %d", i, m.AuthorID, want[i])
		}
		if strings.TrimSpace(m.Content) == "" {
			t.Fatalf("message %d has empty content", i)
		}
	}
}
