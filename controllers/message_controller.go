package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"chatwave/config"
	"chatwave/models"
	"chatwave/tenancy"
	"chatwave/utils"
)

// SearchResultLimit is the fixed cap on search result volume. Search
// does not paginate; it truncates.
const SearchResultLimit = 25

type MessageController struct {
	DB      *gorm.DB
	Tenancy *tenancy.Service
	Logger  *logrus.Entry
	Hub     *MessageHub
}

func NewMessageController(db *gorm.DB, tenancyService *tenancy.Service, logger *logrus.Entry, hub *MessageHub) *MessageController {
	return &MessageController{
		DB:      db,
		Tenancy: tenancyService,
		Logger:  logger,
		Hub:     hub,
	}
}

// SendMessage appends an immutable message to a channel in the
// caller's workspace.
func (mc *MessageController) SendMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Content string `json:"content" validate:"required,max=4000"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Message content must not be empty", nil)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	membership, err := mc.Tenancy.RequireMembership(user.ID)
	if err != nil {
		return tenancyError(c, err)
	}

	channel, err := loadAuthorizedChannel(c, mc.DB, membership, c.Params("id"))
	if err != nil {
		return err
	}

	message := models.Message{
		WorkspaceID: channel.WorkspaceID,
		ChannelID:   channel.ID,
		AuthorID:    user.ID,
		Content:     content,
	}
	if err := mc.DB.Create(&message).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send message", err)
	}

	enriched := mc.enrichMessages([]models.Message{message})[0]
	if mc.Hub != nil {
		mc.Hub.Broadcast(channel.ID, enriched)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(enriched))
}

// GetMessages lists a channel's messages in creation order, enriched
// with author display names.
func (mc *MessageController) GetMessages(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return emptyList(c)
	}

	membership, err := mc.Tenancy.ResolveMembership(user.ID)
	if err != nil {
		return tenancyError(c, err)
	}
	if membership == nil {
		return emptyList(c)
	}

	channel, err := loadAuthorizedChannel(c, mc.DB, membership, c.Params("id"))
	if err != nil {
		return err
	}

	var messages []models.Message
	if err := mc.DB.Where("channel_id = ?", channel.ID).
		Order("created_at asc, id asc").
		Find(&messages).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list messages", err)
	}

	return c.JSON(utils.SuccessResponse(mc.enrichMessages(messages)))
}

// SearchMessages runs a full-text search over the caller's workspace,
// optionally restricted to one channel. An empty or whitespace query
// fails closed with an empty result.
func (mc *MessageController) SearchMessages(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return emptyList(c)
	}

	membership, err := mc.Tenancy.ResolveMembership(user.ID)
	if err != nil {
		return tenancyError(c, err)
	}
	if membership == nil {
		return emptyList(c)
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return emptyList(c)
	}

	tx := mc.DB.Model(&models.Message{}).Where("messages.workspace_id = ?", membership.WorkspaceID)

	if channelParam := c.Query("channel_id"); channelParam != "" {
		channel, err := loadAuthorizedChannel(c, mc.DB, membership, channelParam)
		if err != nil {
			return err
		}
		tx = tx.Where("messages.channel_id = ?", channel.ID)
	}

	// The GIN index from MigrateDB backs the tsquery form; other
	// dialects fall back to a scan-free-enough ILIKE within the
	// workspace index.
	if mc.DB.Dialector.Name() == "postgres" {
		tx = tx.Where("to_tsvector('english', messages.content) @@ plainto_tsquery('english', ?)", query)
	} else {
		tx = tx.Where("messages.content LIKE ?", "%"+query+"%")
	}

	var messages []models.Message
	if err := tx.Order("messages.created_at desc, messages.id desc").
		Limit(SearchResultLimit).
		Find(&messages).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Search failed", err)
	}

	return c.JSON(utils.SuccessResponse(mc.toSearchResults(messages)))
}

// enrichMessages resolves author display names and avatars in one
// round trip per batch.
func (mc *MessageController) enrichMessages(messages []models.Message) []models.MessageWithAuthor {
	profiles := mc.profilesByUser(messages)

	result := make([]models.MessageWithAuthor, 0, len(messages))
	for _, m := range messages {
		name, avatar := profileDisplay(profiles, m.AuthorID)
		result = append(result, models.MessageWithAuthor{
			ID:          m.ID,
			WorkspaceID: m.WorkspaceID,
			ChannelID:   m.ChannelID,
			AuthorID:    m.AuthorID,
			AuthorName:  name,
			AvatarURL:   avatar,
			Content:     m.Content,
			CreatedAt:   m.CreatedAt.UnixMilli(),
		})
	}
	return result
}

func (mc *MessageController) toSearchResults(messages []models.Message) []models.SearchResult {
	profiles := mc.profilesByUser(messages)

	channelNames := make(map[uint]string)
	channelIDs := make([]uint, 0, len(messages))
	for _, m := range messages {
		if _, seen := channelNames[m.ChannelID]; !seen {
			channelNames[m.ChannelID] = ""
			channelIDs = append(channelIDs, m.ChannelID)
		}
	}
	if len(channelIDs) > 0 {
		var channels []models.Channel
		if err := mc.DB.Where("id IN ?", channelIDs).Find(&channels).Error; err == nil {
			for _, ch := range channels {
				channelNames[ch.ID] = ch.Name
			}
		}
	}

	result := make([]models.SearchResult, 0, len(messages))
	for _, m := range messages {
		name, _ := profileDisplay(profiles, m.AuthorID)
		result = append(result, models.SearchResult{
			ID:          m.ID,
			ChannelID:   m.ChannelID,
			ChannelName: channelNames[m.ChannelID],
			AuthorID:    m.AuthorID,
			AuthorName:  name,
			Content:     m.Content,
			CreatedAt:   m.CreatedAt.UnixMilli(),
		})
	}
	return result
}

func (mc *MessageController) profilesByUser(messages []models.Message) map[uint]models.Profile {
	byUser := make(map[uint]models.Profile)
	if len(messages) == 0 {
		return byUser
	}

	ids := make([]uint, 0, len(messages))
	seen := make(map[uint]bool)
	for _, m := range messages {
		if !seen[m.AuthorID] {
			seen[m.AuthorID] = true
			ids = append(ids, m.AuthorID)
		}
	}

	var profiles []models.Profile
	if err := mc.DB.Where("user_id IN ?", ids).Find(&profiles).Error; err != nil {
		mc.Logger.WithError(err).Warn("Failed to load author profiles")
		return byUser
	}
	for _, p := range profiles {
		byUser[p.UserID] = p
	}
	return byUser
}

func profileDisplay(profiles map[uint]models.Profile, userID uint) (string, string) {
	profile, ok := profiles[userID]
	if !ok {
		return "Unknown", ""
	}
	avatar := ""
	if profile.AvatarID != nil {
		avatar = config.AppConfig.BaseURL + "/files/" + utils.FormatUint(*profile.AvatarID)
	}
	return profile.Name, avatar
}
