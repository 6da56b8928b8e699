package controller

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"chatwave/models"
)

// MessageHub fans new messages out to websocket subscribers, keyed by
// channel id. It only carries live traffic; history comes from
// GetMessages.
type MessageHub struct {
	mu     sync.RWMutex
	subs   map[uint]map[chan models.MessageWithAuthor]bool
	logger *logrus.Entry
}

func NewMessageHub(logger *logrus.Entry) *MessageHub {
	return &MessageHub{
		subs:   make(map[uint]map[chan models.MessageWithAuthor]bool),
		logger: logger,
	}
}

func (h *MessageHub) Subscribe(channelID uint) chan models.MessageWithAuthor {
	sub := make(chan models.MessageWithAuthor, 16)
	h.mu.Lock()
	if h.subs[channelID] == nil {
		h.subs[channelID] = make(map[chan models.MessageWithAuthor]bool)
	}
	h.subs[channelID][sub] = true
	h.mu.Unlock()
	return sub
}

func (h *MessageHub) Unsubscribe(channelID uint, sub chan models.MessageWithAuthor) {
	h.mu.Lock()
	if subs, ok := h.subs[channelID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, channelID)
		}
	}
	h.mu.Unlock()
	close(sub)
}

// Broadcast delivers a message to every subscriber of the channel.
// Slow consumers are skipped rather than blocking the send path.
func (h *MessageHub) Broadcast(channelID uint, message models.MessageWithAuthor) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[channelID] {
		select {
		case sub <- message:
		default:
			h.logger.WithField("channel_id", channelID).Warn("Dropping message for slow websocket subscriber")
		}
	}
}

// RequireWebSocketUpgrade gates the stream route so plain HTTP
// requests get a 426 instead of hitting the upgrade handler.
func RequireWebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// StreamChannel upgrades to a websocket and pushes every message sent
// to the channel for as long as the socket stays open. The caller's
// membership and the channel's workspace are verified before the
// upgrade by the surrounding middleware chain; the channel id param is
// re-checked here against the already-resolved workspace.
func (mc *MessageController) StreamChannel() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		channelID, _ := conn.Locals("channelID").(uint)
		if channelID == 0 {
			return
		}

		sub := mc.Hub.Subscribe(channelID)
		defer mc.Hub.Unsubscribe(channelID, sub)

		// Reader goroutine: we never expect client frames, but reading
		// is how we notice the peer going away.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case message, ok := <-sub:
				if !ok {
					return
				}
				if err := conn.WriteJSON(message); err != nil {
					mc.Logger.WithError(err).Debug("Websocket write failed")
					return
				}
			case <-done:
				return
			}
		}
	})
}

// AuthorizeStream runs before the websocket upgrade: it resolves the
// caller's membership and checks the channel against it, stashing the
// channel id for the upgraded handler.
func (mc *MessageController) AuthorizeStream() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)

		membership, err := mc.Tenancy.RequireMembership(user.ID)
		if err != nil {
			return tenancyError(c, err)
		}

		channel, err := loadAuthorizedChannel(c, mc.DB, membership, c.Params("id"))
		if err != nil {
			return err
		}

		c.Locals("channelID", channel.ID)
		return c.Next()
	}
}
