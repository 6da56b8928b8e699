package controller_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	controller "chatwave/controllers"
	"chatwave/logutils"
	"chatwave/middleware"
	"chatwave/models"
	"chatwave/tenancy"
)

// streamTestApp wires the stream authorization chain behind a plain
// handler so the pre-upgrade checks are testable without a websocket
// handshake.
func streamTestApp(t *testing.T, mc *controller.MessageController) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Get("/channels/:id/stream-auth",
		middleware.Protected(),
		mc.AuthorizeStream(),
		func(c *fiber.Ctx) error {
			id, _ := c.Locals("channelID").(uint)
			return c.JSON(fiber.Map{"channel_id": id})
		})
	app.Post("/channels/:id/messages", middleware.Protected(), mc.SendMessage)
	return app
}

func TestStreamRejectsPlainHTTP(t *testing.T) {
	app, db := setupApp(t)

	access, _ := registerUser(t, app, "viewer@example.com", "Viewer")
	workspaceID := ensureWorkspace(t, app, access)
	channelID := generalChannelID(t, db, workspaceID)

	// No upgrade headers: refused before any auth or channel work
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/channels/%d/stream", channelID), nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("stream GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("plain HTTP stream = %d, want 426", resp.StatusCode)
	}
}

func TestStreamAuthorizationGuardsWorkspace(t *testing.T) {
	app, db := setupApp(t)

	accessA, _ := registerUser(t, app, "stream.a@example.com", "Stream A")
	workspaceA := ensureWorkspace(t, app, accessA)
	accessB, _ := registerUser(t, app, "stream.b@example.com", "Stream B")
	ensureWorkspace(t, app, accessB)

	generalA := generalChannelID(t, db, workspaceA)

	svc := tenancy.NewService(db, logutils.Component("tenancy-test"))
	hub := controller.NewMessageHub(logutils.Component("hub-test"))
	mc := controller.NewMessageController(db, svc, logutils.Component("message-test"), hub)
	side := streamTestApp(t, mc)

	path := fmt.Sprintf("/channels/%d/stream-auth", generalA)

	// The owner passes the pre-upgrade checks and gets the channel stashed
	status, payload := request(t, side, http.MethodGet, path, accessA, nil)
	if status != http.StatusOK {
		t.Fatalf("owner stream auth = %d, body %v", status, payload)
	}
	if got := uint(payload["channel_id"].(float64)); got != generalA {
		t.Fatalf("stashed channel = %d, want %d", got, generalA)
	}

	// A member of another workspace is refused before the upgrade
	status, payload = request(t, side, http.MethodGet, path, accessB, nil)
	if status != http.StatusForbidden {
		t.Fatalf("foreign stream auth = %d, want 403", status)
	}
	if payload["error"] != "not authorized" {
		t.Fatalf("foreign stream auth error = %v, want 'not authorized'", payload["error"])
	}

	// Anonymous callers never reach the channel check
	status, _ = request(t, side, http.MethodGet, path, "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("anonymous stream auth = %d, want 401", status)
	}
}

func TestSendMessageReachesSubscribers(t *testing.T) {
	app, db := setupApp(t)

	access, _ := registerUser(t, app, "live@example.com", "Live")
	workspaceID := ensureWorkspace(t, app, access)
	channelID := generalChannelID(t, db, workspaceID)

	svc := tenancy.NewService(db, logutils.Component("tenancy-test"))
	hub := controller.NewMessageHub(logutils.Component("hub-test"))
	mc := controller.NewMessageController(db, svc, logutils.Component("message-test"), hub)
	side := streamTestApp(t, mc)

	sub := hub.Subscribe(channelID)
	defer hub.Unsubscribe(channelID, sub)

	path := fmt.Sprintf("/channels/%d/messages", channelID)
	status, payload := request(t, side, http.MethodPost, path, access, fiber.Map{
		"content": "going live",
	})
	if status != http.StatusCreated {
		t.Fatalf("send = %d, body %v", status, payload)
	}

	select {
	case message := <-sub:
		if message.Content != "going live" {
			t.Fatalf("broadcast content = %q, want 'going live'", message.Content)
		}
		if message.AuthorName != "Live" {
			t.Fatalf("broadcast author = %q, want Live", message.AuthorName)
		}
		if message.ChannelID != channelID {
			t.Fatalf("broadcast channel = %d, want %d", message.ChannelID, channelID)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the message")
	}
}

func TestMessageHubFanout(t *testing.T) {
	hub := controller.NewMessageHub(logutils.Component("hub-test"))

	first := hub.Subscribe(7)
	second := hub.Subscribe(7)
	other := hub.Subscribe(8)
	defer hub.Unsubscribe(8, other)

	hub.Broadcast(7, models.MessageWithAuthor{ID: 1, ChannelID: 7, Content: "hello"})

	for _, sub := range []chan models.MessageWithAuthor{first, second} {
		select {
		case message := <-sub:
			if message.ID != 1 {
				t.Fatalf("received id = %d, want 1", message.ID)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber missed the broadcast")
		}
	}
	if len(other) != 0 {
		t.Fatal("broadcast leaked into another channel")
	}

	// Unsubscribed channels are closed and stop receiving
	hub.Unsubscribe(7, second)
	if _, ok := <-second; ok {
		t.Fatal("unsubscribed channel not closed")
	}
	hub.Broadcast(7, models.MessageWithAuthor{ID: 2, ChannelID: 7})
	select {
	case message := <-first:
		if message.ID != 2 {
			t.Fatalf("received id = %d, want 2", message.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber missed the broadcast")
	}

	// A subscriber that never drains is skipped, not waited on
	for i := 0; i < 20; i++ {
		hub.Broadcast(7, models.MessageWithAuthor{ID: uint(100 + i), ChannelID: 7})
	}
	if len(first) != cap(first) {
		t.Fatalf("slow subscriber buffer = %d, want full at %d", len(first), cap(first))
	}
	hub.Unsubscribe(7, first)
}
