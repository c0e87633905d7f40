package controller

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cartwala/cartwala/internal/adapter/api/dto"
	"github.com/cartwala/cartwala/internal/domain/chat"
	"github.com/cartwala/cartwala/internal/domain/user"
	"github.com/cartwala/cartwala/pkg/conversation"
	"github.com/cartwala/cartwala/pkg/geocoder"
	"github.com/cartwala/cartwala/pkg/logger"
	"github.com/cartwala/cartwala/pkg/messenger"
)

// WebhookController receives WhatsApp Cloud API notifications, resolves
// each inbound message to a reply and sends it back to the user
type WebhookController struct {
	resolver    *conversation.Resolver
	users       user.Repository
	history     chat.Repository
	sender      messenger.Sender
	geocoder    geocoder.Geocoder
	logger      logger.Logger
	verifyToken string
	appSecret   string
}

// NewWebhookController creates a webhook controller. verifyToken answers
// the Cloud API subscription handshake; appSecret validates the
// X-Hub-Signature-256 header on notifications (skipped when empty).
func NewWebhookController(
	resolver *conversation.Resolver,
	users user.Repository,
	history chat.Repository,
	sender messenger.Sender,
	geo geocoder.Geocoder,
	log logger.Logger,
	verifyToken, appSecret string,
) *WebhookController {
	return &WebhookController{
		resolver:    resolver,
		users:       users,
		history:     history,
		sender:      sender,
		geocoder:    geo,
		logger:      log,
		verifyToken: verifyToken,
		appSecret:   appSecret,
	}
}

// Verify answers the Cloud API subscription handshake by echoing
// hub.challenge when the verify token matches
func (c *WebhookController) Verify(ctx *gin.Context) {
	mode := ctx.Query("hub.mode")
	token := ctx.Query("hub.verify_token")
	challenge := ctx.Query("hub.challenge")

	if mode != "subscribe" || token != c.verifyToken {
		c.logger.Warn("Webhook verification rejected", "mode", mode)
		ctx.JSON(http.StatusForbidden, dto.NewErrorResponse(
			http.StatusForbidden, "Verification failed", "verify token mismatch"))
		return
	}

	ctx.String(http.StatusOK, challenge)
}

// Receive handles a notification batch. The Cloud API retries anything
// that is not answered 200, so per-message failures are logged and
// swallowed once the payload itself has been accepted.
func (c *WebhookController) Receive(ctx *gin.Context) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			http.StatusBadRequest, "Failed to read request body", err.Error()))
		return
	}

	if !c.validSignature(ctx.GetHeader("X-Hub-Signature-256"), body) {
		c.logger.Warn("Webhook signature mismatch")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			http.StatusUnauthorized, "Invalid signature", ""))
		return
	}

	// the body was consumed for the signature check, so bind from the
	// bytes instead of the request
	var payload dto.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			http.StatusBadRequest, "Invalid payload", err.Error()))
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			c.processChange(ctx, change)
		}
	}

	ctx.Status(http.StatusOK)
}

func (c *WebhookController) processChange(ctx *gin.Context, change dto.WebhookChange) {
	names := map[string]string{}
	for _, contact := range change.Value.Contacts {
		names[contact.WaID] = contact.Profile.Name
	}

	for _, msg := range change.Value.Messages {
		if err := c.processMessage(ctx, msg, names[msg.From]); err != nil {
			c.logger.Error("Failed to process webhook message",
				"message_id", msg.ID, "from", msg.From, "error", err)
		}
	}
}

func (c *WebhookController) processMessage(ctx *gin.Context, msg dto.WebhookMessage, name string) error {
	u, err := c.findOrCreateUser(ctx, msg.From, name)
	if err != nil {
		return err
	}

	var reply string
	switch msg.Type {
	case "location":
		if msg.Location == nil {
			return nil
		}
		reply = c.handleLocation(ctx, u, msg.Location)
	case "text":
		if msg.Text == nil {
			return nil
		}
		reply = c.handleText(ctx, u, msg.Text.Body)
	default:
		c.logger.Debug("Ignoring unsupported message type", "type", msg.Type, "from", msg.From)
		return nil
	}

	if reply == "" {
		return nil
	}

	if err := c.history.SaveMessage(ctx, chat.NewMessage(u.ID, chat.DirectionOutbound, reply)); err != nil {
		c.logger.Error("Failed to save outbound message", "user_id", u.ID, "error", err)
	}

	if err := c.sender.SendText(ctx, u.WaNumber, reply); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// handleLocation turns a shared pin into a delivery address. The pin's
// own address text wins; the geocoder fills in when the pin has none.
func (c *WebhookController) handleLocation(ctx *gin.Context, u *user.User, loc *dto.LocationPayload) string {
	address := strings.TrimSpace(loc.Address)
	if address == "" && loc.Name != "" {
		address = loc.Name
	}
	if address == "" {
		resolved, err := c.geocoder.Reverse(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			c.logger.Warn("Reverse geocoding failed",
				"user_id", u.ID, "lat", loc.Latitude, "lon", loc.Longitude, "error", err)
			return "I couldn't work out the address for that location. Could you type it instead?"
		}
		address = resolved
	}

	return c.resolver.HandleLocation(ctx, u.ID, address)
}

func (c *WebhookController) handleText(ctx *gin.Context, u *user.User, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}

	if err := c.history.SaveMessage(ctx, chat.NewMessage(u.ID, chat.DirectionInbound, body)); err != nil {
		c.logger.Error("Failed to save inbound message", "user_id", u.ID, "error", err)
	}

	return c.resolver.Handle(ctx, u.ID, body)
}

func (c *WebhookController) findOrCreateUser(ctx *gin.Context, waNumber, name string) (*user.User, error) {
	u, err := c.users.FindByWaNumber(ctx, waNumber)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}

	u, err = user.NewUser(waNumber, name)
	if err != nil {
		return nil, err
	}
	if err := c.users.Create(ctx, u); err != nil {
		return nil, err
	}

	c.logger.Info("Registered new user", "user_id", u.ID, "wa_number", waNumber)
	return u, nil
}

// validSignature checks the Cloud API HMAC-SHA256 request signature
func (c *WebhookController) validSignature(header string, body []byte) bool {
	if c.appSecret == "" {
		return true
	}

	signature, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
