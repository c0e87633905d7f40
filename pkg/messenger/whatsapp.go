package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cartwala/cartwala/pkg/logger"
)

// ErrMissingConfig indicates the Cloud API client cannot be constructed
var ErrMissingConfig = errors.New("WHATSAPP_TOKEN and WHATSAPP_PHONE_ID must be set")

const defaultGraphBase = "https://graph.facebook.com/v19.0"

// WhatsAppSender sends text messages through the Meta Cloud API
type WhatsAppSender struct {
	httpClient *http.Client
	baseURL    string
	phoneID    string
	token      string
	logger     logger.Logger
}

// NewWhatsAppSenderFromEnv builds a sender from environment variables
// (WHATSAPP_TOKEN, WHATSAPP_PHONE_ID, optional WHATSAPP_GRAPH_BASE)
func NewWhatsAppSenderFromEnv(log logger.Logger) (*WhatsAppSender, error) {
	token := os.Getenv("WHATSAPP_TOKEN")
	phoneID := os.Getenv("WHATSAPP_PHONE_ID")
	if token == "" || phoneID == "" {
		return nil, ErrMissingConfig
	}

	base := os.Getenv("WHATSAPP_GRAPH_BASE")
	if base == "" {
		base = defaultGraphBase
	}

	return &WhatsAppSender{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    base,
		phoneID:    phoneID,
		token:      token,
		logger:     log,
	}, nil
}

type textPayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// SendText posts a plain text message to a WhatsApp number
func (s *WhatsAppSender) SendText(ctx context.Context, to, body string) error {
	payload := textPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
	}
	payload.Text.Body = body

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		s.logger.Error("Cloud API rejected message", "status", resp.StatusCode, "body", string(detail))
		return fmt.Errorf("cloud api returned status %d", resp.StatusCode)
	}

	return nil
}
