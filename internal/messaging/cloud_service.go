package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

// DefaultGraphURL is the Graph API base for Cloud API sends.
const DefaultGraphURL = "https://graph.facebook.com/v20.0"

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// CloudOpts configures the Cloud API service.
type CloudOpts struct {
	PhoneNumberID string
	AccessToken   string
	GraphURL      string
	HTTPClient    *http.Client
}

// CloudOption defines a configuration option for the Cloud API service.
type CloudOption func(*CloudOpts)

// WithPhoneNumberID sets the sending business phone number id.
func WithPhoneNumberID(id string) CloudOption {
	return func(o *CloudOpts) { o.PhoneNumberID = id }
}

// WithAccessToken sets the Graph API bearer token.
func WithAccessToken(token string) CloudOption {
	return func(o *CloudOpts) { o.AccessToken = token }
}

// WithGraphURL overrides the Graph API base URL.
func WithGraphURL(u string) CloudOption {
	return func(o *CloudOpts) { o.GraphURL = u }
}

// WithCloudHTTPClient sets the HTTP client used for sends.
func WithCloudHTTPClient(c *http.Client) CloudOption {
	return func(o *CloudOpts) { o.HTTPClient = c }
}

// CloudAPIService sends text through the WhatsApp Business Cloud API.
// Inbound messages arrive on the HTTP webhook, not on Responses.
type CloudAPIService struct {
	*eventChannels
	endpoint    string
	accessToken string
	httpClient  *http.Client
}

// NewCloudAPIService creates the service, falling back to WHATSAPP_* environment variables.
func NewCloudAPIService(opts ...CloudOption) (*CloudAPIService, error) {
	var cfg CloudOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.PhoneNumberID == "" {
		cfg.PhoneNumberID = os.Getenv("WHATSAPP_PHONE_NUMBER_ID")
	}
	if cfg.AccessToken == "" {
		cfg.AccessToken = os.Getenv("WHATSAPP_ACCESS_TOKEN")
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = DefaultGraphURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.PhoneNumberID == "" || cfg.AccessToken == "" {
		return nil, fmt.Errorf("whatsapp phone number id and access token must be provided")
	}
	slog.Debug("NewCloudAPIService: configured", "graphURL", cfg.GraphURL)
	return &CloudAPIService{
		eventChannels: newEventChannels("CloudAPIService"),
		endpoint:      strings.TrimRight(cfg.GraphURL, "/") + "/" + cfg.PhoneNumberID + "/messages",
		accessToken:   cfg.AccessToken,
		httpClient:    cfg.HTTPClient,
	}, nil
}

func (s *CloudAPIService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalizePhone(recipient)
}

// Start is a no-op; inbound delivery is push-based.
func (s *CloudAPIService) Start(ctx context.Context) error {
	return nil
}

func (s *CloudAPIService) Stop() error {
	if s.close() {
		slog.Info("CloudAPIService.Stop: stopped")
	}
	return nil
}

type cloudTextMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// SendMessage posts one text message and emits a sent receipt.
func (s *CloudAPIService) SendMessage(ctx context.Context, to string, body string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("CloudAPIService.SendMessage: invalid recipient", "error", err, "to", to)
		return err
	}

	msg := cloudTextMessage{MessagingProduct: "whatsapp", To: canonicalTo, Type: "text"}
	msg.Text.Body = body
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	err = s.post(ctx, payload)
	recordSend("cloud", err)
	if err != nil {
		slog.Error("CloudAPIService.SendMessage: send failed", "error", err, "to", canonicalTo)
		return err
	}
	slog.Debug("CloudAPIService.SendMessage: sent", "to", canonicalTo, "body_length", len(body))
	s.emitReceipt(models.Receipt{To: canonicalTo, Status: models.MessageStatusSent, Time: time.Now().Unix()})
	return nil
}

func (s *CloudAPIService) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cloud api request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("cloud api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
