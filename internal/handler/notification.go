package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/energy-dashboard/internal/model"
)

const (
	emailSubject       = "Energy alert digest"
	maxWebhookResponse = 4096
)

// NotificationConfig holds configuration for the delivery channels. A channel
// without a host or webhook URL is skipped.
type NotificationConfig struct {
	Email struct {
		Host       string   `mapstructure:"host"`
		Port       int      `mapstructure:"port"`
		Username   string   `mapstructure:"username"`
		Password   string   `mapstructure:"password"`
		From       string   `mapstructure:"from"`
		Recipients []string `mapstructure:"recipients"`
	} `mapstructure:"email"`
	SMS struct {
		WebhookURL string   `mapstructure:"webhook_url"`
		Recipients []string `mapstructure:"recipients"`
	} `mapstructure:"sms"`
	Push struct {
		WebhookURL string `mapstructure:"webhook_url"`
	} `mapstructure:"push"`
}

// WebhookPayload is posted to SMS and push gateways
type WebhookPayload struct {
	Channel     model.NotificationChannel   `json:"channel"`
	Message     string                      `json:"message"`
	Recipients  []string                    `json:"recipients,omitempty"`
	Counts      map[model.AlertSeverity]int `json:"counts"`
	Total       int                         `json:"total"`
	GeneratedAt time.Time                   `json:"generated_at"`
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// NotificationHandler delivers alert digests over email, SMS and push
type NotificationHandler struct {
	logger     *zap.Logger
	config     NotificationConfig
	httpClient *http.Client
	sendMail   sendMailFunc
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(logger *zap.Logger, config NotificationConfig) *NotificationHandler {
	return &NotificationHandler{
		logger: logger.Named("notifier"),
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		sendMail: smtp.SendMail,
	}
}

// Configured reports whether ch has enough settings to deliver anything
func (h *NotificationHandler) Configured(ch model.NotificationChannel) bool {
	switch ch {
	case model.NotificationEmail:
		return h.config.Email.Host != "" && len(h.config.Email.Recipients) > 0
	case model.NotificationSMS:
		return h.config.SMS.WebhookURL != ""
	case model.NotificationPush:
		return h.config.Push.WebhookURL != ""
	default:
		return false
	}
}

// PublishDigest sends the digest over ch. Unconfigured channels are skipped.
func (h *NotificationHandler) PublishDigest(ctx context.Context, ch model.NotificationChannel, digest model.Digest) error {
	if !h.Configured(ch) {
		h.logger.Debug("Channel not configured, skipping", zap.String("channel", string(ch)))
		return nil
	}

	h.logger.Info("Sending notification",
		zap.String("channel", string(ch)),
		zap.Int("alerts", digest.Total))

	switch ch {
	case model.NotificationEmail:
		return h.sendEmail(digest)
	case model.NotificationSMS:
		return h.postWebhook(ctx, h.config.SMS.WebhookURL, WebhookPayload{
			Channel:     ch,
			Message:     digest.Message,
			Recipients:  h.config.SMS.Recipients,
			Counts:      digest.Counts,
			Total:       digest.Total,
			GeneratedAt: digest.GeneratedAt,
		})
	case model.NotificationPush:
		return h.postWebhook(ctx, h.config.Push.WebhookURL, WebhookPayload{
			Channel:     ch,
			Message:     digest.Message,
			Counts:      digest.Counts,
			Total:       digest.Total,
			GeneratedAt: digest.GeneratedAt,
		})
	default:
		return fmt.Errorf("unsupported notification channel: %s", ch)
	}
}

func (h *NotificationHandler) sendEmail(digest model.Digest) error {
	cfg := h.config.Email

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s\r\n",
		cfg.From,
		strings.Join(cfg.Recipients, ", "),
		emailSubject,
		digest.Message)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if err := h.sendMail(addr, auth, cfg.From, cfg.Recipients, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (h *NotificationHandler) postWebhook(ctx context.Context, url string, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxWebhookResponse))
		return fmt.Errorf("webhook failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
