package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultPostmarkURL - endpoint отправки одиночного письма
const DefaultPostmarkURL = "https://api.postmarkapp.com/email"

// PostmarkConfig - параметры подключения к Postmark
type PostmarkConfig struct {
	ServerToken   string
	From          string
	MessageStream string
	// URL переопределяется в тестах
	URL string
}

// PostmarkSender отправляет коды через HTTP API Postmark
type PostmarkSender struct {
	httpClient *http.Client
	cfg        PostmarkConfig
}

type postmarkEmail struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HTMLBody      string `json:"HtmlBody"`
	TextBody      string `json:"TextBody"`
	MessageStream string `json:"MessageStream"`
}

type postmarkResponse struct {
	Message   string `json:"Message"`
	ErrorCode int    `json:"ErrorCode"`
}

// NewPostmarkSender создает PostmarkSender. httpClient может быть nil
func NewPostmarkSender(cfg PostmarkConfig, httpClient *http.Client) *PostmarkSender {
	if cfg.URL == "" {
		cfg.URL = DefaultPostmarkURL
	}
	if cfg.MessageStream == "" {
		cfg.MessageStream = "outbound"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &PostmarkSender{cfg: cfg, httpClient: httpClient}
}

// SendCode отправляет письмо с кодом. Любой ответ кроме 2xx считается ошибкой
func (s *PostmarkSender) SendCode(ctx context.Context, to, code string) error {
	msg := NewCodeMessage(to, code)

	body, err := json.Marshal(postmarkEmail{
		From:          s.cfg.From,
		To:            msg.To,
		Subject:       msg.Subject,
		HTMLBody:      msg.HTMLBody,
		TextBody:      msg.TextBody,
		MessageStream: s.cfg.MessageStream,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to marshal email: %w", ErrDeliveryFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", ErrDeliveryFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", s.cfg.ServerToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", ErrDeliveryFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var pmErr postmarkResponse
		if err := json.Unmarshal(respBody, &pmErr); err == nil && pmErr.Message != "" {
			return fmt.Errorf("%w: postmark error %d (status %d): %s", ErrDeliveryFailed, pmErr.ErrorCode, resp.StatusCode, pmErr.Message)
		}
		return fmt.Errorf("%w: postmark returned status %d", ErrDeliveryFailed, resp.StatusCode)
	}

	return nil
}
