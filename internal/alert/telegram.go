package alert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/yourusername/camwatch/internal/core"
	"go.uber.org/zap"
)

// TelegramNotifier delivers alert photos to a single operator chat via the
// Telegram Bot API.
type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewTelegramNotifier creates a Telegram notifier from static config.
func NewTelegramNotifier(cfg core.TelegramConfig, logger *zap.Logger) (*TelegramNotifier, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token not configured")
	}
	if cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram chat_id not configured")
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &TelegramNotifier{
		token:   cfg.Token,
		chatID:  cfg.ChatID,
		baseURL: "https://api.telegram.org",
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// SendPhoto posts the encoded frame with its caption as a multipart
// sendPhoto request.
func (t *TelegramNotifier) SendPhoto(ctx context.Context, jpegData []byte, caption string) error {
	url := fmt.Sprintf("%s/bot%s/sendPhoto", t.baseURL, t.token)

	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	if err := w.WriteField("chat_id", t.chatID); err != nil {
		return fmt.Errorf("failed to write chat_id: %w", err)
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return fmt.Errorf("failed to write caption: %w", err)
		}
	}

	fw, err := w.CreateFormFile("photo", "alert.jpg")
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(jpegData); err != nil {
		return fmt.Errorf("failed to write photo bytes: %w", err)
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &b)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: %s", string(body))
	}

	return nil
}
