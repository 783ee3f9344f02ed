package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"TrendSentinel/internal/logger"
)

// MaxMessageLength is Telegram's per-message limit in characters.
const MaxMessageLength = 4096

// botAPI is the subset of *tgbotapi.BotAPI the notifier uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramNotifier sends HTML messages and receives commands via the Telegram Bot API.
type TelegramNotifier struct {
	bot       botAPI
	chatID    int64
	retryBase time.Duration
}

// NewTelegramNotifier connects to the Bot API with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) (*TelegramNotifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{Timeout: 90 * time.Second, Transport: transport}

	bot, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	logger.Info("authorized on telegram account %s", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, chatID: id, retryBase: time.Second}, nil
}

// Send delivers text to the configured chat, split into pages as needed.
func (t *TelegramNotifier) Send(text string) error {
	return t.SendTo(t.chatID, text)
}

// SendTo delivers text to chatID, split into pages as needed.
func (t *TelegramNotifier) SendTo(chatID int64, text string) error {
	for _, page := range Paginate(text, MaxMessageLength) {
		if err := t.sendPage(chatID, page); err != nil {
			return err
		}
	}
	return nil
}

func (t *TelegramNotifier) sendPage(chatID int64, page string) error {
	msg := tgbotapi.NewMessage(chatID, page)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendWithRetry sends to the configured chat, retrying each page with
// exponential backoff. Pages already delivered are not sent again.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	pages := Paginate(text, MaxMessageLength)
	for n, page := range pages {
		if err := t.sendPageWithRetry(ctx, page, maxRetries); err != nil {
			return fmt.Errorf("page %d/%d: %w", n+1, len(pages), err)
		}
	}
	return nil
}

func (t *TelegramNotifier) sendPageWithRetry(ctx context.Context, page string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.sendPage(t.chatID, page); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * t.retryBase
			logger.Warn("telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
