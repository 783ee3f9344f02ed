package notifier

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"TrendSentinel/internal/logger"
)

// ReplyFunc sends a message back to the chat a command came from.
type ReplyFunc func(text string)

// CommandHandler is called for each received command, e.g. "/analyze" or
// "/trend 510300". It may call reply any number of times.
type CommandHandler func(command string, reply ReplyFunc)

// StartPolling receives commands until ctx is cancelled. Each command is
// handled on its own goroutine so a long report does not block polling.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			logger.Info("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || !msg.IsCommand() {
				continue
			}
			command := commandText(msg)
			logger.Info("received command: %s", command)
			chatID := msg.Chat.ID
			reply := func(text string) {
				if err := t.SendTo(chatID, text); err != nil {
					logger.Error("send reply: %v", err)
				}
			}
			go handler(command, reply)
		}
	}
}

// commandText drops any @botname suffix and keeps the arguments.
func commandText(msg *tgbotapi.Message) string {
	cmd := "/" + msg.Command()
	if args := strings.TrimSpace(msg.CommandArguments()); args != "" {
		cmd += " " + args
	}
	return cmd
}
