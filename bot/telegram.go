package bot

import (
	"fmt"
	"os"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/deploybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TELEGRAM - Trade notifications
// ═══════════════════════════════════════════════════════════════════════════════

// TelegramNotifier pushes trade events to a Telegram chat. It
// implements execution.Notifier.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier builds a notifier from TELEGRAM_BOT_TOKEN and
// TELEGRAM_CHAT_ID. Returns an error when either is missing; callers
// treat that as "notifications disabled".
func NewTelegramNotifier() (*TelegramNotifier, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}

	log.Info().Str("bot", api.Self.UserName).Msg("📱 Telegram notifications enabled")
	return &TelegramNotifier{api: api, chatID: chatID}, nil
}

// NotifyOrderOpened implements execution.Notifier.
func (n *TelegramNotifier) NotifyOrderOpened(symbol string, side types.Side, volume, price, tp, sl decimal.Decimal, ticket int64) {
	emoji := "🟢"
	if side == types.SideShort {
		emoji = "🔴"
	}
	msg := fmt.Sprintf("%s *%s %s*\nPrice: `%s`  Vol: `%s`\nTP: `%s`  SL: `%s`\nTicket: `%d`",
		emoji, side, symbol, price, volume, tp, sl, ticket)
	n.send(msg)
}

// NotifyOrderClosed implements execution.Notifier.
func (n *TelegramNotifier) NotifyOrderClosed(symbol string, side types.Side, ticket int64) {
	n.send(fmt.Sprintf("⚪ Closed %s %s ticket `%d`", side, symbol, ticket))
}

// NotifySessionEnd reports session totals.
func (n *TelegramNotifier) NotifySessionEnd(symbol string, hour int, opened, closed, failed int64) {
	n.send(fmt.Sprintf("🏁 Session %dh %s done\nOpened: %d  Closed: %d  Failed: %d",
		hour, symbol, opened, closed, failed))
}

func (n *TelegramNotifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.api.Send(msg); err != nil {
		log.Warn().Err(err).Msg("⚠️ Telegram send failed")
	}
}
