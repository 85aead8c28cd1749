// Package notify provides the Telegram escalation channel. It carries only
// states that need human attention (orphaned visits, inconsistent local
// state); routine errors stay in the log.
package notify

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	bot          *tgbotapi.BotAPI
	targetChatID int64
)

// Init connects the bot. An empty token leaves the channel disabled; alerts
// then only reach the log.
func Init(token string, chatID int64) error {
	if token == "" {
		log.Println("telegram escalation disabled (no token)")
		return nil
	}

	var err error
	bot, err = tgbotapi.NewBotAPI(token)
	if err != nil {
		return err
	}
	bot.Debug = false
	targetChatID = chatID

	log.Printf("telegram escalation ready on account %s", bot.Self.UserName)
	return nil
}

// SendAlert pushes a message to the ops chat. Send failures are logged and
// dropped; escalation must never take the app down.
func SendAlert(message string) {
	if bot == nil || targetChatID == 0 {
		return
	}

	msg := tgbotapi.NewMessage(targetChatID, "⚠️ *fieldtrack*\n"+message)
	msg.ParseMode = "Markdown"
	if _, err := bot.Send(msg); err != nil {
		log.Printf("telegram alert send error: %v", err)
	}
}
